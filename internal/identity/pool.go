// Package identity owns the pool of rotating network identities used to
// vary the crawler's fingerprint: each identity bundles a header set with
// its own HTTP session (cookie jar included), and is rotated by usage,
// age, or defense signal.
package identity

import (
	"math/rand/v2"
	"net/http/cookiejar"
	"sync"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/corpuslab/quantang-cli/internal/config"
)

// Identity is one rotating network identity. It is checked out of the
// pool for exactly one attempt at a time; the pool guarantees exclusive
// ownership between Checkout and Release.
type Identity struct {
	id          int
	fingerprint Fingerprint
	client      *resty.Client

	requestCount int
	createdAt    time.Time
	lastUsed     time.Time
	inUse        bool
}

// Client returns the identity's HTTP session.
func (i *Identity) Client() *resty.Client { return i.client }

// Fingerprint returns the identity's current header fingerprint.
func (i *Identity) Fingerprint() Fingerprint { return i.fingerprint }

// RequestCount returns the number of checkouts since the last rotation.
func (i *Identity) RequestCount() int { return i.requestCount }

// Pool manages a fixed-size set of identities and hands them out
// least-recently-used. Rotation happens automatically when an identity
// exceeds its request or age cap, and on demand after defense verdicts.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	ids     []*Identity
	rng     *rand.Rand
	cfg     config.IdentityConfig
	timeout time.Duration
}

// NewPool builds a pool of cfg.PoolSize identities, each with a fresh
// fingerprint and session. The random source is injected so header draws
// are deterministic under test.
func NewPool(cfg config.IdentityConfig, timeout time.Duration, rng *rand.Rand) (*Pool, error) {
	if cfg.PoolSize <= 0 {
		return nil, eris.Errorf("identity: pool size must be positive, got %d", cfg.PoolSize)
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	p := &Pool{
		rng:     rng,
		cfg:     cfg,
		timeout: timeout,
	}
	p.cond = sync.NewCond(&p.mu)

	for n := range cfg.PoolSize {
		id := &Identity{id: n}
		if err := p.refresh(id); err != nil {
			return nil, err
		}
		p.ids = append(p.ids, id)
	}
	return p, nil
}

// refresh gives the identity a new session and fingerprint and resets its
// counters. Caller must hold the pool lock (or be inside NewPool).
func (p *Pool) refresh(id *Identity) error {
	if id.client != nil {
		id.client.GetClient().CloseIdleConnections()
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return eris.Wrap(err, "identity: cookie jar")
	}

	client := resty.New()
	client.SetCookieJar(jar)
	client.SetTimeout(p.timeout)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	// Rotation must present as a different browser. Redraw until the
	// combination changes, unless the pools only admit one.
	fp := drawFingerprint(p.rng, p.cfg)
	if multipleFingerprints(p.cfg) {
		for fp == id.fingerprint {
			fp = drawFingerprint(p.rng, p.cfg)
		}
	}

	id.client = client
	id.fingerprint = fp
	id.requestCount = 0
	id.createdAt = time.Now()
	return nil
}

// Checkout returns the least-recently-used idle identity, rotating it
// first if it hit its request or age cap. Blocks until an identity is
// free. The caller must Release the identity after the attempt.
func (p *Pool) Checkout() (*Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var id *Identity
	for {
		for _, cand := range p.ids {
			if cand.inUse {
				continue
			}
			if id == nil || cand.lastUsed.Before(id.lastUsed) {
				id = cand
			}
		}
		if id != nil {
			break
		}
		p.cond.Wait()
	}

	if p.needsRotation(id) {
		if err := p.refresh(id); err != nil {
			return nil, err
		}
		zap.L().Debug("identity: auto-rotated at checkout",
			zap.Int("identity", id.id),
		)
	}

	id.inUse = true
	id.requestCount++
	id.lastUsed = time.Now()
	return id, nil
}

func (p *Pool) needsRotation(id *Identity) bool {
	if p.cfg.MaxRequests > 0 && id.requestCount >= p.cfg.MaxRequests {
		return true
	}
	if p.cfg.MaxAgeSecs > 0 && time.Since(id.createdAt) >= time.Duration(p.cfg.MaxAgeSecs)*time.Second {
		return true
	}
	return false
}

// Release returns a checked-out identity to the pool.
func (p *Pool) Release(id *Identity) {
	p.mu.Lock()
	id.inUse = false
	p.mu.Unlock()
	p.cond.Signal()
}

// Rotate discards the identity's session and draws a fresh fingerprint.
// Called by the orchestrator after Blocked/Captcha/403 verdicts; the
// identity must be checked out by the caller.
func (p *Pool) Rotate(id *Identity) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.refresh(id); err != nil {
		return err
	}
	zap.L().Info("identity: rotated",
		zap.Int("identity", id.id),
		zap.String("user_agent", id.fingerprint.UserAgent),
	)
	return nil
}

// RotateAll refreshes every idle identity. The periodic full-pool reset
// defends against slow-building fingerprints; checked-out identities are
// skipped and rotate on their next cap check instead.
func (p *Pool) RotateAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range p.ids {
		if id.inUse {
			continue
		}
		if err := p.refresh(id); err != nil {
			return err
		}
	}
	zap.L().Info("identity: full pool rotation", zap.Int("pool_size", len(p.ids)))
	return nil
}

// Size returns the number of identities in the pool.
func (p *Pool) Size() int { return len(p.ids) }
