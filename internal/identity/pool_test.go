package identity

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpuslab/quantang-cli/internal/config"
)

func testIdentityConfig(poolSize, maxRequests int) config.IdentityConfig {
	return config.IdentityConfig{
		PoolSize:    poolSize,
		MaxRequests: maxRequests,
		MaxAgeSecs:  600,
		UserAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) TestAgent/1.0",
			"Mozilla/5.0 (X11; Linux x86_64) TestAgent/2.0",
		},
		AcceptLanguages: []string{"zh-TW,zh;q=0.9"},
		Referers:        []string{"https://example.org/"},
		CacheControls:   []string{"no-cache"},
	}
}

func testPool(t *testing.T, poolSize, maxRequests int) *Pool {
	t.Helper()
	p, err := NewPool(testIdentityConfig(poolSize, maxRequests), time.Second, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	return p
}

func TestNewPool_InvalidSize(t *testing.T) {
	_, err := NewPool(config.IdentityConfig{PoolSize: 0}, time.Second, nil)
	require.Error(t, err)
}

func TestPool_CheckoutRelease(t *testing.T) {
	p := testPool(t, 2, 10)
	assert.Equal(t, 2, p.Size())

	id1, err := p.Checkout()
	require.NoError(t, err)
	id2, err := p.Checkout()
	require.NoError(t, err)
	assert.NotSame(t, id1, id2)

	p.Release(id1)
	p.Release(id2)
}

func TestPool_CheckoutBlocksUntilRelease(t *testing.T) {
	p := testPool(t, 1, 10)

	id, err := p.Checkout()
	require.NoError(t, err)

	got := make(chan *Identity)
	go func() {
		next, err := p.Checkout()
		if err != nil {
			t.Error(err)
		}
		got <- next
	}()

	select {
	case <-got:
		t.Fatal("checkout should block while the only identity is in use")
	case <-time.After(50 * time.Millisecond):
	}

	p.Release(id)

	select {
	case next := <-got:
		p.Release(next)
	case <-time.After(time.Second):
		t.Fatal("checkout did not resume after release")
	}
}

func TestPool_AutoRotateAfterMaxRequests(t *testing.T) {
	p := testPool(t, 1, 2)

	for range 2 {
		id, err := p.Checkout()
		require.NoError(t, err)
		p.Release(id)
	}

	// Third checkout hits the request cap and rotates: the counter
	// restarts at one instead of reaching three.
	id, err := p.Checkout()
	require.NoError(t, err)
	assert.Equal(t, 1, id.RequestCount())
	p.Release(id)
}

func TestPool_AutoRotate_FreshFingerprint(t *testing.T) {
	// Rotation must never hand back the identical header combination
	// when the pools admit more than one, whatever the seed.
	cfg := testIdentityConfig(1, 1)
	for seed := range uint64(50) {
		p, err := NewPool(cfg, time.Second, rand.New(rand.NewPCG(seed, 99)))
		require.NoError(t, err)

		id, err := p.Checkout()
		require.NoError(t, err)
		before := id.Fingerprint()
		p.Release(id)

		id, err = p.Checkout()
		require.NoError(t, err)
		assert.NotEqual(t, before, id.Fingerprint(), "seed %d", seed)
		p.Release(id)
	}
}

func TestPool_Rotate_SingleCombinationPool(t *testing.T) {
	// With exactly one possible combination, rotation keeps it rather
	// than spinning on the redraw.
	cfg := config.IdentityConfig{
		PoolSize:        1,
		MaxRequests:     10,
		UserAgents:      []string{"TestAgent/1.0"},
		AcceptLanguages: []string{"zh-TW"},
		Referers:        []string{"https://example.org/"},
		CacheControls:   []string{"no-cache"},
	}
	p, err := NewPool(cfg, time.Second, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)

	id, err := p.Checkout()
	require.NoError(t, err)
	before := id.Fingerprint()

	require.NoError(t, p.Rotate(id))
	assert.Equal(t, before, id.Fingerprint())
	p.Release(id)
}

func TestPool_Rotate_FreshSession(t *testing.T) {
	p := testPool(t, 1, 10)

	id, err := p.Checkout()
	require.NoError(t, err)
	oldClient := id.Client()
	oldFingerprint := id.Fingerprint()

	require.NoError(t, p.Rotate(id))
	assert.NotSame(t, oldClient, id.Client())
	assert.NotEqual(t, oldFingerprint, id.Fingerprint())
	p.Release(id)
}

func TestPool_RotateAll_SkipsCheckedOut(t *testing.T) {
	p := testPool(t, 2, 10)

	id, err := p.Checkout()
	require.NoError(t, err)
	held := id.Client()

	require.NoError(t, p.RotateAll())
	assert.Same(t, held, id.Client())
	p.Release(id)
}

func TestFingerprint_Headers(t *testing.T) {
	cfg := testIdentityConfig(1, 10)
	fp := drawFingerprint(rand.New(rand.NewPCG(1, 2)), cfg)

	headers := fp.Headers()
	assert.Contains(t, cfg.UserAgents, headers["User-Agent"])
	assert.Equal(t, "zh-TW,zh;q=0.9", headers["Accept-Language"])
	assert.Equal(t, "https://example.org/", headers["Referer"])
	assert.Equal(t, "gzip, deflate", headers["Accept-Encoding"])
}
