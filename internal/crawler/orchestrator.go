// Package crawler drives the per-target acquisition state machine:
// identity checkout, governed pacing, fetch, classification, extraction,
// artifact persistence, and the failure ledger.
package crawler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/corpuslab/quantang-cli/internal/artifact"
	"github.com/corpuslab/quantang-cli/internal/classify"
	"github.com/corpuslab/quantang-cli/internal/config"
	"github.com/corpuslab/quantang-cli/internal/extract"
	"github.com/corpuslab/quantang-cli/internal/identity"
	"github.com/corpuslab/quantang-cli/internal/ledger"
	"github.com/corpuslab/quantang-cli/internal/model"
	"github.com/corpuslab/quantang-cli/internal/pacing"
	"github.com/corpuslab/quantang-cli/internal/store"
)

// outcomeArtifactExists marks targets skipped because their artifact was
// already on disk (resume).
const outcomeArtifactExists = "artifact_exists"

// Orchestrator consumes the pool, governor, classifier, and extractor to
// process a batch of volume targets. A target is attempted at most
// max_retries+1 times before it becomes terminal; a single target's
// exhaustion never aborts the run.
type Orchestrator struct {
	cfg        config.CrawlConfig
	pool       *identity.Pool
	governor   *pacing.Governor
	classifier *classify.Classifier
	chain      *extract.Chain
	writer     *artifact.Writer
	ledger     *ledger.Ledger
	store      store.Store
	fetcher    Fetcher

	// mu guards stats, ledger mutation, and the processed counter in the
	// worker-pool variant; the sequential path takes it uncontended.
	mu        sync.Mutex
	stats     *model.Stats
	processed int
}

// New wires an orchestrator from its collaborators.
func New(
	cfg config.CrawlConfig,
	pool *identity.Pool,
	governor *pacing.Governor,
	classifier *classify.Classifier,
	chain *extract.Chain,
	writer *artifact.Writer,
	led *ledger.Ledger,
	st store.Store,
	fetcher Fetcher,
) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		pool:       pool,
		governor:   governor,
		classifier: classifier,
		chain:      chain,
		writer:     writer,
		ledger:     led,
		store:      st,
		fetcher:    fetcher,
		stats:      model.NewStats(),
	}
}

// Run processes the given volumes and returns the aggregate statistics.
// kind is recorded in the run store ("crawl" or "retry"). Cancellation is
// observed between attempts only: the in-flight attempt completes, state
// and counters are flushed, and no new attempt begins.
func (o *Orchestrator) Run(ctx context.Context, kind string, volumes []int) (*model.Stats, error) {
	if len(volumes) == 0 {
		zap.L().Info("crawler: nothing to do")
		return o.stats, nil
	}

	run, err := o.store.CreateRun(ctx, kind, volumes[0], volumes[len(volumes)-1])
	if err != nil {
		return nil, err
	}
	zap.L().Info("crawler: run started",
		zap.String("run_id", run.ID),
		zap.String("kind", kind),
		zap.Int("targets", len(volumes)),
		zap.Int("workers", o.workers()),
	)

	g := new(errgroup.Group)
	g.SetLimit(o.workers())
	for _, volume := range volumes {
		if ctx.Err() != nil {
			zap.L().Warn("crawler: stop requested, finishing in-flight targets")
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			state := o.crawlTarget(ctx, volume)
			o.commit(run.ID, state)
			return nil
		})
	}
	_ = g.Wait()

	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.ledger.Save(); err != nil {
		zap.L().Error("crawler: save failure ledger", zap.Error(err))
	}
	if err := o.store.FinishRun(context.WithoutCancel(ctx), run.ID, o.stats); err != nil {
		zap.L().Error("crawler: finish run", zap.Error(err))
	}

	zap.L().Info("crawler: run complete",
		zap.String("run_id", run.ID),
		zap.Int("succeeded", o.stats.Succeeded),
		zap.Int("skipped", o.stats.Skipped),
		zap.Int("exhausted", o.stats.Exhausted()),
		zap.Int("captcha", o.stats.Captcha),
	)
	return o.stats, nil
}

func (o *Orchestrator) workers() int {
	if o.cfg.Workers > 1 {
		return o.cfg.Workers
	}
	return 1
}

// crawlTarget runs one target through the state machine until it is
// terminal or the run is cancelled. No error escapes the attempt
// boundary: fetch failures are mapped onto the outcome taxonomy and
// consume retry budget like any other failed attempt.
func (o *Orchestrator) crawlTarget(ctx context.Context, volume int) model.TargetState {
	state := model.TargetState{Volume: volume, Status: model.TargetPending}

	// Resumability: an existing artifact is proof of prior success.
	if o.writer.Exists(volume) {
		state.Status = model.TargetSuccess
		state.LastOutcome = outcomeArtifactExists
		zap.L().Debug("crawler: artifact exists, skipping", zap.Int("volume", volume))
		return state
	}

	for attempt := 0; attempt <= o.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return state
		}
		state.Retries = attempt

		outcome, done := o.attempt(ctx, volume, attempt, &state)
		if done {
			return state
		}
		state.Status = model.TargetAttempted
		state.LastOutcome = outcome.String()

		zap.L().Warn("crawler: attempt failed",
			zap.Int("volume", volume),
			zap.Int("attempt", attempt+1),
			zap.String("outcome", outcome.String()),
		)
	}

	state.Status = model.TargetExhausted
	return state
}

// attempt performs a single checkout→pace→fetch→classify→extract cycle.
// It returns done=true when the target reached a terminal success (or the
// run was cancelled mid-pace) and otherwise the failure outcome after any
// mandated rotation/cooldown has been applied.
func (o *Orchestrator) attempt(ctx context.Context, volume, retryIndex int, state *model.TargetState) (model.Outcome, bool) {
	id, err := o.pool.Checkout()
	if err != nil {
		zap.L().Error("crawler: identity checkout", zap.Error(err))
		return model.Outcome{Kind: model.OutcomeConnectionError}, false
	}

	if err := o.governor.Wait(ctx, retryIndex); err != nil {
		o.pool.Release(id)
		return model.Outcome{}, true // cancelled before the network call
	}

	var outcome model.Outcome
	status, body, ferr := o.fetcher.Fetch(id, volume)
	if ferr != nil {
		outcome = transportOutcome(ferr)
	} else {
		var candidate bool
		outcome, candidate = o.classifier.Classify(status, body)
		if candidate {
			records := o.chain.Extract(body, volume)
			if len(records) > 0 {
				o.pool.Release(id)
				if err := o.writer.Write(volume, records, time.Now()); err != nil {
					zap.L().Error("crawler: write artifact",
						zap.Int("volume", volume),
						zap.Error(err),
					)
					state.Status = model.TargetExhausted
					state.LastOutcome = "artifact_error"
					return model.Outcome{}, true
				}
				state.Status = model.TargetSuccess
				state.LastOutcome = string(model.OutcomeSuccess)
				state.Records = len(records)
				zap.L().Info("crawler: volume acquired",
					zap.Int("volume", volume),
					zap.Int("records", len(records)),
				)
				return model.Outcome{Kind: model.OutcomeSuccess, Records: records}, true
			}
			outcome = model.Outcome{Kind: model.OutcomeNoRecordsFound}
		}
	}

	// Failure handling while the identity is still held: defense verdicts
	// force rotation plus cooldown, content verdicts rotate, transport and
	// non-403 protocol failures back off on the same identity. The sleeps
	// are skipped once the retry budget is spent; there is no next attempt
	// to pace.
	lastAttempt := retryIndex >= o.cfg.MaxRetries
	switch {
	case outcome.IsDefense():
		if err := o.pool.Rotate(id); err != nil {
			zap.L().Error("crawler: rotate identity", zap.Error(err))
		}
		o.pool.Release(id)
		if !lastAttempt {
			_ = o.governor.Cooldown(ctx)
		}
	case outcome.IsTransport() || outcome.Kind == model.OutcomeHTTPError:
		o.pool.Release(id)
		if !lastAttempt {
			_ = o.governor.Backoff(ctx, retryIndex)
		}
	default:
		if err := o.pool.Rotate(id); err != nil {
			zap.L().Error("crawler: rotate identity", zap.Error(err))
		}
		o.pool.Release(id)
	}
	return outcome, false
}

// commit folds a terminal target state into the aggregate counters, the
// failure ledger, and the run store, and fires the periodic full-pool
// rotation.
func (o *Orchestrator) commit(runID string, state model.TargetState) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch state.Status {
	case model.TargetSuccess:
		if state.LastOutcome == outcomeArtifactExists {
			o.stats.Skipped++
		} else {
			o.stats.Succeeded++
		}
		o.ledger.Remove(state.Volume)
	case model.TargetExhausted:
		o.stats.ExhaustedByReason[state.LastOutcome]++
		if state.LastOutcome == string(model.OutcomeCaptcha) {
			o.stats.Captcha++
		}
		o.ledger.Record(ledger.Entry{
			Volume:      state.Volume,
			LastOutcome: state.LastOutcome,
			Retries:     state.Retries,
			FailedAt:    time.Now().UTC(),
		})
	default:
		// Cancelled mid-budget: recorded in the store, left off the ledger
		// so the next full crawl reconsiders it from scratch.
	}

	if err := o.store.RecordTarget(context.Background(), runID, state); err != nil {
		zap.L().Error("crawler: record target", zap.Error(err))
	}

	o.processed++
	if o.cfg.ProgressEvery > 0 && o.processed%o.cfg.ProgressEvery == 0 {
		zap.L().Info("crawler: progress",
			zap.Int("processed", o.processed),
			zap.Int("succeeded", o.stats.Succeeded),
			zap.Int("skipped", o.stats.Skipped),
			zap.Int("exhausted", o.stats.Exhausted()),
			zap.Int("captcha", o.stats.Captcha),
		)
	}
	if o.cfg.RotateEvery > 0 && o.processed%o.cfg.RotateEvery == 0 {
		if err := o.pool.RotateAll(); err != nil {
			zap.L().Error("crawler: full pool rotation", zap.Error(err))
		}
	}
}
