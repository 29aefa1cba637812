package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/corpuslab/quantang-cli/internal/artifact"
	"github.com/corpuslab/quantang-cli/internal/classify"
	"github.com/corpuslab/quantang-cli/internal/config"
	"github.com/corpuslab/quantang-cli/internal/crawler"
	"github.com/corpuslab/quantang-cli/internal/extract"
	"github.com/corpuslab/quantang-cli/internal/identity"
	"github.com/corpuslab/quantang-cli/internal/ledger"
	"github.com/corpuslab/quantang-cli/internal/pacing"
	"github.com/corpuslab/quantang-cli/internal/store"
)

// crawlEnv bundles the wired crawler stack for a command invocation.
type crawlEnv struct {
	Orchestrator *crawler.Orchestrator
	Ledger       *ledger.Ledger
	Store        store.Store
}

func (e *crawlEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initCrawler wires pool, governor, classifier, extractor, artifact
// writer, ledger, and store into an orchestrator. The pacing config is a
// parameter so the retry command can run with a more conservative one.
func initCrawler(ctx context.Context, pacingCfg config.PacingConfig) (*crawlEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.Crawl.TimeoutSecs) * time.Second
	pool, err := identity.NewPool(cfg.Identity, timeout, nil)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	writer, err := artifact.NewWriter(cfg.Crawl.OutputDir)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	led, err := ledger.Load(cfg.Ledger.Path)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	orch := crawler.New(
		cfg.Crawl,
		pool,
		pacing.NewGovernor(pacingCfg, nil),
		classify.New(cfg.Classify),
		extract.NewChain(cfg.Extract),
		writer,
		led,
		st,
		crawler.NewHTTPFetcher(cfg.Crawl.BaseURL),
	)

	return &crawlEnv{Orchestrator: orch, Ledger: led, Store: st}, nil
}
