// Package cardmap reconciles credit card offer data from multiple
// sources into one canonical catalog. It wires the ingest, normalize,
// validate, cluster, and merge stages together behind a single Pipeline
// facade; the underlying packages remain usable on their own.
package cardmap

import (
	"context"

	"github.com/rewardsense/cardmap/internal/ingest"
	"github.com/rewardsense/cardmap/pkg/logging"
	"github.com/rewardsense/cardmap/pkg/reconcile"
	"github.com/rewardsense/cardmap/pkg/sources"
)

// Pipeline runs the full fetch-and-reconcile flow.
type Pipeline struct {
	fetcher *ingest.Fetcher
	engine  *reconcile.Engine
}

// New creates a pipeline. At least one source must be configured for
// Run to produce anything; Reconcile works without sources.
func New(opts ...Option) (*Pipeline, error) {
	o := &options{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	engine, err := reconcile.New(o.engineOpts...)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		fetcher: ingest.New(o.srcs, o.ingestOpts...),
		engine:  engine,
	}, nil
}

// Run fetches every configured source and reconciles the records. A
// partially failed fetch still reconciles whatever arrived; the fetch
// error is attached to the result. The returned error is reserved for
// failures that invalidate the whole run.
func (p *Pipeline) Run(ctx context.Context) (*reconcile.Result, error) {
	logger := logging.FromContext(ctx)

	records, fetchErr := p.fetcher.Fetch(ctx)
	if fetchErr != nil && len(records) == 0 {
		return nil, fetchErr
	}

	result, err := p.engine.Reconcile(ctx, records)
	if err != nil {
		return nil, err
	}
	if fetchErr != nil {
		result.AddError(fetchErr)
	}
	logger.Info().
		Str("run_id", result.RunID).
		Int("cards", result.Catalog.Len()).
		Int("rejections", result.Audit.Counters.Rejected).
		Int("conflicts", result.Audit.Counters.Conflicts).
		Msg("reconciliation complete")
	return result, nil
}

// Reconcile runs the pipeline over records the caller already has,
// skipping the fetch stage.
func (p *Pipeline) Reconcile(ctx context.Context, records []sources.Record) (*reconcile.Result, error) {
	return p.engine.Reconcile(ctx, records)
}

// Priority returns the source priority order the pipeline merges with.
func (p *Pipeline) Priority() []sources.ID {
	return p.engine.Priority()
}
