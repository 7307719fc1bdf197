package cardmap

import (
	"time"

	"github.com/rewardsense/cardmap/internal/ingest"
	"github.com/rewardsense/cardmap/pkg/cluster"
	"github.com/rewardsense/cardmap/pkg/errors"
	"github.com/rewardsense/cardmap/pkg/normalize"
	"github.com/rewardsense/cardmap/pkg/reconcile"
	"github.com/rewardsense/cardmap/pkg/sources"
)

// options holds pipeline configuration assembled by Option functions.
type options struct {
	srcs       []sources.Source
	ingestOpts []ingest.Option
	engineOpts []reconcile.Option
}

// Option configures a Pipeline.
type Option func(*options) error

// WithSources adds sources to fetch from, in the given order.
func WithSources(srcs ...sources.Source) Option {
	return func(o *options) error {
		for _, s := range srcs {
			if s == nil {
				return errors.New("source cannot be nil")
			}
		}
		o.srcs = append(o.srcs, srcs...)
		return nil
	}
}

// WithTables overrides the embedded normalization tables.
func WithTables(t *normalize.Tables) Option {
	return func(o *options) error {
		o.engineOpts = append(o.engineOpts, reconcile.WithTables(t))
		return nil
	}
}

// WithPriority sets the source priority order for field resolution.
func WithPriority(order ...sources.ID) Option {
	return func(o *options) error {
		o.engineOpts = append(o.engineOpts, reconcile.WithPriority(order...))
		return nil
	}
}

// WithClusterOptions tunes duplicate detection thresholds.
func WithClusterOptions(opts ...cluster.Option) Option {
	return func(o *options) error {
		o.engineOpts = append(o.engineOpts, reconcile.WithClusterOptions(opts...))
		return nil
	}
}

// WithProvenance enables field-level provenance tracking.
func WithProvenance(enabled bool) Option {
	return func(o *options) error {
		o.engineOpts = append(o.engineOpts, reconcile.WithProvenance(enabled))
		return nil
	}
}

// WithWorkers bounds concurrent source fetches.
func WithWorkers(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return errors.New("workers must be positive")
		}
		o.ingestOpts = append(o.ingestOpts, ingest.WithWorkers(n))
		return nil
	}
}

// WithSourceDelay spaces out source fetch starts.
func WithSourceDelay(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("source delay cannot be negative")
		}
		o.ingestOpts = append(o.ingestOpts, ingest.WithSourceDelay(d))
		return nil
	}
}
