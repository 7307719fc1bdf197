// Package ingest fetches records from every configured source
// concurrently. Each source runs in its own goroutine behind a shared
// worker limit and a per-source rate limiter, and a failing source
// never blocks the others: whatever it returned before failing is kept
// and the error is joined into the fetch report.
package ingest

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rewardsense/cardmap/pkg/errors"
	"github.com/rewardsense/cardmap/pkg/logging"
	"github.com/rewardsense/cardmap/pkg/sources"
)

// DefaultWorkers bounds concurrent source fetches.
const DefaultWorkers = 4

// Fetcher pulls records from a set of sources.
type Fetcher struct {
	srcs    []sources.Source
	workers int
	delay   time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithWorkers bounds the number of sources fetched concurrently.
func WithWorkers(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.workers = n
		}
	}
}

// WithSourceDelay sets the minimum delay between requests to any one
// source. Zero disables rate limiting.
func WithSourceDelay(d time.Duration) Option {
	return func(f *Fetcher) { f.delay = d }
}

// New creates a fetcher over the given sources.
func New(srcs []sources.Source, opts ...Option) *Fetcher {
	f := &Fetcher{srcs: srcs, workers: DefaultWorkers}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch pulls all sources and returns every record collected, in a
// stable order grouped by source. The error joins per-source failures;
// records and a non-nil error together mean partial success.
func (f *Fetcher) Fetch(ctx context.Context) ([]sources.Record, error) {
	if len(f.srcs) == 0 {
		return nil, nil
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		perSrc  = make([][]sources.Record, len(f.srcs))
		errs    []error
		workers = make(chan struct{}, f.workers)
		limiter *rate.Limiter
	)
	if f.delay > 0 {
		// One shared limiter spaces out fetch starts so a burst of
		// sources does not hammer the network at once.
		limiter = rate.NewLimiter(rate.Every(f.delay), 1)
	}

	for i, src := range f.srcs {
		wg.Add(1)
		go func(i int, src sources.Source) {
			defer wg.Done()
			select {
			case workers <- struct{}{}:
				defer func() { <-workers }()
			case <-ctx.Done():
				mu.Lock()
				errs = append(errs, ctx.Err())
				mu.Unlock()
				return
			}

			records, err := f.fetchOne(ctx, src, limiter)
			mu.Lock()
			perSrc[i] = records
			if err != nil {
				errs = append(errs, err)
			}
			mu.Unlock()
		}(i, src)
	}
	wg.Wait()

	var all []sources.Record
	for _, records := range perSrc {
		all = append(all, records...)
	}
	return all, errors.Join(errs...)
}

func (f *Fetcher) fetchOne(ctx context.Context, src sources.Source, limiter *rate.Limiter) ([]sources.Record, error) {
	logger := logging.FromContext(ctx).With().
		Str("source", src.ID().String()).Logger()
	ctx = logging.WithLogger(ctx, &logger)

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	records, err := src.Fetch(ctx)
	if err != nil {
		logger.Warn().Err(err).Int("records", len(records)).
			Dur("elapsed", time.Since(start)).Msg("source fetch failed")
		return records, err
	}
	logger.Info().Int("records", len(records)).
		Dur("elapsed", time.Since(start)).Msg("source fetched")
	return records, nil
}
