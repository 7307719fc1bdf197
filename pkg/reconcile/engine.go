// Package reconcile turns raw per-source records into a canonical card
// catalog. The pipeline is fixed: normalize every record into a draft,
// validate the drafts, cluster duplicates, then merge each cluster
// field by field through a source-priority strategy. Failures at each
// stage land in the audit log instead of aborting the run.
package reconcile

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rewardsense/cardmap/pkg/audit"
	"github.com/rewardsense/cardmap/pkg/cards"
	"github.com/rewardsense/cardmap/pkg/cluster"
	"github.com/rewardsense/cardmap/pkg/errors"
	"github.com/rewardsense/cardmap/pkg/logging"
	"github.com/rewardsense/cardmap/pkg/normalize"
	"github.com/rewardsense/cardmap/pkg/provenance"
	"github.com/rewardsense/cardmap/pkg/sources"
	"github.com/rewardsense/cardmap/pkg/validate"
)

// options holds engine configuration assembled by Option functions.
type options struct {
	tables          *normalize.Tables
	priority        []sources.ID
	clusterOpts     []cluster.Option
	trackProvenance bool
}

// Option configures an Engine.
type Option func(*options) error

// WithTables overrides the embedded normalization tables.
func WithTables(t *normalize.Tables) Option {
	return func(o *options) error {
		if t == nil {
			return errors.New("tables cannot be nil")
		}
		o.tables = t
		return nil
	}
}

// WithPriority sets the source priority order used for every field
// resolution. IDs must be known sources.
func WithPriority(order ...sources.ID) Option {
	return func(o *options) error {
		for _, id := range order {
			if !id.IsValid() {
				return errors.New("unknown source in priority order: " + string(id))
			}
		}
		o.priority = order
		return nil
	}
}

// WithClusterOptions forwards options to the duplicate cluster builder.
func WithClusterOptions(opts ...cluster.Option) Option {
	return func(o *options) error {
		o.clusterOpts = append(o.clusterOpts, opts...)
		return nil
	}
}

// WithProvenance enables field-level provenance tracking.
func WithProvenance(enabled bool) Option {
	return func(o *options) error {
		o.trackProvenance = enabled
		return nil
	}
}

// Engine runs the reconciliation pipeline.
type Engine struct {
	normalizer *normalize.Normalizer
	validator  *validate.Validator
	clusterer  *cluster.Builder
	strategy   *SourceOrderStrategy
	tracker    provenance.Tracker
}

// New creates an engine. With no options it uses the embedded tables,
// the default source priority, and default clustering thresholds.
func New(opts ...Option) (*Engine, error) {
	o := &options{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	tables := o.tables
	if tables == nil {
		var err error
		tables, err = normalize.Default()
		if err != nil {
			return nil, err
		}
	}
	return &Engine{
		normalizer: normalize.New(tables),
		validator:  validate.New(tables),
		clusterer:  cluster.NewBuilder(o.clusterOpts...),
		strategy:   NewSourceOrderStrategy(o.priority),
		tracker:    provenance.NewTracker(o.trackProvenance),
	}, nil
}

// Priority returns the source order the engine resolves fields with.
func (e *Engine) Priority() []sources.ID { return e.strategy.Priority() }

// Reconcile runs the full pipeline over the given records. The returned
// result always carries a catalog and an audit log; the error is
// non-nil only for failures that invalidate the whole run, such as a
// canceled context.
func (e *Engine) Reconcile(ctx context.Context, records []sources.Record) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx)
	result := NewResult()
	result.Audit.Counters.RecordsIn = len(records)
	seen := make(map[sources.ID]bool)
	for _, rec := range records {
		if id := rec.Source(); !seen[id] {
			seen[id] = true
			result.Metadata.Sources = append(result.Metadata.Sources, id)
		}
	}

	drafts := e.normalizeAll(ctx, records, result)
	result.Audit.Counters.Normalized = len(drafts)

	valid := e.validateAll(drafts, result)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clusters := e.clusterer.Clusters(valid)
	result.Audit.Counters.Clusters = len(clusters)
	logger.Debug().
		Int("records", len(records)).
		Int("drafts", len(drafts)).
		Int("valid", len(valid)).
		Int("clusters", len(clusters)).
		Msg("clustered drafts")

	merger := NewMerger(e.strategy, e.tracker)
	for _, cl := range clusters {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.mergeCluster(merger, cl, result, logger)
	}

	result.Provenance = e.tracker.Map()
	result.Audit.Counters.CatalogCards = result.Catalog.Len()
	result.Finalize()
	return result, nil
}

// normalizeAll converts records into drafts, auditing structural
// failures and normalization gaps along the way.
func (e *Engine) normalizeAll(ctx context.Context, records []sources.Record, result *Result) []cards.Draft {
	logger := logging.FromContext(ctx)
	drafts := make([]cards.Draft, 0, len(records))
	for _, rec := range records {
		d, err := e.normalizer.Draft(rec)
		if err != nil {
			var serr *errors.StructuralError
			if errors.As(err, &serr) {
				result.Audit.AddStructural(audit.Structural{
					Source:  serr.Source,
					Key:     serr.Key,
					Message: serr.Message,
				})
			} else {
				result.Audit.AddStructural(audit.Structural{Message: err.Error()})
			}
			result.AddWarning(err.Error())
			logger.Warn().Err(err).Msg("record failed normalization")
			continue
		}
		for _, flag := range d.Unnormalized {
			result.Audit.AddGap(audit.Gap{
				Source: d.Source,
				Key:    d.Key,
				Field:  flag.Field,
				Raw:    flag.Raw,
			})
		}
		drafts = append(drafts, d)
	}
	return drafts
}

// validateAll filters drafts through the validator, auditing each
// rejection with the rules it failed.
func (e *Engine) validateAll(drafts []cards.Draft, result *Result) []cards.Draft {
	valid := make([]cards.Draft, 0, len(drafts))
	for i := range drafts {
		res, err := e.validator.Validate(drafts[i])
		if err != nil {
			result.AddWarning(err.Error())
			continue
		}
		if res.Valid() {
			valid = append(valid, drafts[i])
			continue
		}
		rej := audit.Rejection{
			Source: drafts[i].Source,
			Key:    drafts[i].Key,
			Rules:  res.Rules(),
		}
		for _, reason := range res.Reasons {
			rej.Details = append(rej.Details, audit.Detail{
				Field:   reason.Field,
				Value:   reason.Value,
				Message: reason.Message,
			})
		}
		result.Audit.AddRejection(rej)
	}
	return valid
}

// mergeCluster merges one cluster and adds the card to the catalog.
// A merged card that fails validation, or whose ID is already taken,
// becomes a merge conflict scoped to its cluster.
func (e *Engine) mergeCluster(merger *Merger, cl cluster.Cluster, result *Result, logger *zerolog.Logger) {
	card := merger.Merge(cl)
	ids := contributingSources(cl.Drafts)

	res, err := e.validator.Validate(cards.Draft{
		Source:    ids[0],
		Key:       string(card.ID),
		ScrapedAt: card.ScrapedAt,
		Card:      card,
	})
	if err == nil && !res.Valid() {
		result.Audit.AddConflict(audit.Conflict{
			CardID:  card.ID.String(),
			Sources: ids,
			Reasons: res.Rules(),
		})
		srcNames := make([]string, len(ids))
		for i, id := range ids {
			srcNames[i] = id.String()
		}
		result.AddError(&errors.MergeConflictError{
			CardID:  card.ID.String(),
			Sources: srcNames,
			Reasons: res.Rules(),
		})
		logger.Warn().Str("card", card.ID.String()).Strs("rules", res.Rules()).
			Msg("merged card failed validation")
		return
	}

	if err := result.Catalog.Add(card); err != nil {
		if errors.Is(err, errors.ErrAlreadyExists) {
			result.Audit.AddConflict(audit.Conflict{
				CardID:  card.ID.String(),
				Sources: ids,
				Reasons: []string{"duplicate card id across clusters"},
			})
			result.AddWarning("duplicate card id: " + card.ID.String())
			return
		}
		result.AddError(err)
	}
}
