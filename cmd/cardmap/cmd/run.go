package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rewardsense/cardmap"
	"github.com/rewardsense/cardmap/internal/adapters/bonusesapi"
	"github.com/rewardsense/cardmap/internal/adapters/issuerscrape"
	"github.com/rewardsense/cardmap/internal/adapters/nerdwallet"
	"github.com/rewardsense/cardmap/pkg/logging"
	"github.com/rewardsense/cardmap/pkg/sources"
)

var runFlags struct {
	out        string
	priority   []string
	provenance bool
	workers    int
	delay      time.Duration
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch all sources and build the canonical catalog",
	Long: `Run fetches every configured source, reconciles the records, and
writes the catalog, audit log, and provenance map to the output
directory.

Source endpoints come from config or environment:
  CARDMAP_SOURCES_BONUSES_URL     bonuses API export (has a default)
  CARDMAP_SOURCES_CHASE_URL       Chase scrape dump
  CARDMAP_SOURCES_DISCOVER_URL    Discover scrape dump
  CARDMAP_SOURCES_NERDWALLET_URL  NerdWallet listings dump

Sources without a configured endpoint are skipped.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.out, "out", "o", "out", "output directory for run artifacts")
	runCmd.Flags().StringSliceVar(&runFlags.priority, "priority", nil, "source priority order (default: built-in order)")
	runCmd.Flags().BoolVar(&runFlags.provenance, "provenance", false, "track field-level provenance")
	runCmd.Flags().IntVar(&runFlags.workers, "workers", 0, "max concurrent source fetches")
	runCmd.Flags().DurationVar(&runFlags.delay, "delay", 0, "minimum delay between source fetch starts")
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := logging.Default()
	ctx = logging.WithLogger(ctx, logger)

	srcs, err := buildSources()
	if err != nil {
		return err
	}
	if len(srcs) == 0 {
		return fmt.Errorf("no sources configured")
	}

	opts := []cardmap.Option{
		cardmap.WithSources(srcs...),
		cardmap.WithProvenance(runFlags.provenance),
	}
	if len(runFlags.priority) > 0 {
		order := make([]sources.ID, len(runFlags.priority))
		for i, s := range runFlags.priority {
			order[i] = sources.ID(s)
		}
		opts = append(opts, cardmap.WithPriority(order...))
	}
	if runFlags.workers > 0 {
		opts = append(opts, cardmap.WithWorkers(runFlags.workers))
	}
	if runFlags.delay > 0 {
		opts = append(opts, cardmap.WithSourceDelay(runFlags.delay))
	}

	pipeline, err := cardmap.New(opts...)
	if err != nil {
		return err
	}

	result, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}
	if err := cardmap.SaveResult(result, runFlags.out); err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, result.Summary())
	for _, rerr := range result.Errors {
		logger.Warn().Err(rerr).Msg("run completed with errors")
	}
	return nil
}

// buildSources assembles the source list from configured endpoints.
// Order here is fetch order only; merge order is the priority list.
func buildSources() ([]sources.Source, error) {
	var srcs []sources.Source

	bonuses := bonusesapi.New()
	if url := viper.GetString("sources.bonuses.url"); url != "" {
		bonuses = bonusesapi.New(bonusesapi.WithURL(url))
	}
	srcs = append(srcs, bonuses)

	for _, issuer := range []sources.ID{sources.ChaseID, sources.DiscoverID} {
		url := viper.GetString("sources." + issuer.String() + ".url")
		if url == "" {
			continue
		}
		feed, err := issuerscrape.New(issuer, issuerscrape.WithURL(url))
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, feed)
	}

	if url := viper.GetString("sources.nerdwallet.url"); url != "" {
		srcs = append(srcs, nerdwallet.New(nerdwallet.WithURL(url)))
	}
	return srcs, nil
}
