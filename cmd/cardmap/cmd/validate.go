package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/agentstation/utc"
	"github.com/spf13/cobra"

	"github.com/rewardsense/cardmap/internal/adapters/bonusesapi"
	"github.com/rewardsense/cardmap/internal/adapters/issuerscrape"
	"github.com/rewardsense/cardmap/internal/adapters/nerdwallet"
	"github.com/rewardsense/cardmap/pkg/normalize"
	"github.com/rewardsense/cardmap/pkg/sources"
	"github.com/rewardsense/cardmap/pkg/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate <source> <file>",
	Short: "Validate a local source dump without fetching",
	Long: `Validate parses a local dump file as the given source, runs every
record through normalization and validation, and prints what would be
rejected in a real run. Useful for checking a scrape job's output
before publishing it.`,
	Args: cobra.ExactArgs(2),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, args []string) error {
	id := sources.ID(args[0])
	if !id.IsValid() {
		return fmt.Errorf("unknown source %q (known: %v)", args[0], sources.IDs())
	}

	f, err := os.Open(args[1])
	if err != nil {
		return err
	}
	defer f.Close()

	var records []sources.Record
	var parseErr error
	switch id {
	case sources.CreditCardBonusesID:
		records, parseErr = bonusesapi.Parse(f, utc.Now())
	case sources.ChaseID, sources.DiscoverID:
		records, parseErr = issuerscrape.Parse(id, f, utc.Now())
	case sources.NerdWalletID:
		records, parseErr = nerdwallet.Parse(f, utc.Now())
	}
	if parseErr != nil && len(records) == 0 {
		return parseErr
	}

	tables, err := normalize.Default()
	if err != nil {
		return err
	}
	normalizer := normalize.New(tables)
	validator := validate.New(tables)

	var valid, rejected, structural int
	for _, rec := range records {
		draft, err := normalizer.Draft(rec)
		if err != nil {
			structural++
			fmt.Printf("STRUCTURAL %s: %v\n", rec.Key(), err)
			continue
		}
		res, err := validator.Validate(draft)
		if err != nil {
			structural++
			fmt.Printf("STRUCTURAL %s: %v\n", rec.Key(), err)
			continue
		}
		if res.Valid() {
			valid++
			continue
		}
		rejected++
		fmt.Printf("REJECT %s: %s\n", draft.Key, strings.Join(res.Rules(), ", "))
	}

	fmt.Printf("\n%d records: %d valid, %d rejected, %d structural\n",
		len(records), valid, rejected, structural)
	if parseErr != nil {
		fmt.Printf("parse errors: %v\n", parseErr)
	}
	return nil
}
