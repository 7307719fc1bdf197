package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rewardsense/cardmap/pkg/normalize"
)

var tablesCmd = &cobra.Command{
	Use:   "tables [issuers|networks|currencies|categories]",
	Short: "Show the normalization tables",
	Long: `Tables prints the raw-to-canonical label mappings the normalizer
applies to incoming records. With no argument every table is printed.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"issuers", "networks", "currencies", "categories"},
	RunE:      runTables,
}

func init() {
	rootCmd.AddCommand(tablesCmd)
}

func runTables(_ *cobra.Command, args []string) error {
	tables, err := normalize.Default()
	if err != nil {
		return err
	}

	all := map[string]normalize.Table{
		"issuers":    tables.Issuers,
		"networks":   tables.Networks,
		"currencies": tables.Currencies,
		"categories": tables.Categories,
	}

	names := []string{"issuers", "networks", "currencies", "categories"}
	if len(args) == 1 {
		if _, ok := all[args[0]]; !ok {
			return fmt.Errorf("unknown table %q", args[0])
		}
		names = args
	}

	title := cases.Title(language.English)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(w, "%s\t(%d entries)\n", title.String(name), len(all[name]))
		keys := make([]string, 0, len(all[name]))
		for k := range all[name] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s\t-> %s\n", k, all[name][k])
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}
