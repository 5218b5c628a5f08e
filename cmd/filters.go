package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "Print the live search filters of finn.no",
	Run: func(cmd *cobra.Command, _ []string) {
		printFilters(cmd)
	},
}

func init() {
	rootCmd.AddCommand(filtersCmd)

	filtersCmd.Flags().BoolP("flat", "f", false, "print one option per line with its full path instead of a JSON tree")
}

func printFilters(cmd *cobra.Command) {
	ctx := context.Background()

	config, log := setup()
	source, closeSource := newSource(ctx, config, log)
	defer closeSource()

	set, err := source.Filters(ctx)
	if err != nil {
		log.Fatal("loading filters", zap.Error(err))
	}

	if flat, _ := cmd.Flags().GetBool("flat"); flat {
		names := set.Names()
		sort.Strings(names)
		for _, name := range names {
			for _, option := range set.Flatten(name) {
				fmt.Printf("%s\t%s\t%s\n", name, option.Value, option.Label)
			}
		}
		return
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(set); err != nil {
		log.Fatal("printing filters", zap.Error(err))
	}
}
