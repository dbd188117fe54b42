package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"hacktown/internal/schedule"
	"hacktown/internal/source"
)

func newDumpCmd(flags *rootFlags) *cobra.Command {
	var (
		query  schedule.Query
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Fetch the schedule once and print the normalized events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			ds, err := schedule.NewPipeline(cfg, source.New(cfg)).Load(cmd.Context())
			if err != nil {
				return err
			}
			events := ds.Filter(query)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(events)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DIA\tINÍCIO\tFIM\tEVENTO\tLOCAL\tTIPO")
			for _, e := range events {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", e.Day, e.Start, e.End, e.Title, e.Venue, e.Category)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d of %d events\n", len(events), ds.Len())
			return err
		},
	}
	cmd.Flags().StringVar(&query.Day, "day", "", "only events of this day")
	cmd.Flags().StringVar(&query.Time, "time", "", "only events starting at this time (needs --day)")
	cmd.Flags().StringVarP(&query.Keyword, "query", "q", "", "keyword over title, description, venue and category")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}
