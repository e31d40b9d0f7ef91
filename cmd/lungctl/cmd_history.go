package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	domain "github.com/bryanwahyu/lungscan/internal/domain/scans"
)

var historyFlags struct {
	name string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List all records, or one patient's history with --name",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyFlags.name, "name", "", "patient name")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	out := cmd.OutOrStdout()
	if historyFlags.name != "" {
		entries, err := app.Scans.History(cmd.Context(), historyFlags.name)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintf(out, "No previous records for %s.\n", historyFlags.name)
			return nil
		}
		for _, e := range entries {
			fmt.Fprintln(out, e.Line())
		}
		return nil
	}

	records, err := app.Scans.ListAll(cmd.Context())
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDATE\tRESULT\tCONFIDENCE")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.2f\n", r.ID, r.Name, r.Timestamp.Format(domain.HistoryDateLayout), r.Result, r.Confidence)
	}
	return tw.Flush()
}
