package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	domain "github.com/bryanwahyu/lungscan/internal/domain/scans"
)

var reportFlags struct {
	output string
}

var reportCmd = &cobra.Command{
	Use:   "report <id>",
	Short: "Render the PDF report for a record",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportFlags.output, "output", "o", "", "output file (default report_<id>.pdf)")
}

func runReport(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id < 1 {
		return fmt.Errorf("invalid record id %q", args[0])
	}

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	rec, err := app.Scans.Get(cmd.Context(), domain.RecordID(id))
	if err != nil {
		return err
	}
	pdf, err := app.Reports.Render(cmd.Context(), rec)
	if err != nil {
		return err
	}

	path := reportFlags.output
	if path == "" {
		path = fmt.Sprintf("report_%d.pdf", id)
	}
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", path, len(pdf))
	return nil
}
