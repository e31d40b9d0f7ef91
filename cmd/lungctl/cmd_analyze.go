package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	appscans "github.com/bryanwahyu/lungscan/internal/application/scans"
)

var analyzeFlags struct {
	name string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Run the full analysis pipeline on an image and print the JSON result",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFlags.name, "name", "", "patient name (default Unknown)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	res, err := app.Scans.Analyze(cmd.Context(), appscans.AnalyzeCommand{
		Name:     analyzeFlags.name,
		Filename: filepath.Base(args[0]),
		Data:     data,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
