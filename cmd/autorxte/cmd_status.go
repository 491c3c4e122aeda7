package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"autorxte/internal/format"
)

var statusFlags struct {
	limit    int
	markdown bool
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recorded download batches and stage runs",
	RunE:  runStatus,
}

func init() {
	f := statusCmd.Flags()
	f.IntVar(&statusFlags.limit, "limit", 20, "Rows per table")
	f.BoolVar(&statusFlags.markdown, "markdown", false, "Render Markdown tables")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer st.Close()

	mode := format.ASCII
	if statusFlags.markdown {
		mode = format.Markdown
	}

	batches, err := st.ListBatches(statusFlags.limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "Download batches:")
	fmt.Fprintln(os.Stdout, format.BatchTable(mode, batches))

	runs, err := st.ListStageRuns(statusFlags.limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "\nStage runs:")
	fmt.Fprintln(os.Stdout, format.StageRunTable(mode, runs))
	return nil
}
