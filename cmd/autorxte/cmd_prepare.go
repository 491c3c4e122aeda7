package main

import (
	"github.com/spf13/cobra"

	"autorxte/internal/pipeline"
)

var prepareFlags struct {
	workers int
}

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Run pcaprepobsid over every raw observation directory",
	RunE:  runPrepare,
}

func init() {
	prepareCmd.Flags().IntVar(&prepareFlags.workers, "workers", 0, "Parallel observations (0 = from config)")
}

func runPrepare(cmd *cobra.Command, _ []string) error {
	r := newResolver()
	root, err := resolveRoot(r)
	if err != nil {
		return err
	}
	workers, err := r.Int("Parallel workers", intFlag(prepareFlags.workers), "", appCfg.ResolveWorkers("preparation.workers"))
	if err != nil {
		return err
	}

	e := newExecutor(workers)
	sum, err := e.RunStage(cmd.Context(), root, pipeline.PrepareStage{})
	if err != nil {
		return err
	}
	return finishStages(sum)
}
