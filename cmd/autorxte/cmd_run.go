package main

import (
	"github.com/spf13/cobra"

	"autorxte/internal/pipeline"
)

var runFlags struct {
	from    string
	to      string
	workers int
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the reduction stages in order, configured entirely from config",
	Long: "Run executes the stage sequence (prepare, organize, bitmask, filter,\nextract, lightcurves, spectra, pds) without prompting; every stage\nparameter comes from the resolved configuration. Use --from/--to to\nrun a contiguous slice of the sequence.",
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.from, "from", "", "First stage to run (default: prepare)")
	f.StringVar(&runFlags.to, "to", "", "Last stage to run (default: pds)")
	f.IntVar(&runFlags.workers, "workers", 0, "Parallel observations per stage (0 = from config)")
}

func runRun(cmd *cobra.Command, _ []string) error {
	r := newResolver()
	root, err := resolveRoot(r)
	if err != nil {
		return err
	}
	names, err := pipeline.Range(runFlags.from, runFlags.to)
	if err != nil {
		return err
	}
	stages := make([]pipeline.Stage, 0, len(names))
	for _, name := range names {
		s, err := stageFromConfig(name)
		if err != nil {
			return err
		}
		stages = append(stages, s)
	}

	workers := runFlags.workers
	if workers <= 0 {
		workers = appCfg.ResolveWorkers("global.default_workers")
	}
	e := newExecutor(workers)
	sums, err := e.RunSequence(cmd.Context(), root, stages)
	if err != nil {
		return err
	}
	return finishStages(sums...)
}
