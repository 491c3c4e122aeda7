package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"autorxte/internal/format"
	"autorxte/internal/heasoft"
	"autorxte/internal/logging"
	"autorxte/internal/params"
	"autorxte/internal/pipeline"
	"autorxte/internal/store"
)

// newResolver builds the parameter resolver for one command. Prompting
// is enabled only when the operator asked for it and stdin is a
// terminal, so piped invocations never hang.
func newResolver() *params.Resolver {
	mode := params.Interactive
	if rootFlags.noInteractive || !params.StdinIsTerminal() {
		mode = params.Scripted
	}
	return &params.Resolver{Mode: mode, Cfg: appCfg, Prompt: params.NewStdPrompter()}
}

// resolveRoot resolves the observation root directory: --directory flag,
// then a prompt (interactive), then the current directory.
func resolveRoot(r *params.Resolver) (string, error) {
	var explicit *string
	if rootFlags.directory != "" {
		explicit = &rootFlags.directory
	}
	return r.Path("Root directory", explicit, "", ".")
}

// newExecutor builds a stage executor with the given parallelism.
func newExecutor(workers int) *pipeline.Executor {
	return &pipeline.Executor{
		Runner:       &heasoft.ExecRunner{},
		SkipExisting: appCfg.GetBool("global.skip_existing", true),
		Workers:      workers,
	}
}

// openStore opens the per-workspace run-history DB. History is
// best-effort: commands log and continue when it is unavailable.
func openStore() (store.Store, error) {
	return store.Open(store.DefaultDBPath)
}

// recordStageRuns persists per-observation outcomes. Recording is
// best-effort: a row that cannot be written is logged and the rest of
// the run is still recorded.
func recordStageRuns(st store.Store, runID string, sums ...*pipeline.StageSummary) {
	logger := logging.New("cli")
	for _, sum := range sums {
		for _, res := range sum.Results {
			_, err := st.RecordStageRun(&store.StageRun{
				RunUUID: runID,
				Stage:   sum.Stage,
				Dir:     res.Dir.ObsID,
				Outcome: string(res.Outcome),
				Reason:  res.Reason,
			})
			if err != nil {
				logger.Warn("stage run not recorded",
					"stage", sum.Stage, "obsid", res.Dir.ObsID, "error", err)
				continue
			}
		}
	}
}

// finishStages records the run, prints the summary table, and turns
// failures and unattempted observations into a non-zero exit.
func finishStages(sums ...*pipeline.StageSummary) error {
	if st, err := openStore(); err != nil {
		logging.New("cli").Warn("run history unavailable", "error", err)
	} else {
		recordStageRuns(st, uuid.NewString(), sums...)
		st.Close()
	}
	fmt.Fprintln(os.Stdout, format.StageSummaryTable(format.ASCII, sums))
	var failed, notReady int
	for _, s := range sums {
		failed += s.Failed()
		notReady += s.PreconditionFailed()
	}
	switch {
	case failed > 0 && notReady > 0:
		return fmt.Errorf("%d observation(s) failed, %d missing inputs", failed, notReady)
	case failed > 0:
		return fmt.Errorf("%d observation(s) failed", failed)
	case notReady > 0:
		return fmt.Errorf("%d observation(s) missing inputs", notReady)
	}
	return nil
}

// stageFromConfig builds a stage entirely from the resolved
// configuration, used by `run` where per-stage prompting would be
// unmanageable.
func stageFromConfig(name string) (pipeline.Stage, error) {
	switch name {
	case "prepare":
		return pipeline.PrepareStage{}, nil
	case "organize":
		return pipeline.OrganizeStage{Copy: !appCfg.GetBool("organization.move_mode", true)}, nil
	case "bitmask":
		path := appCfg.GetString("bitmasks.path", "")
		if path == "" {
			return nil, fmt.Errorf("bitmask stage needs bitmasks.path in the configuration (or use the bitmask command with --bitmask)")
		}
		return pipeline.BitmaskStage{
			BitmaskPath: path,
			Overwrite:   appCfg.GetBool("bitmasks.overwrite", false),
		}, nil
	case "filter":
		return pipeline.FilterStage{Expression: appCfg.FilterExpression()}, nil
	case "extract":
		return pipeline.ExtractStage{
			Prefix:      appCfg.GetString("extraction.prefix", "event"),
			Token:       appCfg.GetString("extraction.token", "e"),
			BitmaskName: appCfg.GetString("extraction.bitmask", "bitmask_event"),
			TimeBin:     appCfg.GetString("extraction.time_bin", "0.004"),
		}, nil
	case "lightcurves":
		return pipeline.LightcurveStage{
			Mode:     appCfg.GetString("lightcurves.type", "std2"),
			BinSize:  appCfg.GetString("lightcurves.std1.bin_size_sec", "0.125"),
			Channels: appCfg.GetString("lightcurves.std2.energy_channels", "ALL"),
			TimeBins: appCfg.GetString("lightcurves.std2.time_bins", "16"),
		}, nil
	case "spectra":
		return pipeline.SpectraStage{Channels: appCfg.GetString("spectra.energy_channels", "ALL")}, nil
	case "pds":
		return pipeline.PDSStage{
			LCFile:    appCfg.GetString("pds.input_lightcurve", "event.lc"),
			Binning:   appCfg.GetString("pds.binning", "-1"),
			Rebin:     appCfg.GetString("pds.rebin", "-1.03"),
			OutputPNG: appCfg.GetString("pds.output_png", "pds.png/png"),
		}, nil
	}
	return nil, fmt.Errorf("unknown stage %q", name)
}

// strFlag returns a pointer to s when the flag was given, nil when not,
// matching the resolver's explicit-vs-absent contract.
func strFlag(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func intFlag(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
