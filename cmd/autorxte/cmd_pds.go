package main

import (
	"github.com/spf13/cobra"

	"autorxte/internal/pipeline"
)

var pdsFlags struct {
	lcFile    string
	binning   string
	rebin     string
	outputPNG string
	workers   int
}

var pdsCmd = &cobra.Command{
	Use:   "pds",
	Short: "Compute power density spectra (powspec, fplot, flx2xsp)",
	RunE:  runPDS,
}

func init() {
	f := pdsCmd.Flags()
	f.StringVar(&pdsFlags.lcFile, "lc-file", "", "Input light curve inside Analysis")
	f.StringVar(&pdsFlags.binning, "binning", "", "powspec time binning (-1 = auto)")
	f.StringVar(&pdsFlags.rebin, "rebin", "", "Geometric rebin factor")
	f.StringVar(&pdsFlags.outputPNG, "output-png", "", "Hardcopy device string")
	f.IntVar(&pdsFlags.workers, "workers", 0, "Parallel observations (0 = from config)")
}

func runPDS(cmd *cobra.Command, _ []string) error {
	r := newResolver()
	root, err := resolveRoot(r)
	if err != nil {
		return err
	}
	lcFile, err := r.String("Lightcurve filename", strFlag(pdsFlags.lcFile), "pds.input_lightcurve", "event.lc")
	if err != nil {
		return err
	}
	binning, err := r.String("Binning (-1 for auto)", strFlag(pdsFlags.binning), "pds.binning", "-1")
	if err != nil {
		return err
	}
	rebin, err := r.String("Rebin factor", strFlag(pdsFlags.rebin), "pds.rebin", "-1.03")
	if err != nil {
		return err
	}
	outputPNG, err := r.String("Output PNG name", strFlag(pdsFlags.outputPNG), "pds.output_png", "pds.png/png")
	if err != nil {
		return err
	}
	workers, err := r.Int("Workers", intFlag(pdsFlags.workers), "", appCfg.ResolveWorkers("pds.workers"))
	if err != nil {
		return err
	}

	e := newExecutor(workers)
	sum, err := e.RunStage(cmd.Context(), root, pipeline.PDSStage{
		LCFile:    lcFile,
		Binning:   binning,
		Rebin:     rebin,
		OutputPNG: outputPNG,
	})
	if err != nil {
		return err
	}
	return finishStages(sum)
}
