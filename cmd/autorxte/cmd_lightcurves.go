package main

import (
	"github.com/spf13/cobra"

	"autorxte/internal/pipeline"
)

var lightcurvesFlags struct {
	mode     string
	binSize  string
	channels string
	timeBins string
}

var lightcurvesCmd = &cobra.Command{
	Use:   "lightcurves",
	Short: "Generate background-subtracted light curves (pcaextlc1/pcaextlc2)",
	RunE:  runLightcurves,
}

func init() {
	f := lightcurvesCmd.Flags()
	f.StringVar(&lightcurvesFlags.mode, "type", "", "Light curve type: std1 or std2")
	f.StringVar(&lightcurvesFlags.binSize, "bin-size", "", "Standard-1 bin size in seconds")
	f.StringVar(&lightcurvesFlags.channels, "channels", "", "Standard-2 energy channels")
	f.StringVar(&lightcurvesFlags.timeBins, "time-bins", "", "Standard-2 time bin count")
}

func runLightcurves(cmd *cobra.Command, _ []string) error {
	r := newResolver()
	root, err := resolveRoot(r)
	if err != nil {
		return err
	}
	mode, err := r.Choice("Light curve type", strFlag(lightcurvesFlags.mode),
		[]string{"std1", "std2"}, "lightcurves.type", "std2")
	if err != nil {
		return err
	}

	stage := pipeline.LightcurveStage{Mode: mode}
	if mode == "std1" {
		stage.BinSize, err = r.String("Bin size (seconds)", strFlag(lightcurvesFlags.binSize),
			"lightcurves.std1.bin_size_sec", "0.125")
		if err != nil {
			return err
		}
	} else {
		stage.Channels, err = r.String("Energy channels", strFlag(lightcurvesFlags.channels),
			"lightcurves.std2.energy_channels", "ALL")
		if err != nil {
			return err
		}
		stage.TimeBins, err = r.String("Number of time bins", strFlag(lightcurvesFlags.timeBins),
			"lightcurves.std2.time_bins", "16")
		if err != nil {
			return err
		}
	}

	e := newExecutor(1)
	sum, err := e.RunStage(cmd.Context(), root, stage)
	if err != nil {
		return err
	}
	return finishStages(sum)
}
