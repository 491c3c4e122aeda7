package main

import (
	"github.com/spf13/cobra"

	"autorxte/internal/pipeline"
)

var spectraFlags struct {
	channels string
}

var spectraCmd = &cobra.Command{
	Use:   "spectra",
	Short: "Extract source/background spectra and responses with pcaextspect2",
	RunE:  runSpectra,
}

func init() {
	spectraCmd.Flags().StringVar(&spectraFlags.channels, "channels", "", "Energy channels (default from config)")
}

func runSpectra(cmd *cobra.Command, _ []string) error {
	r := newResolver()
	root, err := resolveRoot(r)
	if err != nil {
		return err
	}
	channels, err := r.String("Energy channels", strFlag(spectraFlags.channels),
		"spectra.energy_channels", "ALL")
	if err != nil {
		return err
	}

	e := newExecutor(1)
	sum, err := e.RunStage(cmd.Context(), root, pipeline.SpectraStage{Channels: channels})
	if err != nil {
		return err
	}
	return finishStages(sum)
}
