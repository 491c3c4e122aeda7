package main

import (
	"errors"

	"github.com/spf13/cobra"

	"autorxte/internal/pipeline"
)

var errBitmaskRequired = errors.New("a bitmask file is required (--bitmask flag or bitmasks.path in config)")

var bitmaskFlags struct {
	bitmask   string
	overwrite bool
}

var bitmaskCmd = &cobra.Command{
	Use:   "bitmask",
	Short: "Distribute a channel bitmask file into every Analysis directory",
	RunE:  runBitmask,
}

func init() {
	f := bitmaskCmd.Flags()
	f.StringVar(&bitmaskFlags.bitmask, "bitmask", "", "Bitmask file to distribute")
	f.BoolVar(&bitmaskFlags.overwrite, "overwrite", false, "Replace existing copies")
}

func runBitmask(cmd *cobra.Command, _ []string) error {
	r := newResolver()
	bitmask, err := r.Path("Bitmask file", strFlag(bitmaskFlags.bitmask), "bitmasks.path", "")
	if err != nil {
		return err
	}
	if bitmask == "" {
		return errBitmaskRequired
	}
	root, err := resolveRoot(r)
	if err != nil {
		return err
	}
	overwrite := bitmaskFlags.overwrite
	if !cmd.Flags().Changed("overwrite") {
		overwrite, err = r.Bool("Overwrite existing?", nil, "bitmasks.overwrite", false)
		if err != nil {
			return err
		}
	}

	e := newExecutor(1)
	sum, err := e.RunStage(cmd.Context(), root, pipeline.BitmaskStage{
		BitmaskPath: bitmask,
		Overwrite:   overwrite,
	})
	if err != nil {
		return err
	}
	return finishStages(sum)
}
