package main

import (
	"github.com/spf13/cobra"

	"autorxte/internal/pipeline"
)

var organizeFlags struct {
	copyMode bool
}

var organizeCmd = &cobra.Command{
	Use:   "organize",
	Short: "Move each observation's FITS file list into its Analysis directory",
	RunE:  runOrganize,
}

func init() {
	organizeCmd.Flags().BoolVar(&organizeFlags.copyMode, "copy", false, "Copy instead of move")
}

func runOrganize(cmd *cobra.Command, _ []string) error {
	r := newResolver()
	root, err := resolveRoot(r)
	if err != nil {
		return err
	}
	copyMode := organizeFlags.copyMode
	if !cmd.Flags().Changed("copy") {
		move, err := r.Bool("Move files (vs copy)?", nil, "organization.move_mode", true)
		if err != nil {
			return err
		}
		copyMode = !move
	}

	e := newExecutor(1)
	sum, err := e.RunStage(cmd.Context(), root, pipeline.OrganizeStage{Copy: copyMode})
	if err != nil {
		return err
	}
	return finishStages(sum)
}
