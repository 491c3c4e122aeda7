package main

import (
	"github.com/spf13/cobra"

	"autorxte/internal/pipeline"
)

var filterFlags struct {
	expression string
}

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Create good-time-interval files with maketime",
	RunE:  runFilter,
}

func init() {
	filterCmd.Flags().StringVar(&filterFlags.expression, "filter", "", "GTI selection expression (default from config)")
}

func runFilter(cmd *cobra.Command, _ []string) error {
	r := newResolver()
	root, err := resolveRoot(r)
	if err != nil {
		return err
	}
	expr, err := r.String("Filter expression", strFlag(filterFlags.expression),
		"filtering.filter_expression", appCfg.FilterExpression())
	if err != nil {
		return err
	}

	e := newExecutor(1)
	sum, err := e.RunStage(cmd.Context(), root, pipeline.FilterStage{Expression: expr})
	if err != nil {
		return err
	}
	return finishStages(sum)
}
