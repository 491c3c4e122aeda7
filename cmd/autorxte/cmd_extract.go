package main

import (
	"github.com/spf13/cobra"

	"autorxte/internal/pipeline"
)

var extractFlags struct {
	prefix  string
	token   string
	bitmask string
	timeBin string
	workers int
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract binned event light curves with seextrct",
	RunE:  runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.StringVar(&extractFlags.prefix, "prefix", "", "Output product base name (default from config)")
	f.StringVar(&extractFlags.token, "token", "", "Event list token: e or xenon")
	f.StringVar(&extractFlags.bitmask, "bitmask", "", "Bitmask filename inside Analysis")
	f.StringVar(&extractFlags.timeBin, "time-bin", "", "Light curve bin width in seconds")
	f.IntVar(&extractFlags.workers, "workers", 0, "Parallel observations (0 = from config)")
}

func runExtract(cmd *cobra.Command, _ []string) error {
	r := newResolver()
	root, err := resolveRoot(r)
	if err != nil {
		return err
	}
	token, err := r.Choice("Event token", strFlag(extractFlags.token),
		[]string{"e", "xenon"}, "extraction.token", "e")
	if err != nil {
		return err
	}
	prefix, err := r.String("Base event name", strFlag(extractFlags.prefix), "extraction.prefix", "event")
	if err != nil {
		return err
	}
	bitmask, err := r.String("Bitmask filename", strFlag(extractFlags.bitmask), "extraction.bitmask", "bitmask_event")
	if err != nil {
		return err
	}
	timeBin, err := r.String("Time bin (s)", strFlag(extractFlags.timeBin), "extraction.time_bin", "0.004")
	if err != nil {
		return err
	}
	workers, err := r.Int("Workers", intFlag(extractFlags.workers), "", appCfg.ResolveWorkers("extraction.workers"))
	if err != nil {
		return err
	}

	e := newExecutor(workers)
	sum, err := e.RunStage(cmd.Context(), root, pipeline.ExtractStage{
		Prefix:      prefix,
		Token:       token,
		BitmaskName: bitmask,
		TimeBin:     timeBin,
	})
	if err != nil {
		return err
	}
	return finishStages(sum)
}
