package pipeline

import (
	"context"
	"os"

	"autorxte/internal/heasoft"
)

// PrepareStage runs pcaprepobsid over each raw observation directory,
// producing the <obsid>-results directory the later stages work in.
type PrepareStage struct{}

func (PrepareStage) Name() string    { return "prepare" }
func (PrepareStage) Tools() []string { return []string{"pcaprepobsid"} }

func (PrepareStage) Done(d ObsDir) bool {
	fi, err := os.Stat(d.ResultsDir)
	return err == nil && fi.IsDir()
}

func (PrepareStage) Ready(d ObsDir) error {
	if d.RawDir == "" {
		return &PreconditionError{Missing: "raw observation directory"}
	}
	if fi, err := os.Stat(d.RawDir); err != nil || !fi.IsDir() {
		return &PreconditionError{Missing: "raw observation directory"}
	}
	return nil
}

func (PrepareStage) Execute(ctx context.Context, r heasoft.Runner, d ObsDir) error {
	return r.Run(ctx, "", "pcaprepobsid", nil,
		"indir="+d.RawDir, "outdir="+d.ResultsDir)
}
