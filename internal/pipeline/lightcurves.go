package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"autorxte/internal/heasoft"
)

// LightcurveStage generates background-subtracted light curves from
// the standard-mode data products: pcaextlc1 for Standard-1 (full
// band, fine time resolution), pcaextlc2 for Standard-2 (channel
// selectable).
type LightcurveStage struct {
	// Mode is "std1" or "std2".
	Mode string
	// BinSize is the Standard-1 bin width in seconds.
	BinSize string
	// Channels selects Standard-2 energy channels ("ALL" or a range).
	Channels string
	// TimeBins is the Standard-2 bin count per interval.
	TimeBins string
}

func (LightcurveStage) Name() string { return "lightcurves" }

func (s LightcurveStage) Tools() []string {
	if s.Mode == "std1" {
		return []string{"pcaextlc1"}
	}
	return []string{"pcaextlc2"}
}

func (s LightcurveStage) outFile() string {
	if s.Mode == "std1" {
		return "std1.lc"
	}
	return "light.lc"
}

func (s LightcurveStage) Done(d ObsDir) bool {
	_, err := os.Stat(filepath.Join(d.AnalysisDir(), s.outFile()))
	return err == nil
}

func (s LightcurveStage) Ready(d ObsDir) error {
	list := "FP_dtstd2.lis"
	if s.Mode == "std1" {
		list = "FP_dtstd1.lis"
	}
	for _, f := range []string{list, "FP_dtbkg2.lis"} {
		if _, err := os.Stat(filepath.Join(d.ResultsDir, f)); err != nil {
			return &PreconditionError{Missing: f + " in " + d.ResultsDir}
		}
	}
	if _, err := os.Stat(filepath.Join(d.AnalysisDir(), GTIFile)); err != nil {
		return &PreconditionError{Missing: GTIFile + " in " + d.AnalysisDir()}
	}
	return nil
}

func (s LightcurveStage) Execute(ctx context.Context, r heasoft.Runner, d ObsDir) error {
	analysis := d.AnalysisDir()
	if err := os.MkdirAll(analysis, 0755); err != nil {
		return fmt.Errorf("create analysis dir: %w", err)
	}
	if s.Mode == "std1" {
		script := []string{
			"@" + filepath.Join(d.ResultsDir, "FP_dtstd1.lis"),
			"@" + filepath.Join(d.ResultsDir, "FP_dtbkg2.lis"),
			filepath.Join(analysis, "std1.lc"),
			filepath.Join(analysis, GTIFile),
			"2",
			s.BinSize,
		}
		return r.Run(ctx, d.ResultsDir, "pcaextlc1", script)
	}
	script := []string{
		"@" + filepath.Join(d.ResultsDir, "FP_dtstd2.lis"),
		"@" + filepath.Join(d.ResultsDir, "FP_dtbkg2.lis"),
		filepath.Join(analysis, "light.lc"),
		filepath.Join(analysis, GTIFile),
		"2",
		s.Channels,
		s.TimeBins,
	}
	return r.Run(ctx, d.ResultsDir, "pcaextlc2", script)
}
