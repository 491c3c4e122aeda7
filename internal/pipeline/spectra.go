package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"autorxte/internal/heasoft"
)

// SpectraStage runs pcaextspect2, which produces the source spectrum,
// the background spectrum, and the response matrix in one pass.
type SpectraStage struct {
	// Channels selects the energy channels ("ALL" or a range).
	Channels string
}

func (SpectraStage) Name() string    { return "spectra" }
func (SpectraStage) Tools() []string { return []string{"pcaextspect2"} }

func (SpectraStage) Done(d ObsDir) bool {
	_, err := os.Stat(filepath.Join(d.AnalysisDir(), "src.pha"))
	return err == nil
}

func (SpectraStage) Ready(d ObsDir) error {
	for _, f := range []string{"FP_dtstd2.lis", "FP_dtbkg2.lis", filterListFile} {
		if _, err := os.Stat(filepath.Join(d.ResultsDir, f)); err != nil {
			return &PreconditionError{Missing: f + " in " + d.ResultsDir}
		}
	}
	if _, err := os.Stat(filepath.Join(d.AnalysisDir(), GTIFile)); err != nil {
		return &PreconditionError{Missing: GTIFile + " in " + d.AnalysisDir()}
	}
	return nil
}

func (s SpectraStage) Execute(ctx context.Context, r heasoft.Runner, d ObsDir) error {
	analysis := d.AnalysisDir()
	if err := os.MkdirAll(analysis, 0755); err != nil {
		return fmt.Errorf("create analysis dir: %w", err)
	}
	script := []string{
		"@" + filepath.Join(d.ResultsDir, "FP_dtstd2.lis"),
		"@" + filepath.Join(d.ResultsDir, "FP_dtbkg2.lis"),
		filepath.Join(analysis, "src.pha"),
		filepath.Join(analysis, "bkg.pha"),
		filepath.Join(analysis, GTIFile),
		"2",
		s.Channels,
		filepath.Join(analysis, "rsp.pha"),
		"@" + filepath.Join(d.ResultsDir, filterListFile),
	}
	return r.Run(ctx, d.ResultsDir, "pcaextspect2", script)
}
