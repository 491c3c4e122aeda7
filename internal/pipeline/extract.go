package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"autorxte/internal/heasoft"
)

// ExtractStage runs seextrct to turn each observation's event files
// into a binned light curve, restricted to good time and to the
// channels selected by the bitmask.
type ExtractStage struct {
	// Prefix names the output products (<prefix>.lc).
	Prefix string
	// Token picks the event file list: "e" reads the standard FITS
	// list, "xenon" reads the xenon-mode list.
	Token string
	// BitmaskName is the bitmask file inside Analysis.
	BitmaskName string
	// TimeBin is the light-curve bin width in seconds, as the tool
	// expects it (a decimal string).
	TimeBin string
}

func (ExtractStage) Name() string    { return "extract" }
func (ExtractStage) Tools() []string { return []string{"seextrct"} }

func (s ExtractStage) infile() string {
	if s.Token == "xenon" {
		return filepath.Join("Analysis", "xenon_event_files.txt")
	}
	return filepath.Join("Analysis", FITSListFile)
}

func (s ExtractStage) Done(d ObsDir) bool {
	_, err := os.Stat(filepath.Join(d.AnalysisDir(), s.Prefix+".lc"))
	return err == nil
}

func (s ExtractStage) Ready(d ObsDir) error {
	analysis := d.AnalysisDir()
	if _, err := os.Stat(filepath.Join(analysis, GTIFile)); err != nil {
		return &PreconditionError{Missing: GTIFile + " in " + analysis}
	}
	if _, err := os.Stat(filepath.Join(analysis, s.BitmaskName)); err != nil {
		return &PreconditionError{Missing: s.BitmaskName + " in " + analysis}
	}
	if _, err := os.Stat(filepath.Join(d.ResultsDir, s.infile())); err != nil {
		return &PreconditionError{Missing: s.infile() + " in " + d.ResultsDir}
	}
	return nil
}

func (s ExtractStage) Execute(ctx context.Context, r heasoft.Runner, d ObsDir) error {
	analysis := d.AnalysisDir()
	script := []string{
		"@" + filepath.Join(d.ResultsDir, s.infile()),
		"-",
		filepath.Join(analysis, GTIFile),
		filepath.Join(analysis, s.Prefix),
		filepath.Join(analysis, s.BitmaskName),
		"TIME",
		"EVENT",
		s.TimeBin,
		"LIGHTCURVE",
		"RATE",
		"SUM",
		"INDEF", "INDEF", "INDEF", "INDEF", "INDEF", "INDEF", "INDEF",
	}
	return r.Run(ctx, d.ResultsDir, "seextrct", script, "clobber=yes")
}
