package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"autorxte/internal/heasoft"
)

// BitmaskStage distributes one bitmask file into every observation's
// Analysis directory so the extraction stage can find it locally.
type BitmaskStage struct {
	// BitmaskPath is the source bitmask file.
	BitmaskPath string
	// Overwrite replaces an existing copy; default keeps it.
	Overwrite bool
}

func (BitmaskStage) Name() string    { return "bitmask" }
func (BitmaskStage) Tools() []string { return nil }

func (s BitmaskStage) destName() string { return filepath.Base(s.BitmaskPath) }

func (s BitmaskStage) Done(d ObsDir) bool {
	if s.Overwrite {
		return false
	}
	_, err := os.Stat(filepath.Join(d.AnalysisDir(), s.destName()))
	return err == nil
}

func (s BitmaskStage) Ready(d ObsDir) error {
	if _, err := os.Stat(s.BitmaskPath); err != nil {
		return fmt.Errorf("bitmask file %s: %w", s.BitmaskPath, err)
	}
	if fi, err := os.Stat(d.AnalysisDir()); err != nil || !fi.IsDir() {
		return &PreconditionError{Missing: "Analysis directory"}
	}
	return nil
}

func (s BitmaskStage) Execute(ctx context.Context, _ heasoft.Runner, d ObsDir) error {
	return copyFile(s.BitmaskPath, filepath.Join(d.AnalysisDir(), s.destName()))
}
