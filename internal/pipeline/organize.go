package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"autorxte/internal/heasoft"
)

// FITSListFile is the per-observation list of FITS event files that
// pcaprepobsid leaves in the raw directory.
const FITSListFile = "fits_files.god"

// OrganizeStage moves (or copies) each observation's FITS list from
// the raw directory into its Analysis directory. Runs no tools.
type OrganizeStage struct {
	// Copy leaves the original in place instead of moving it.
	Copy bool
}

func (OrganizeStage) Name() string    { return "organize" }
func (OrganizeStage) Tools() []string { return nil }

func (OrganizeStage) Done(d ObsDir) bool {
	_, err := os.Stat(filepath.Join(d.AnalysisDir(), FITSListFile))
	return err == nil
}

func (OrganizeStage) Ready(d ObsDir) error {
	if d.RawDir == "" {
		return &PreconditionError{Missing: "raw observation directory"}
	}
	if _, err := os.Stat(filepath.Join(d.RawDir, FITSListFile)); err != nil {
		return &PreconditionError{Missing: FITSListFile + " in " + d.RawDir}
	}
	return nil
}

func (s OrganizeStage) Execute(ctx context.Context, _ heasoft.Runner, d ObsDir) error {
	analysis := d.AnalysisDir()
	if err := os.MkdirAll(analysis, 0755); err != nil {
		return fmt.Errorf("create analysis dir: %w", err)
	}
	src := filepath.Join(d.RawDir, FITSListFile)
	dst := filepath.Join(analysis, FITSListFile)
	if s.Copy {
		return copyFile(src, dst)
	}
	if err := os.Rename(src, dst); err != nil {
		// Cross-device move falls back to copy+remove.
		if err := copyFile(src, dst); err != nil {
			return err
		}
		return os.Remove(src)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return out.Close()
}
