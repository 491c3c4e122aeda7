package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"autorxte/internal/heasoft"
)

// GTIFile is the good-time-interval product the filter stage writes.
const GTIFile = "good.gti"

// filterListFile names the housekeeping file list maketime reads from.
const filterListFile = "FP_xtefilt.lis"

// FilterStage builds each observation's good-time-interval file by
// running maketime against the housekeeping filter file with a
// selection expression.
type FilterStage struct {
	// Expression selects good time, e.g. elevation and PCU cuts.
	Expression string
}

func (FilterStage) Name() string    { return "filter" }
func (FilterStage) Tools() []string { return []string{"maketime"} }

func (FilterStage) Done(d ObsDir) bool {
	_, err := os.Stat(filepath.Join(d.AnalysisDir(), GTIFile))
	return err == nil
}

func (FilterStage) Ready(d ObsDir) error {
	if _, err := os.Stat(filepath.Join(d.ResultsDir, filterListFile)); err != nil {
		return &PreconditionError{Missing: filterListFile + " in " + d.ResultsDir}
	}
	return nil
}

func (s FilterStage) Execute(ctx context.Context, r heasoft.Runner, d ObsDir) error {
	analysis := d.AnalysisDir()
	if err := os.MkdirAll(analysis, 0755); err != nil {
		return fmt.Errorf("create analysis dir: %w", err)
	}
	// maketime takes the filter file itself, not the list, so read the
	// first entry out of FP_xtefilt.lis.
	filterFile, err := firstLine(filepath.Join(d.ResultsDir, filterListFile))
	if err != nil {
		return err
	}
	script := []string{
		filterFile,
		filepath.Join(analysis, GTIFile),
		s.Expression,
		"no",
		"TIME",
	}
	return r.Run(ctx, d.ResultsDir, "maketime", script)
}

func firstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return "", fmt.Errorf("%s is empty", path)
	}
	return sc.Text(), nil
}
