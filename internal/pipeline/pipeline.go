// Package pipeline runs the reduction stages over a directory of
// observations. Each stage is a unit of work per observation; stages
// run in a fixed order and a failure in one observation never stops
// the others.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"autorxte/internal/heasoft"
	"autorxte/internal/logging"
)

// ObsDir is one observation on disk: the raw download directory and
// the results directory its tools write to. Either side may be absent
// depending on how far the pipeline has run.
type ObsDir struct {
	ObsID      string
	RawDir     string // e.g. 96443-01-01-00
	ResultsDir string // e.g. 96443-01-01-00-results
}

// AnalysisDir is where per-observation products accumulate.
func (d ObsDir) AnalysisDir() string { return filepath.Join(d.ResultsDir, "Analysis") }

// Discover scans root for observation directories. A raw directory is
// any subdirectory whose name contains a digit and does not end in
// -results; its results twin is <name>-results. Results directories
// without a surviving raw twin are still discovered so late stages can
// run after raw data is cleaned up.
func Discover(root string) ([]ObsDir, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	byID := make(map[string]*ObsDir)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if id, ok := strings.CutSuffix(name, "-results"); ok {
			d := byID[id]
			if d == nil {
				d = &ObsDir{ObsID: id}
				byID[id] = d
			}
			d.ResultsDir = filepath.Join(root, name)
			continue
		}
		if !strings.ContainsFunc(name, func(r rune) bool { return r >= '0' && r <= '9' }) {
			continue
		}
		d := byID[name]
		if d == nil {
			d = &ObsDir{ObsID: name}
			byID[name] = d
		}
		d.RawDir = filepath.Join(root, name)
	}
	out := make([]ObsDir, 0, len(byID))
	for _, d := range byID {
		if d.ResultsDir == "" {
			d.ResultsDir = filepath.Join(root, d.ObsID+"-results")
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObsID < out[j].ObsID })
	return out, nil
}

// Outcome classifies one observation's result within a stage.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeSkipped: outputs already exist, nothing to do.
	OutcomeSkipped Outcome = "skipped"
	// OutcomePreconditionFailed: required inputs are missing, the
	// observation was never attempted. Distinct from a skip so an
	// unprocessed directory is visible in the summary and exit code.
	OutcomePreconditionFailed Outcome = "precondition_failed"
	OutcomeFailed             Outcome = "failed"
)

// UnitResult is one observation's outcome for one stage.
type UnitResult struct {
	Dir     ObsDir
	Outcome Outcome
	Reason  string
}

// StageSummary aggregates a stage's outcomes across the batch.
type StageSummary struct {
	Stage   string
	Results []UnitResult
}

func (s *StageSummary) count(o Outcome) int {
	n := 0
	for _, r := range s.Results {
		if r.Outcome == o {
			n++
		}
	}
	return n
}

func (s *StageSummary) Succeeded() int          { return s.count(OutcomeSucceeded) }
func (s *StageSummary) Skipped() int            { return s.count(OutcomeSkipped) }
func (s *StageSummary) PreconditionFailed() int { return s.count(OutcomePreconditionFailed) }
func (s *StageSummary) Failed() int             { return s.count(OutcomeFailed) }

// AllFailed reports whether every attempted observation failed, which
// usually means a systemic problem rather than bad data.
func (s *StageSummary) AllFailed() bool {
	attempted := len(s.Results) - s.Skipped() - s.PreconditionFailed()
	return attempted > 0 && s.Failed() == attempted
}

// PreconditionError marks an observation that cannot run a stage yet,
// usually because an earlier stage's product is missing. The executor
// records it as OutcomePreconditionFailed without attempting the
// observation.
type PreconditionError struct {
	Missing string
}

func (e *PreconditionError) Error() string { return "missing " + e.Missing }

// Stage is one step of the reduction. Done reports whether the stage's
// outputs already exist for an observation (the executor then skips
// it); Ready reports whether its inputs are present.
type Stage interface {
	Name() string
	Tools() []string
	Done(d ObsDir) bool
	Ready(d ObsDir) error
	Execute(ctx context.Context, r heasoft.Runner, d ObsDir) error
}

// Executor runs stages over observation directories.
type Executor struct {
	Runner heasoft.Runner
	// SkipExisting skips observations whose stage outputs are present.
	SkipExisting bool
	// Workers bounds per-stage parallelism across observations.
	Workers int
	// CheckTools verifies tool availability before a stage starts.
	// Defaults to a PATH lookup; tests substitute a no-op.
	CheckTools func(tools ...string) error
}

func (e *Executor) checkTools(tools ...string) error {
	if len(tools) == 0 {
		return nil
	}
	if e.CheckTools != nil {
		return e.CheckTools(tools...)
	}
	return heasoft.Require(tools...)
}

// RunStage runs one stage over every observation under root. Tool
// availability is verified up front; per-observation failures are
// recorded in the summary and never abort siblings. The returned error
// is reserved for systemic problems (missing tools, unreadable root).
func (e *Executor) RunStage(ctx context.Context, root string, s Stage) (*StageSummary, error) {
	logger := logging.New("pipeline")

	if err := e.checkTools(s.Tools()...); err != nil {
		return nil, err
	}
	dirs, err := Discover(root)
	if err != nil {
		return nil, err
	}
	summary := &StageSummary{Stage: s.Name()}
	if len(dirs) == 0 {
		logger.Warn("no observation directories found", "root", root, "stage", s.Name())
		return summary, nil
	}

	workers := e.Workers
	if workers < 1 {
		workers = 1
	}
	logger.Info("running stage", "stage", s.Name(), "observations", len(dirs), "workers", workers)

	results := make([]UnitResult, len(dirs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, d := range dirs {
		g.Go(func() error {
			results[i] = e.runUnit(gctx, s, d, logger)
			return nil
		})
	}
	_ = g.Wait()
	summary.Results = results

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("stage %s cancelled: %w", s.Name(), err)
	}
	if summary.AllFailed() {
		logger.Warn("every observation failed, check the environment",
			"stage", s.Name(), "failed", summary.Failed())
	}
	logger.Info("stage finished", "stage", s.Name(),
		"succeeded", summary.Succeeded(), "skipped", summary.Skipped(),
		"not_ready", summary.PreconditionFailed(), "failed", summary.Failed())
	return summary, nil
}

func (e *Executor) runUnit(ctx context.Context, s Stage, d ObsDir, logger *slog.Logger) UnitResult {
	if e.SkipExisting && s.Done(d) {
		logger.Info("outputs exist, skipping", "stage", s.Name(), "obsid", d.ObsID)
		return UnitResult{Dir: d, Outcome: OutcomeSkipped, Reason: "outputs exist"}
	}
	if err := s.Ready(d); err != nil {
		var pre *PreconditionError
		if errors.As(err, &pre) {
			logger.Warn("inputs missing, not attempted", "stage", s.Name(), "obsid", d.ObsID, "reason", err)
			return UnitResult{Dir: d, Outcome: OutcomePreconditionFailed, Reason: err.Error()}
		}
		logger.Error("readiness check failed", "stage", s.Name(), "obsid", d.ObsID, "error", err)
		return UnitResult{Dir: d, Outcome: OutcomeFailed, Reason: err.Error()}
	}
	if err := s.Execute(ctx, e.Runner, d); err != nil {
		logger.Error("observation failed", "stage", s.Name(), "obsid", d.ObsID, "error", err)
		return UnitResult{Dir: d, Outcome: OutcomeFailed, Reason: err.Error()}
	}
	logger.Info("observation done", "stage", s.Name(), "obsid", d.ObsID)
	return UnitResult{Dir: d, Outcome: OutcomeSucceeded}
}

// RunSequence runs the given stages in order. A stage with failures
// does not stop the sequence; a systemic error (missing tools) does.
func (e *Executor) RunSequence(ctx context.Context, root string, stages []Stage) ([]*StageSummary, error) {
	var out []*StageSummary
	for _, s := range stages {
		summary, err := e.RunStage(ctx, root, s)
		if summary != nil {
			out = append(out, summary)
		}
		if err != nil {
			return out, err
		}
	}
	return out, nil
}
