package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	"autorxte/internal/config"
	"autorxte/internal/pipeline"
	"autorxte/internal/store"
)

func resolveTestConfig(t *testing.T, overrides map[string]any) {
	t.Helper()
	cfg, err := config.Resolve(config.Options{
		HomeDir:    t.TempDir(),
		ProjectDir: t.TempDir(),
		Overrides:  overrides,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	appCfg = cfg
}

func TestStageFromConfig_AllStages(t *testing.T) {
	resolveTestConfig(t, map[string]any{"bitmasks.path": "/data/bitmask_event"})

	for _, name := range pipeline.StageOrder {
		s, err := stageFromConfig(name)
		if err != nil {
			t.Errorf("stageFromConfig(%s): %v", name, err)
			continue
		}
		if s.Name() != name {
			t.Errorf("stage %s reports name %s", name, s.Name())
		}
	}
	if _, err := stageFromConfig("nonsense"); err == nil {
		t.Error("unknown stage must fail")
	}
}

func TestStageFromConfig_BitmaskNeedsPath(t *testing.T) {
	resolveTestConfig(t, nil)
	if _, err := stageFromConfig("bitmask"); err == nil {
		t.Error("bitmask stage without a configured path must fail")
	}
}

func TestStageFromConfig_UsesConfiguredValues(t *testing.T) {
	resolveTestConfig(t, map[string]any{
		"extraction.time_bin":         "0.001",
		"lightcurves.type":            "std1",
		"filtering.filter_expression": "(ELV > 10)",
	})

	s, err := stageFromConfig("extract")
	if err != nil {
		t.Fatal(err)
	}
	if s.(pipeline.ExtractStage).TimeBin != "0.001" {
		t.Errorf("extract stage = %+v", s)
	}
	lc, err := stageFromConfig("lightcurves")
	if err != nil {
		t.Fatal(err)
	}
	if lc.(pipeline.LightcurveStage).Mode != "std1" {
		t.Errorf("lightcurve stage = %+v", lc)
	}
	fs, err := stageFromConfig("filter")
	if err != nil {
		t.Fatal(err)
	}
	if fs.(pipeline.FilterStage).Expression != "(ELV > 10)" {
		t.Errorf("filter stage = %+v", fs)
	}
}

func TestDownloadCriteria_Dates(t *testing.T) {
	downloadFlags.startDate = "2011-02-01"
	downloadFlags.endDate = "2011-03-01"
	t.Cleanup(func() {
		downloadFlags.startDate = ""
		downloadFlags.endDate = ""
	})

	cr, err := downloadCriteria()
	if err != nil {
		t.Fatalf("downloadCriteria: %v", err)
	}
	if cr.StartDate != time.Date(2011, 2, 1, 0, 0, 0, 0, time.UTC) {
		t.Errorf("start = %v", cr.StartDate)
	}
	// End date is inclusive: observations on the end day survive.
	endOfDay := time.Date(2011, 3, 1, 12, 0, 0, 0, time.UTC)
	if cr.EndDate.Before(endOfDay) {
		t.Errorf("end = %v, want to cover %v", cr.EndDate, endOfDay)
	}

	downloadFlags.startDate = "01/02/2011"
	if _, err := downloadCriteria(); err == nil {
		t.Error("malformed date must fail")
	}
}

func TestFinishStages_MissingInputsExitNonZero(t *testing.T) {
	t.Chdir(t.TempDir())

	err := finishStages(&pipeline.StageSummary{
		Stage: "extract",
		Results: []pipeline.UnitResult{
			{Outcome: pipeline.OutcomeSucceeded},
			{Outcome: pipeline.OutcomePreconditionFailed, Reason: "missing bitmask_event"},
		},
	})
	if err == nil {
		t.Fatal("unattempted observation must produce a non-zero exit")
	}
	if !strings.Contains(err.Error(), "missing inputs") {
		t.Errorf("err = %v", err)
	}

	// A pure skip-existing run still exits zero.
	err = finishStages(&pipeline.StageSummary{
		Stage:   "extract",
		Results: []pipeline.UnitResult{{Outcome: pipeline.OutcomeSkipped}},
	})
	if err != nil {
		t.Errorf("skip-only run: %v", err)
	}
}

// flakyStore fails the first RecordStageRun and delegates the rest.
type flakyStore struct {
	*store.MemStore
	failures int
}

func (f *flakyStore) RecordStageRun(r *store.StageRun) (int64, error) {
	if f.failures > 0 {
		f.failures--
		return 0, errors.New("disk full")
	}
	return f.MemStore.RecordStageRun(r)
}

func TestRecordStageRuns_ContinuesPastErrors(t *testing.T) {
	st := &flakyStore{MemStore: store.NewMemStore(), failures: 1}
	recordStageRuns(st, "run-1", &pipeline.StageSummary{
		Stage: "filter",
		Results: []pipeline.UnitResult{
			{Dir: pipeline.ObsDir{ObsID: "a"}, Outcome: pipeline.OutcomeFailed},
			{Dir: pipeline.ObsDir{ObsID: "b"}, Outcome: pipeline.OutcomeSucceeded},
			{Dir: pipeline.ObsDir{ObsID: "c"}, Outcome: pipeline.OutcomePreconditionFailed},
		},
	})
	runs, err := st.ListStageRuns(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("recorded %d runs after one write error, want 2", len(runs))
	}
	for _, r := range runs {
		if r.Dir == "a" {
			t.Error("failed write was recorded anyway")
		}
	}
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"Cyg X-1":    "Cyg_X-1",
		"GX 339-4":   "GX_339-4",
		"4U 1630+47": "4U_1630+47",
		"":           "unknown",
	}
	for in, want := range cases {
		if got := sanitizeName(in); got != want {
			t.Errorf("sanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}
