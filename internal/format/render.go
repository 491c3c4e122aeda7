package format

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"autorxte/internal/acquire"
	"autorxte/internal/archive"
	"autorxte/internal/pipeline"
	"autorxte/internal/store"
)

// ObservationTable lists catalog search results, newest last.
func ObservationTable(m Mode, obs []archive.Observation) string {
	t := NewTable(m)
	t.Header("#", "OBSID", "CYCLE", "TARGET", "EXPOSURE (s)", "DATE")
	var total float64
	for i, o := range obs {
		t.Row(i+1, o.ObsID, o.Cycle, o.Target,
			fmt.Sprintf("%.0f", o.Exposure), archive.MJDToTime(o.TimeMJD).Format("2006-01-02"))
		total += o.Exposure
	}
	t.Footer("", "", "", "total", fmt.Sprintf("%.0f", total), "")
	t.Columns(alignRight(1, 5)...)
	return t.String()
}

// AcquisitionTable summarizes a download batch, listing failures so
// they can be retried by hand.
func AcquisitionTable(m Mode, res *acquire.BatchResult) string {
	t := NewTable(m)
	t.Header("OUTCOME", "ITEMS", "DETAIL")
	t.Row("completed", len(res.Completed), humanize.Bytes(uint64(res.Bytes))+" transferred")
	t.Row("resumed", res.Resumed, "already on disk")
	t.Row("failed", len(res.Failed), "")
	for _, it := range res.Failed {
		t.Row("", "", it.Key+": "+it.Reason)
	}
	t.Footer("duration", "", res.Duration.Round(time.Second).String())
	t.Columns(append(alignRight(2), ColumnConfig{Number: 3, MaxWidth: 80})...)
	return t.String()
}

// StageSummaryTable shows per-stage outcomes after a pipeline run.
func StageSummaryTable(m Mode, sums []*pipeline.StageSummary) string {
	t := NewTable(m)
	t.Header("STAGE", "SUCCEEDED", "SKIPPED", "NOT READY", "FAILED")
	var ok, skip, pre, fail int
	for _, s := range sums {
		t.Row(s.Stage, s.Succeeded(), s.Skipped(), s.PreconditionFailed(), s.Failed())
		ok += s.Succeeded()
		skip += s.Skipped()
		pre += s.PreconditionFailed()
		fail += s.Failed()
	}
	t.Footer("total", ok, skip, pre, fail)
	t.Columns(alignRight(2, 3, 4, 5)...)
	return t.String()
}

// BatchTable lists recorded download batches, newest first.
func BatchTable(m Mode, batches []*store.Batch) string {
	t := NewTable(m)
	t.Header("ID", "SOURCE", "REGION", "ITEMS", "COMPLETED", "FAILED", "SIZE", "STARTED")
	for _, b := range batches {
		t.Row(b.ID, b.Source, b.Region, b.Items, b.Completed, b.Failed,
			humanize.Bytes(uint64(b.Bytes)), b.StartedAt)
	}
	t.Columns(alignRight(4, 5, 6, 7)...)
	return t.String()
}

// StageRunTable lists recorded stage runs, newest first.
func StageRunTable(m Mode, runs []*store.StageRun) string {
	t := NewTable(m)
	t.Header("ID", "STAGE", "DIRECTORY", "OUTCOME", "REASON", "WHEN")
	for _, r := range runs {
		t.Row(r.ID, r.Stage, r.Dir, r.Outcome, r.Reason, r.CreatedAt)
	}
	t.Columns(ColumnConfig{Number: 5, MaxWidth: 60})
	return t.String()
}
