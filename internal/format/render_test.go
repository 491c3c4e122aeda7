package format

import (
	"strings"
	"testing"
	"time"

	"autorxte/internal/acquire"
	"autorxte/internal/pipeline"
	"autorxte/internal/store"
)

func TestStageSummaryTable(t *testing.T) {
	sums := []*pipeline.StageSummary{
		{Stage: "filter", Results: []pipeline.UnitResult{
			{Outcome: pipeline.OutcomeSucceeded},
			{Outcome: pipeline.OutcomeSkipped},
		}},
		{Stage: "extract", Results: []pipeline.UnitResult{
			{Outcome: pipeline.OutcomeFailed},
			{Outcome: pipeline.OutcomePreconditionFailed},
		}},
	}
	out := StageSummaryTable(ASCII, sums)
	for _, want := range []string{"filter", "extract", "STAGE", "NOT READY", "total"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}

	md := StageSummaryTable(Markdown, sums)
	if !strings.Contains(md, "|") {
		t.Errorf("markdown mode did not render pipes:\n%s", md)
	}
}

func TestAcquisitionTable_ListsFailures(t *testing.T) {
	res := &acquire.BatchResult{
		Completed: []*acquire.Item{{Key: "a"}},
		Failed:    []*acquire.Item{{Key: "rxte/data/FS00.gz", Reason: "connection reset"}},
		Bytes:     2048,
		Duration:  3 * time.Second,
	}
	out := AcquisitionTable(ASCII, res)
	if !strings.Contains(out, "rxte/data/FS00.gz") || !strings.Contains(out, "connection reset") {
		t.Errorf("failures not listed:\n%s", out)
	}
	if !strings.Contains(out, "kB") && !strings.Contains(out, "KB") {
		t.Errorf("bytes not humanized:\n%s", out)
	}
}

func TestBatchTable(t *testing.T) {
	out := BatchTable(ASCII, []*store.Batch{
		{ID: 1, Source: "CYGX1", Region: "eu-central-1", Items: 4, Completed: 4, Bytes: 1 << 20},
	})
	for _, want := range []string{"CYGX1", "eu-central-1", "MB"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}
