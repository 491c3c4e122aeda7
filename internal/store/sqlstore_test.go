package store

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *SqlStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), ".autorxte", "autorxte.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBatchRoundTrip(t *testing.T) {
	s := openTestStore(t)

	id, err := s.RecordBatch(&Batch{
		UUID: "b-1", Source: "CYGX1", Region: "eu-central-1", Items: 3,
	})
	if err != nil {
		t.Fatalf("RecordBatch: %v", err)
	}
	if err := s.FinishBatch(id, 2, 1, 4096); err != nil {
		t.Fatalf("FinishBatch: %v", err)
	}

	batches, err := s.ListBatches(10)
	if err != nil {
		t.Fatalf("ListBatches: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("got %d batches", len(batches))
	}
	b := batches[0]
	if b.Completed != 2 || b.Failed != 1 || b.Bytes != 4096 {
		t.Errorf("batch = %+v", b)
	}
	if b.FinishedAt == "" {
		t.Error("FinishBatch must set finished_at")
	}
}

func TestStageRunRoundTrip(t *testing.T) {
	s := openTestStore(t)

	for _, outcome := range []string{"succeeded", "skipped", "failed"} {
		if _, err := s.RecordStageRun(&StageRun{
			RunUUID: "r-1", Stage: "filter", Dir: "96443-01-01-00-results",
			Outcome: outcome, Reason: "",
		}); err != nil {
			t.Fatalf("RecordStageRun(%s): %v", outcome, err)
		}
	}

	runs, err := s.ListStageRuns(10)
	if err != nil {
		t.Fatalf("ListStageRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d stage runs", len(runs))
	}
	// Newest first.
	if runs[0].Outcome != "failed" {
		t.Errorf("first run = %+v, want newest", runs[0])
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "autorxte.db")
	s1, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s1.RecordBatch(&Batch{UUID: "b-1"}); err != nil {
		t.Fatalf("RecordBatch: %v", err)
	}
	_ = s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	batches, err := s2.ListBatches(0)
	if err != nil || len(batches) != 1 {
		t.Fatalf("after reopen: %v, %d batches", err, len(batches))
	}
}
