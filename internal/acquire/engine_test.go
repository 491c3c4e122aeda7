package acquire

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// fakeFetcher serves canned payloads keyed by object key and counts
// fetches so tests can assert what was actually scheduled.
type fakeFetcher struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    map[string]bool
	fetched map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		objects: make(map[string][]byte),
		fail:    make(map[string]bool),
		fetched: make(map[string]int),
	}
}

func (f *fakeFetcher) add(key, body string) {
	f.objects[key] = []byte(body)
}

func (f *fakeFetcher) Fetch(ctx context.Context, key string, w io.Writer) (int64, error) {
	f.mu.Lock()
	f.fetched[key]++
	f.mu.Unlock()
	if f.fail[key] {
		return 0, fmt.Errorf("fetch %s: connection reset", key)
	}
	body, ok := f.objects[key]
	if !ok {
		return 0, fmt.Errorf("fetch %s: not found", key)
	}
	n, err := w.Write(body)
	return int64(n), err
}

func (f *fakeFetcher) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetched[key]
}

func sha(body string) string {
	h := sha256.Sum256([]byte(body))
	return hex.EncodeToString(h[:])
}

func testItems(t *testing.T, f *fakeFetcher, n int) []*Item {
	t.Helper()
	dir := t.TempDir()
	items := make([]*Item, 0, n)
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("rxte/data/archive/AO1/P96443/FS%02d.gz", i)
		body := fmt.Sprintf("payload-%d", i)
		f.add(key, body)
		items = append(items, &Item{
			Key:  key,
			Dest: filepath.Join(dir, fmt.Sprintf("FS%02d.gz", i)),
			Size: int64(len(body)),
		})
	}
	return items
}

func TestRun_DownloadsAll(t *testing.T) {
	f := newFakeFetcher()
	items := testItems(t, f, 5)

	e := &Engine{Fetcher: f}
	res, err := e.Run(context.Background(), items, 3)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.AllComplete() || len(res.Completed) != 5 {
		t.Fatalf("completed=%d failed=%d", len(res.Completed), len(res.Failed))
	}
	for _, it := range items {
		if it.State != StateComplete {
			t.Errorf("%s state = %s", it.Key, it.State)
		}
		body, err := os.ReadFile(it.Dest)
		if err != nil {
			t.Fatalf("dest missing: %v", err)
		}
		if int64(len(body)) != it.Size {
			t.Errorf("%s wrote %d bytes, want %d", it.Dest, len(body), it.Size)
		}
		if _, err := os.Stat(it.Dest + ".part"); !os.IsNotExist(err) {
			t.Errorf("temp file left behind for %s", it.Key)
		}
	}
	if res.Bytes == 0 {
		t.Error("batch byte count not accumulated")
	}
}

func TestRun_SkipsIntactExisting(t *testing.T) {
	f := newFakeFetcher()
	items := testItems(t, f, 3)

	// Pre-place item 0 with correct content.
	if err := os.WriteFile(items[0].Dest, []byte("payload-0"), 0644); err != nil {
		t.Fatal(err)
	}
	// Pre-place item 1 truncated: must be re-fetched.
	if err := os.WriteFile(items[1].Dest, []byte("pay"), 0644); err != nil {
		t.Fatal(err)
	}

	e := &Engine{Fetcher: f}
	res, err := e.Run(context.Background(), items, 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Resumed != 1 {
		t.Errorf("resumed = %d, want 1", res.Resumed)
	}
	if f.count(items[0].Key) != 0 {
		t.Error("intact file was re-fetched")
	}
	if f.count(items[1].Key) != 1 {
		t.Error("truncated file was not re-fetched")
	}
	if len(res.Completed) != 3 {
		t.Errorf("completed = %d", len(res.Completed))
	}
}

func TestRun_ChecksumAuthoritative(t *testing.T) {
	f := newFakeFetcher()
	items := testItems(t, f, 1)
	items[0].Checksum = sha("payload-0")

	// Same size, wrong content: size check would pass, hash must not.
	if err := os.WriteFile(items[0].Dest, []byte("payloadX0"), 0644); err != nil {
		t.Fatal(err)
	}

	e := &Engine{Fetcher: f}
	res, err := e.Run(context.Background(), items, 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if f.count(items[0].Key) != 1 {
		t.Error("corrupt file accepted without re-fetch")
	}
	if len(res.Completed) != 1 {
		t.Errorf("completed = %d", len(res.Completed))
	}
	body, _ := os.ReadFile(items[0].Dest)
	if string(body) != "payload-0" {
		t.Errorf("dest = %q after repair", body)
	}
}

func TestRun_FailureIsolation(t *testing.T) {
	f := newFakeFetcher()
	items := testItems(t, f, 4)
	f.fail[items[2].Key] = true

	e := &Engine{Fetcher: f}
	res, err := e.Run(context.Background(), items, 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Completed) != 3 || len(res.Failed) != 1 {
		t.Fatalf("completed=%d failed=%d", len(res.Completed), len(res.Failed))
	}
	bad := res.Failed[0]
	if bad.Key != items[2].Key || bad.Reason == "" {
		t.Errorf("failed item = %+v", bad)
	}
	if _, err := os.Stat(bad.Dest); !os.IsNotExist(err) {
		t.Error("failed item left a destination file")
	}
}

func TestRetry_ResetsFailedOnly(t *testing.T) {
	f := newFakeFetcher()
	items := testItems(t, f, 2)
	f.fail[items[1].Key] = true

	e := &Engine{Fetcher: f}
	res, err := e.Run(context.Background(), items, 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Failed) != 1 {
		t.Fatalf("failed = %d", len(res.Failed))
	}

	// Clear the fault and retry just the failures.
	f.fail[items[1].Key] = false
	res2, err := e.Retry(context.Background(), res.Failed, 1)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if !res2.AllComplete() {
		t.Fatalf("retry failed: %+v", res2.Failed)
	}
	if items[1].State != StateComplete || items[1].Reason != "" {
		t.Errorf("item after retry = %+v", items[1])
	}
	if f.count(items[0].Key) != 1 {
		t.Error("retry re-fetched an already complete item")
	}
}

func TestRun_RecordSurvivesRestart(t *testing.T) {
	f := newFakeFetcher()
	items := testItems(t, f, 3)
	record := filepath.Join(t.TempDir(), "progress.json")

	e := &Engine{Fetcher: f, RecordPath: record}
	if _, err := e.Run(context.Background(), items, 2); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Simulate a fresh process: new engine, destinations wiped, record kept.
	for _, it := range items {
		if err := os.Remove(it.Dest); err != nil {
			t.Fatal(err)
		}
		it.State = StatePending
	}
	e2 := &Engine{Fetcher: f, RecordPath: record}
	res, err := e2.Run(context.Background(), items, 2)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if res.Resumed != 3 {
		t.Errorf("resumed = %d, want 3 from record", res.Resumed)
	}
	for _, it := range items {
		if f.count(it.Key) != 1 {
			t.Errorf("%s fetched %d times", it.Key, f.count(it.Key))
		}
	}
}

func TestRun_CancelledContext(t *testing.T) {
	f := newFakeFetcher()
	items := testItems(t, f, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := &Engine{Fetcher: f}
	_, err := e.Run(ctx, items, 1)
	if err == nil {
		t.Fatal("Run with cancelled ctx must error")
	}
	for _, it := range items {
		if it.State == StateInProgress {
			t.Errorf("%s left in progress", it.Key)
		}
	}
}

func TestAutoWorkers(t *testing.T) {
	if got := AutoWorkers(0, 0); got != 1 {
		t.Errorf("empty batch workers = %d", got)
	}
	if got := AutoWorkers(2, 10); got != 2 {
		t.Errorf("2 small files workers = %d, want capped at item count", got)
	}
	if got := AutoWorkers(1000, 10); got > 64 {
		t.Errorf("small-file workers = %d, want ≤ 64", got)
	}
	if got := AutoWorkers(1000, 50_000); got > 32 {
		t.Errorf("large-file workers = %d, want ≤ 32", got)
	}
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Verify(path, 5, ""); err != nil {
		t.Errorf("size match: %v", err)
	}
	if err := Verify(path, 9, ""); err == nil {
		t.Error("size mismatch accepted")
	}
	if err := Verify(path, 0, ""); err != nil {
		t.Errorf("unknown size must accept: %v", err)
	}
	if err := Verify(path, 5, sha("hello")); err != nil {
		t.Errorf("checksum match: %v", err)
	}
	if err := Verify(path, 5, sha("other")); err == nil {
		t.Error("checksum mismatch accepted")
	}
}
