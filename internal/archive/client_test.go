package archive

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestListObjects_FollowsContinuation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("prefix"); got != "rxte/data/archive/AO5/P96443/96443-01-01-00/" {
			t.Errorf("prefix = %q", got)
		}
		if r.URL.Query().Get("continuation-token") == "" {
			fmt.Fprint(w, `<?xml version="1.0"?>
<ListBucketResult>
  <IsTruncated>true</IsTruncated>
  <NextContinuationToken>tok-2</NextContinuationToken>
  <Contents><Key>a/one.fits</Key><Size>100</Size></Contents>
</ListBucketResult>`)
			return
		}
		fmt.Fprint(w, `<?xml version="1.0"?>
<ListBucketResult>
  <IsTruncated>false</IsTruncated>
  <Contents><Key>a/two.fits</Key><Size>200</Size></Contents>
</ListBucketResult>`)
	}))
	defer srv.Close()

	c := NewClient(Config{BucketURL: srv.URL})
	objs, err := c.ListObjects(context.Background(), ObservationPrefix(5, "96443-01-01-00"))
	if err != nil {
		t.Fatalf("ListObjects: %v", err)
	}
	want := []Object{
		{Key: "a/one.fits", Size: 100},
		{Key: "a/two.fits", Size: 200},
	}
	if diff := cmp.Diff(want, objs); diff != "" {
		t.Errorf("objects mismatch (-want +got):\n%s", diff)
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rxte/data/file.fits" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "payload-bytes")
	}))
	defer srv.Close()

	c := NewClient(Config{BucketURL: srv.URL})
	var buf bytes.Buffer
	n, err := c.Fetch(context.Background(), "rxte/data/file.fits", &buf)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if n != int64(len("payload-bytes")) || buf.String() != "payload-bytes" {
		t.Errorf("got %d bytes %q", n, buf.String())
	}

	if _, err := c.Fetch(context.Background(), "missing/key", &buf); err == nil {
		t.Error("want error for missing object")
	}
}

func TestSearchObservations_DropsIncompleteRowsAndSorts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("catalog"); got != "xtemaster" {
			t.Errorf("catalog = %q", got)
		}
		fmt.Fprint(w, `[
  {"obsid":"96443-01-02-00","cycle":9,"target_name":"CYGX1","exposure":3200,"time":55002.5},
  {"obsid":"","cycle":9,"target_name":"CYGX1","exposure":100,"time":55000.0},
  {"obsid":"96443-01-01-00","cycle":9,"target_name":"CYGX1","exposure":1600,"time":55001.0}
]`)
	}))
	defer srv.Close()

	c := NewClient(Config{CatalogURL: srv.URL})
	obs, err := c.SearchObservations(context.Background(), SearchQuery{
		Source: "Cyg X-1", Catalog: "xtemaster", Radius: 5,
	})
	if err != nil {
		t.Fatalf("SearchObservations: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("got %d observations, want 2", len(obs))
	}
	if obs[0].ObsID != "96443-01-01-00" || obs[1].ObsID != "96443-01-02-00" {
		t.Errorf("not sorted by time: %+v", obs)
	}
}

func TestFilter(t *testing.T) {
	obs := []Observation{
		{ObsID: "a", Exposure: 100, TimeMJD: 55000},
		{ObsID: "b", Exposure: 900, TimeMJD: 55001},
		{ObsID: "c", Exposure: 500, TimeMJD: 55002},
	}

	got := Filter(obs, Criteria{MinExposure: 200})
	if len(got) != 2 {
		t.Errorf("min-exposure filter: got %d, want 2", len(got))
	}

	got = Filter(obs, Criteria{TopN: 2})
	if len(got) != 2 || got[1].ObsID != "b" {
		t.Errorf("top-n filter: got %+v", got)
	}

	got = Filter(obs, Criteria{BottomN: 1})
	if len(got) != 1 || got[0].ObsID != "a" {
		t.Errorf("bottom-n filter: got %+v", got)
	}

	got = Filter(obs, Criteria{ObsIDs: []string{"c", " a"}})
	if len(got) != 2 {
		t.Errorf("obsid filter: got %+v", got)
	}
}

func TestObservationPrefix(t *testing.T) {
	got := ObservationPrefix(9, "96443-01-01-00")
	want := "rxte/data/archive/AO9/P96443/96443-01-01-00/"
	if got != want {
		t.Errorf("prefix = %q, want %q", got, want)
	}
}

func TestMJDToTime(t *testing.T) {
	// MJD 51544.0 is 2000-01-01T00:00:00Z.
	got := MJDToTime(51544.0).UTC()
	if got.Year() != 2000 || got.Month() != 1 || got.Day() != 1 {
		t.Errorf("MJDToTime(51544) = %v", got)
	}
}
