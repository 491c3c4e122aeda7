package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"autorxte/internal/logging"
)

// Observation is one catalog row for the searched source.
type Observation struct {
	ObsID    string  `json:"obsid"`
	Cycle    int     `json:"cycle"`
	Target   string  `json:"target_name"`
	Exposure float64 `json:"exposure"` // seconds
	TimeMJD  float64 `json:"time"`    // observation start, MJD
}

// SearchQuery names a catalog region search.
type SearchQuery struct {
	Source  string  // source name or "ra dec" coordinates
	Catalog string  // e.g. "xtemaster"
	Radius  float64 // arcminutes
}

// SearchObservations queries the catalog service for observations of
// the source within the radius. Rows with an empty obsid or exposure
// are dropped; results are sorted by observation time. A non-empty
// query that matches nothing is logged as suspicious (often a wrong
// source name or unit mix-up) but is not an error.
func (c *Client) SearchObservations(ctx context.Context, q SearchQuery) ([]Observation, error) {
	logger := logging.New("archive")

	v := url.Values{}
	v.Set("catalog", q.Catalog)
	v.Set("position", q.Source)
	v.Set("radius_arcmin", fmt.Sprintf("%g", q.Radius))
	v.Set("format", "json")
	u := c.Config.CatalogURL + "/query?" + v.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog query: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("catalog query %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var rows []Observation
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode catalog rows: %w", err)
	}

	obs := rows[:0]
	for _, r := range rows {
		if r.ObsID == "" || r.Exposure <= 0 {
			continue
		}
		obs = append(obs, r)
	}
	sort.Slice(obs, func(i, j int) bool { return obs[i].TimeMJD < obs[j].TimeMJD })

	if len(obs) == 0 && q.Source != "" {
		logger.Warn("catalog search returned no observations for a non-empty query",
			"source", q.Source, "catalog", q.Catalog, "radius_arcmin", q.Radius)
	}
	return obs, nil
}

// Criteria narrows a search result before download.
type Criteria struct {
	MinExposure float64
	StartDate   time.Time // zero = unbounded
	EndDate     time.Time // zero = unbounded
	TopN        int       // keep N longest exposures
	BottomN     int       // keep N shortest exposures
	ObsIDs      []string  // keep exactly these
}

// mjdEpoch is MJD 0 as civil time (1858-11-17 UTC).
var mjdEpoch = time.Date(1858, time.November, 17, 0, 0, 0, 0, time.UTC)

// MJDToTime converts a Modified Julian Date to civil time.
func MJDToTime(mjd float64) time.Time {
	return mjdEpoch.Add(time.Duration(mjd * 24 * float64(time.Hour)))
}

// Filter applies the criteria in the original workflow's order:
// exposure and date cuts first, then obsid pinning or top/bottom-N
// selection by exposure.
func Filter(obs []Observation, cr Criteria) []Observation {
	out := make([]Observation, 0, len(obs))
	for _, o := range obs {
		if cr.MinExposure > 0 && o.Exposure < cr.MinExposure {
			continue
		}
		t := MJDToTime(o.TimeMJD)
		if !cr.StartDate.IsZero() && t.Before(cr.StartDate) {
			continue
		}
		if !cr.EndDate.IsZero() && t.After(cr.EndDate) {
			continue
		}
		out = append(out, o)
	}

	if len(cr.ObsIDs) > 0 {
		want := make(map[string]bool, len(cr.ObsIDs))
		for _, id := range cr.ObsIDs {
			want[strings.TrimSpace(id)] = true
		}
		kept := out[:0]
		for _, o := range out {
			if want[o.ObsID] {
				kept = append(kept, o)
			}
		}
		return kept
	}

	if cr.TopN > 0 || cr.BottomN > 0 {
		byExp := append([]Observation(nil), out...)
		sort.Slice(byExp, func(i, j int) bool { return byExp[i].Exposure < byExp[j].Exposure })
		if cr.TopN > 0 && cr.TopN < len(byExp) {
			return byExp[len(byExp)-cr.TopN:]
		}
		if cr.BottomN > 0 && cr.BottomN < len(byExp) {
			return byExp[:cr.BottomN]
		}
		return byExp
	}
	return out
}

// DominantTarget returns the most frequent target name, used to name
// the download directory.
func DominantTarget(obs []Observation) string {
	counts := map[string]int{}
	best := ""
	for _, o := range obs {
		counts[o.Target]++
		if best == "" || counts[o.Target] > counts[best] {
			best = o.Target
		}
	}
	return best
}
