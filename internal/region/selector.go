package region

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"autorxte/internal/logging"
)

// ErrRegionUnavailable means every candidate probe failed. Acquisition
// cannot proceed, but the condition is retryable later.
var ErrRegionUnavailable = errors.New("no archive endpoint reachable")

// Selector probes candidate endpoints and caches the winner on disk.
type Selector struct {
	// Client performs probe requests; nil means http.DefaultClient.
	Client *http.Client
	// PrefPath is where the winner is persisted. Empty disables
	// persistence (probe every call).
	PrefPath string
	// ProbeTimeout bounds each individual probe (default 5s).
	ProbeTimeout time.Duration
	// TTL is the persistence window; a stored preference older than
	// this is re-probed (default 30 days).
	TTL time.Duration
	// ProbePrefix is the object prefix listed during a probe.
	ProbePrefix string

	now func() time.Time
}

const (
	defaultProbeTimeout = 5 * time.Second
	defaultTTL          = 30 * 24 * time.Hour
	defaultProbePrefix  = "rxte/"
)

type probeResult struct {
	index   int
	latency time.Duration
	err     error
}

// Select returns the preferred endpoint. A valid persisted preference
// within the TTL is returned without any network traffic; otherwise all
// candidates are probed concurrently, the minimum-latency endpoint wins
// (declaration order breaks ties), and the winner is persisted before
// returning. Repeated calls inside the persistence window are therefore
// idempotent and probe-free.
func (s *Selector) Select(ctx context.Context, candidates []Endpoint) (Endpoint, error) {
	if len(candidates) == 0 {
		return Endpoint{}, fmt.Errorf("select region: no candidates")
	}
	logger := logging.New("region")

	if ep, ok := s.cached(candidates); ok {
		logger.Debug("using persisted region", "region", ep.Name)
		return ep, nil
	}

	latencies, err := s.probeAll(ctx, candidates)
	if err != nil {
		return Endpoint{}, err
	}

	best := -1
	for i, l := range latencies {
		if l < 0 {
			continue
		}
		if best < 0 || l < latencies[best] {
			best = i
		}
	}
	if best < 0 {
		return Endpoint{}, fmt.Errorf("select region: %w", ErrRegionUnavailable)
	}

	winner := candidates[best]
	logger.Info("fastest region selected", "region", winner.Name, "latency", latencies[best])

	if s.PrefPath != "" {
		pref := &Preference{
			Region:    winner.Name,
			LatencyMS: float64(latencies[best]) / float64(time.Millisecond),
			SavedAt:   s.clock()(),
		}
		if err := SavePreference(s.PrefPath, pref); err != nil {
			return Endpoint{}, fmt.Errorf("persist region preference: %w", err)
		}
	}
	return winner, nil
}

// cached returns the persisted endpoint when it is fresh and still
// among the candidates.
func (s *Selector) cached(candidates []Endpoint) (Endpoint, bool) {
	if s.PrefPath == "" {
		return Endpoint{}, false
	}
	pref, err := LoadPreference(s.PrefPath)
	if err != nil || pref == nil {
		return Endpoint{}, false
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if s.clock()().Sub(pref.SavedAt) > ttl {
		return Endpoint{}, false
	}
	for _, ep := range candidates {
		if ep.Name == pref.Region {
			return ep, true
		}
	}
	return Endpoint{}, false
}

// probeAll measures every candidate concurrently. A probe that errors
// or times out yields latency -1 (treated as +inf by the caller) and is
// never fatal on its own.
func (s *Selector) probeAll(ctx context.Context, candidates []Endpoint) ([]time.Duration, error) {
	logger := logging.New("region")
	timeout := s.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	latencies := make([]time.Duration, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	for i, ep := range candidates {
		g.Go(func() error {
			d, err := s.probe(gctx, ep, timeout)
			if err != nil {
				logger.Debug("probe failed", "region", ep.Name, "error", err)
				latencies[i] = -1
				return nil
			}
			logger.Debug("probe ok", "region", ep.Name, "latency", d)
			latencies[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return latencies, nil
}

// probe issues a minimal bucket listing against one endpoint and
// returns the round-trip time.
func (s *Selector) probe(ctx context.Context, ep Endpoint, timeout time.Duration) (time.Duration, error) {
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prefix := s.ProbePrefix
	if prefix == "" {
		prefix = defaultProbePrefix
	}
	u := fmt.Sprintf("%s/?list-type=2&max-keys=1&prefix=%s", ep.URL, url.QueryEscape(prefix))
	req, err := http.NewRequestWithContext(pctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("probe %s: %s", ep.Name, resp.Status)
	}
	elapsed := time.Since(start)
	if elapsed <= 0 {
		elapsed = time.Duration(math.MaxInt64)
	}
	return elapsed, nil
}

func (s *Selector) clock() func() time.Time {
	if s.now != nil {
		return s.now
	}
	return time.Now
}
