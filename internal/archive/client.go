// Package archive talks to the remote observation archive: catalog
// search for observation identifiers, manifest listing of a key prefix,
// and object fetch from the region-specific bucket endpoint.
package archive

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config holds archive connection settings.
type Config struct {
	// CatalogURL is the base URL of the catalog search service.
	CatalogURL string
	// BucketURL is the region-specific bucket endpoint chosen by the
	// region selector.
	BucketURL string
	// Timeout bounds each request; zero means 60s.
	Timeout time.Duration
}

// Client is the archive API client.
type Client struct {
	HTTPClient *http.Client
	Config     Config
}

// NewClient returns a client with the given config. HTTPClient is
// created with the configured timeout.
func NewClient(cfg Config) *Client {
	cfg.CatalogURL = strings.TrimSuffix(cfg.CatalogURL, "/")
	cfg.BucketURL = strings.TrimSuffix(cfg.BucketURL, "/")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		Config:     cfg,
	}
}

// Object is one manifest entry under a prefix.
type Object struct {
	Key  string
	Size int64
	// Checksum is a content hash when the manifest provides one
	// (hex SHA-256); empty otherwise, in which case integrity checks
	// fall back to size comparison.
	Checksum string
}

// listBucketResult mirrors the bucket listing XML document.
type listBucketResult struct {
	IsTruncated           bool   `xml:"IsTruncated"`
	NextContinuationToken string `xml:"NextContinuationToken"`
	Contents              []struct {
		Key          string `xml:"Key"`
		Size         int64  `xml:"Size"`
		ChecksumSHA string `xml:"ChecksumSHA256"`
	} `xml:"Contents"`
}

// ListObjects returns the manifest of every object under prefix,
// following continuation tokens until the listing is complete.
func (c *Client) ListObjects(ctx context.Context, prefix string) ([]Object, error) {
	var objs []Object
	token := ""
	for {
		u := fmt.Sprintf("%s/?list-type=2&prefix=%s&max-keys=1000", c.Config.BucketURL, url.QueryEscape(prefix))
		if token != "" {
			u += "&continuation-token=" + url.QueryEscape(token)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("new request: %w", err)
		}
		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			resp.Body.Close()
			return nil, fmt.Errorf("list objects %s: %s", resp.Status, strings.TrimSpace(string(body)))
		}
		var page listBucketResult
		if err := xml.NewDecoder(resp.Body).Decode(&page); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("decode listing: %w", err)
		}
		resp.Body.Close()
		for _, e := range page.Contents {
			objs = append(objs, Object{Key: e.Key, Size: e.Size, Checksum: e.ChecksumSHA})
		}
		if !page.IsTruncated || page.NextContinuationToken == "" {
			break
		}
		token = page.NextContinuationToken
	}
	return objs, nil
}

// Fetch streams one object into w and returns the byte count.
func (c *Client) Fetch(ctx context.Context, key string, w io.Writer) (int64, error) {
	u := c.Config.BucketURL + "/" + escapeKey(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("new request: %w", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", key, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch %s: %s", key, resp.Status)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("fetch %s: %w", key, err)
	}
	return n, nil
}

// escapeKey percent-encodes a key path segment by segment, keeping the
// slashes that structure archive keys.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// ObservationPrefix builds the archive key prefix for one observation:
// rxte/data/archive/AO<cycle>/P<proposal>/<obsid>/ where the proposal
// number is the first five digits of the obsid.
func ObservationPrefix(cycle int, obsID string) string {
	prop := obsID
	if len(prop) > 5 {
		prop = prop[:5]
	}
	return fmt.Sprintf("rxte/data/archive/AO%d/P%s/%s/", cycle, prop, obsID)
}
