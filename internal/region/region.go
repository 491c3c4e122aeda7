// Package region picks the archive endpoint with the lowest measured
// latency and persists the choice so later acquisitions skip probing.
package region

import (
	"fmt"
	"os"
	"path/filepath"
)

// Endpoint is one region-specific access point for the archive bucket.
type Endpoint struct {
	Name string // region identifier, e.g. "eu-central-1"
	URL  string // bucket base URL for that region
}

// regionNames lists the candidate regions in declaration order; order
// breaks latency ties.
var regionNames = []string{
	// US
	"us-east-1", "us-east-2", "us-west-1", "us-west-2",
	// Europe
	"eu-west-1", "eu-west-2", "eu-west-3", "eu-central-1",
	"eu-north-1", "eu-south-1",
	// Asia Pacific
	"ap-south-1", "ap-southeast-1", "ap-southeast-2",
	"ap-northeast-1", "ap-northeast-2", "ap-northeast-3", "ap-east-1",
	// South America
	"sa-east-1",
	// Middle East
	"me-south-1",
	// Africa
	"af-south-1",
	// Canada
	"ca-central-1",
}

// DefaultRegion is used when the operator opts out of probing.
const DefaultRegion = "us-east-1"

// DefaultCandidates returns the endpoints for bucket across every
// candidate region.
func DefaultCandidates(bucket string) []Endpoint {
	eps := make([]Endpoint, 0, len(regionNames))
	for _, r := range regionNames {
		eps = append(eps, Endpoint{Name: r, URL: EndpointURL(bucket, r)})
	}
	return eps
}

// EndpointURL builds the bucket base URL for one region.
func EndpointURL(bucket, region string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
}

// DefaultPreferencePath is the user-scoped location of the persisted
// region preference. Deleting the file forces a fresh probe round.
func DefaultPreferencePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".autorxte", "download_region.json"), nil
}
