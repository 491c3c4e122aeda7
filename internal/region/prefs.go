package region

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Preference records a previously selected endpoint. A preference older
// than the selector's TTL is treated as absent and re-probed.
type Preference struct {
	Region    string    `json:"region"`
	LatencyMS float64   `json:"latency_ms"`
	SavedAt   time.Time `json:"saved_at"`
}

// LoadPreference reads the persisted preference. A missing or
// unreadable file returns (nil, nil): preference loss is never fatal,
// it just costs one probe round.
func LoadPreference(path string) (*Preference, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read region preference: %w", err)
	}
	var p Preference
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, nil
	}
	if p.Region == "" {
		return nil, nil
	}
	return &p, nil
}

// SavePreference writes the preference atomically (temp + rename) so a
// concurrent reader never observes a partial file.
func SavePreference(path string, p *Preference) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create preference dir: %w", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal preference: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write preference: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename preference: %w", err)
	}
	return nil
}

// RemovePreference deletes the persisted preference; a missing file is
// not an error.
func RemovePreference(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove region preference: %w", err)
	}
	return nil
}
