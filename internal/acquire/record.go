package acquire

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// progressRecord is the on-disk form of the completed-key set.
type progressRecord struct {
	Completed []string `json:"completed"`
	UpdatedAt string   `json:"updated_at"`
}

// loadRecord reads the progress record into the engine's completed set.
// A missing record is a fresh start, not an error.
func (e *Engine) loadRecord() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.completed == nil {
		e.completed = make(map[string]bool)
	}
	if e.RecordPath == "" {
		return nil
	}
	data, err := os.ReadFile(e.RecordPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var rec progressRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("parse record: %w", err)
	}
	for _, k := range rec.Completed {
		e.completed[k] = true
	}
	return nil
}

// saveRecord writes the completed set atomically (temp then rename) so
// an interrupt mid-write never corrupts the record.
func (e *Engine) saveRecord() error {
	if e.RecordPath == "" {
		return nil
	}
	e.mu.Lock()
	keys := make([]string, 0, len(e.completed))
	for k := range e.completed {
		keys = append(keys, k)
	}
	e.mu.Unlock()
	sort.Strings(keys)

	data, err := json.MarshalIndent(progressRecord{
		Completed: keys,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(e.RecordPath), 0755); err != nil {
		return err
	}
	tmp := e.RecordPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, e.RecordPath)
}

func (e *Engine) record(key string) {
	e.mu.Lock()
	e.completed[key] = true
	e.mu.Unlock()
}

func (e *Engine) isRecorded(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.completed[key]
}
