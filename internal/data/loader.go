package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"factoryops.app/assistant/internal/model"
)

// ErrNoDataFile is returned when the production data file does not exist yet.
var ErrNoDataFile = errors.New("production data file not found")

// LoadFile reads and validates a production snapshot from a JSON file.
func LoadFile(path string) (*model.Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoDataFile, path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if err := Validate(&snap); err != nil {
		return nil, fmt.Errorf("invalid snapshot %s: %w", path, err)
	}
	return &snap, nil
}

// SaveFile writes snap to path via a temp file and rename, so readers
// (including the file watcher) never see a half-written file.
func SaveFile(path string, snap *model.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".production-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// Validate checks structural invariants the metrics engine relies on.
func Validate(snap *model.Snapshot) error {
	if snap.Production == nil {
		return errors.New("production section is missing")
	}
	if len(snap.Machines) == 0 {
		return errors.New("machine inventory is empty")
	}

	start, err := model.ParseDate(snap.StartDate)
	if err != nil {
		return fmt.Errorf("start_date: %w", err)
	}
	end, err := model.ParseDate(snap.EndDate)
	if err != nil {
		return fmt.Errorf("end_date: %w", err)
	}
	if start.After(end) {
		return fmt.Errorf("start_date %s is after end_date %s", snap.StartDate, snap.EndDate)
	}

	for date, machines := range snap.Production {
		if _, err := model.ParseDate(date); err != nil {
			return fmt.Errorf("production date %q: %w", date, err)
		}
		for name, rec := range machines {
			if rec.GoodParts+rec.ScrapParts > rec.PartsProduced {
				return fmt.Errorf("%s %s: good+scrap exceeds parts produced", date, name)
			}
			if rec.UptimeHours < 0 || rec.DowntimeHours < 0 {
				return fmt.Errorf("%s %s: negative hours", date, name)
			}
		}
	}

	for _, b := range snap.Batches {
		if b.BatchID == "" {
			return errors.New("production batch without batch_id")
		}
		if _, err := model.ParseDate(b.Date); err != nil {
			return fmt.Errorf("batch %s date: %w", b.BatchID, err)
		}
		if b.GoodParts+b.ScrapParts > b.PartsProduced {
			return fmt.Errorf("batch %s: good+scrap exceeds parts produced", b.BatchID)
		}
	}
	return nil
}
