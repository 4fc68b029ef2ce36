// Package store writes the latest readings to a file for local consumers.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sweeney/filament-monitor/internal/logic"
)

// Document is the on-disk form of one tick's readings.
type Document struct {
	Temperature1    float64 `json:"temperature1"`
	Temperature2    float64 `json:"temperature2"`
	AverageTemp     float64 `json:"average_temp"`
	Humidity1       float64 `json:"humidity1"`
	Humidity2       float64 `json:"humidity2"`
	AverageHumidity float64 `json:"average_humidity"`
}

// DocumentFrom converts readings to the file format.
func DocumentFrom(r logic.Readings) Document {
	return Document{
		Temperature1:    r.Temperature1,
		Temperature2:    r.Temperature2,
		AverageTemp:     r.AverageTemperature,
		Humidity1:       r.Humidity1,
		Humidity2:       r.Humidity2,
		AverageHumidity: r.AverageHumidity,
	}
}

// File is a latest-readings file replaced atomically on every write.
type File struct {
	path string
}

// NewFile returns a File for path. The directory is created on first write.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

// Write replaces the file with r. Readers never see a partial document.
func (f *File) Write(r logic.Readings) error {
	data, err := json.Marshal(DocumentFrom(r))
	if err != nil {
		return fmt.Errorf("encode readings: %w", err)
	}
	return WriteAtomic(f.path, data)
}

// Read returns the last document written. Timestamps are not stored.
func (f *File) Read() (logic.Readings, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return logic.Readings{}, fmt.Errorf("read readings: %w", err)
	}
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return logic.Readings{}, fmt.Errorf("decode readings: %w", err)
	}
	return logic.Readings{
		Temperature1:       d.Temperature1,
		Temperature2:       d.Temperature2,
		AverageTemperature: d.AverageTemp,
		Humidity1:          d.Humidity1,
		Humidity2:          d.Humidity2,
		AverageHumidity:    d.AverageHumidity,
	}, nil
}

// WriteAtomic writes data to a temp file in the target directory, syncs it
// and renames it over path.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp_readings_*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
