// Package config holds the persisted calibration record of a shield.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// RevisionUnset is the stored value for "no override". A nil
// HardwareRevision means the same.
const RevisionUnset uint8 = 0xFF

var ErrInvalidDivider = errors.New("invalid voltage divider")

// Record is the calibration data of one shield. R1 and R2 are the
// resistors of the input voltage divider, only their ratio matters.
type Record struct {
	R1               int64  `json:"r1"`
	R2               int64  `json:"r2"`
	HardwareRevision *uint8 `json:"hardware_revision,omitempty"`
}

func Default() Record {
	return Record{
		R1: 270000,
		R2: 44000,
	}
}

// Revision returns a HardwareRevision value for rev.
func Revision(rev uint8) *uint8 {
	return &rev
}

// RevisionOverride returns the stored revision and whether it should win
// over the detected one.
func (r Record) RevisionOverride() (uint8, bool) {
	if r.HardwareRevision == nil || *r.HardwareRevision >= RevisionUnset {
		return 0, false
	}
	return *r.HardwareRevision, true
}

func (r Record) HasRevisionOverride() bool {
	_, ok := r.RevisionOverride()
	return ok
}

// DividerRatio returns 1 + R1/R2.
func (r Record) DividerRatio() (float64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	return 1.0 + float64(r.R1)/float64(r.R2), nil
}

func (r Record) Validate() error {
	if r.R2 <= 0 || r.R1 < 0 {
		return fmt.Errorf("%w: r1=%d r2=%d", ErrInvalidDivider, r.R1, r.R2)
	}
	return nil
}

// Accessor exposes the calibration record read-only.
type Accessor interface {
	Config() Record
}

// Static serves a fixed record.
type Static Record

func (s Static) Config() Record {
	return Record(s)
}

// File is a record loaded from a JSON file.
type File struct {
	path   string
	record Record
}

func (f *File) Config() Record {
	return f.record
}

func (f *File) Path() string {
	return f.path
}

// Load reads a JSON record from path. Missing fields keep their defaults.
func Load(path string) (*File, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config %s: %w", path, err)
	}
	defer fd.Close()

	rec, err := Parse(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return &File{path: path, record: rec}, nil
}

func Parse(r io.Reader) (Record, error) {
	rec := Default()
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return Record{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}
