// Package training turns a traffic dataset into persisted model artifacts.
package training

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"pathpioneer/features"
)

const (
	ColTimestamp  = "timestamp"
	ColLocationID = "location_id"
	ColSpeed      = "speed"
)

var RequiredColumns = []string{ColTimestamp, ColLocationID, ColSpeed}

// Dataset is the loaded input before feature building.
type Dataset struct {
	Records []features.RawRecord
	// DroppedSpeeds counts rows whose speed could not be parsed.
	DroppedSpeeds int
}

// MissingColumnsError reports required columns absent after renaming.
type MissingColumnsError struct {
	Missing []string
	Present []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf(
		"dataset missing columns: [%s]; fix: set TRAIN_COLUMN_MAP (Source:destination,...) to match your CSV headers; columns present: [%s]",
		strings.Join(e.Missing, ", "), strings.Join(e.Present, ", "),
	)
}

// RenameColumns applies colmap to header. A rename happens only when the
// source column exists and the destination does not.
func RenameColumns(header []string, colmap map[string]string) []string {
	out := slices.Clone(header)
	for _, src := range slices.Sorted(maps.Keys(colmap)) {
		dst := colmap[src]
		i := slices.Index(out, src)
		if i < 0 || slices.Contains(out, dst) {
			continue
		}
		out[i] = dst
	}
	return out
}

func ValidateColumns(header []string) error {
	var missing []string
	for _, c := range RequiredColumns {
		if !slices.Contains(header, c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Missing: missing, Present: slices.Clone(header)}
	}
	return nil
}

// ReadCSV reads a headered CSV, renames its columns and extracts the
// required fields.
func ReadCSV(r io.Reader, colmap map[string]string) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("dataset is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	header = RenameColumns(header, colmap)
	if err := ValidateColumns(header); err != nil {
		return nil, err
	}
	tsIdx := slices.Index(header, ColTimestamp)
	locIdx := slices.Index(header, ColLocationID)
	speedIdx := slices.Index(header, ColSpeed)

	ds := &Dataset{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		speed, err := strconv.ParseFloat(strings.TrimSpace(field(rec, speedIdx)), 64)
		if err != nil || math.IsNaN(speed) || math.IsInf(speed, 0) {
			ds.DroppedSpeeds++
			continue
		}
		ds.Records = append(ds.Records, features.RawRecord{
			Timestamp:  strings.TrimSpace(field(rec, tsIdx)),
			LocationID: strings.TrimSpace(field(rec, locIdx)),
			Speed:      speed,
		})
	}
	return ds, nil
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}
