package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CanonicalHeader is the USGS CSV column order. Every normalized catalog
// starts with exactly this header.
var CanonicalHeader = []string{
	"time", "latitude", "longitude", "depth", "mag", "magType", "nst", "gap",
	"dmin", "rms", "net", "id", "updated", "place", "type", "horizontalError",
	"depthError", "magError", "magNst", "status", "locationSource", "magSource",
}

// Column indexes into a canonical row.
const (
	colTime = iota
	colLatitude
	colLongitude
	colDepth
	colMag
	colMagType
	colNst
	colGap
	colDmin
	colRMS
	colNet
	colID
	colUpdated
	colPlace
	colType
	colHorizontalError
	colDepthError
	colMagError
	colMagNst
	colStatus
	colLocationSource
	colMagSource
)

// earthquakeType is the only event type kept in a normalized catalog.
const earthquakeType = "earthquake"

// IsCanonicalHeader reports whether row is the canonical header, ignoring
// surrounding quotes and whitespace on each field.
func IsCanonicalHeader(row []string) bool {
	if len(row) != len(CanonicalHeader) {
		return false
	}
	for i, name := range CanonicalHeader {
		if cleanField(row[i]) != name {
			return false
		}
	}
	return true
}

func cleanField(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}

// Validator decides which raw catalog rows are kept.
type Validator struct {
	// RejectNullIsland drops rows located at exactly 0,0. Off by default so
	// that catalogs match what earlier releases produced.
	RejectNullIsland bool
}

// Keep reports whether a raw row is a complete, in-bounds earthquake.
func (v Validator) Keep(row []string) bool {
	if isBlank(row) || len(row) <= colType {
		return false
	}

	latRaw := strings.TrimSpace(row[colLatitude])
	lonRaw := strings.TrimSpace(row[colLongitude])
	magRaw := strings.TrimSpace(row[colMag])
	if latRaw == "" || lonRaw == "" || magRaw == "" {
		return false
	}

	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil || !(lat >= -90 && lat <= 90) {
		return false
	}
	lon, err := strconv.ParseFloat(lonRaw, 64)
	if err != nil || !(lon >= -180 && lon <= 180) {
		return false
	}
	if v.RejectNullIsland && lat == 0 && lon == 0 {
		return false
	}

	return strings.ToLower(strings.TrimSpace(row[colType])) == earthquakeType
}

// Keep applies the default Validator.
func Keep(row []string) bool {
	return Validator{}.Keep(row)
}

func isBlank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// EarthquakeRecord is a typed catalog row handed to downstream consumers.
// Optional numeric columns are nil when the upstream value is empty.
type EarthquakeRecord struct {
	ID              string    `json:"id"`
	Time            time.Time `json:"time"`
	Updated         time.Time `json:"updated"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	Depth           *float64  `json:"depth,omitempty"`
	Magnitude       float64   `json:"mag"`
	MagType         string    `json:"mag_type,omitempty"`
	Nst             *int      `json:"nst,omitempty"`
	Gap             *float64  `json:"gap,omitempty"`
	Dmin            *float64  `json:"dmin,omitempty"`
	RMS             *float64  `json:"rms,omitempty"`
	Net             string    `json:"net,omitempty"`
	Place           string    `json:"place,omitempty"`
	Type            string    `json:"type"`
	HorizontalError *float64  `json:"horizontal_error,omitempty"`
	DepthError      *float64  `json:"depth_error,omitempty"`
	MagError        *float64  `json:"mag_error,omitempty"`
	MagNst          *int      `json:"mag_nst,omitempty"`
	Status          string    `json:"status,omitempty"`
	LocationSource  string    `json:"location_source,omitempty"`
	MagSource       string    `json:"mag_source,omitempty"`

	ProcessedAt time.Time `json:"processed_at"`
}

// ParseRecord converts a validated canonical row into an EarthquakeRecord.
func ParseRecord(row []string) (EarthquakeRecord, error) {
	if len(row) < len(CanonicalHeader) {
		return EarthquakeRecord{}, fmt.Errorf("parse record: want %d fields, got %d", len(CanonicalHeader), len(row))
	}

	eventTime, err := parseTime(row[colTime])
	if err != nil {
		return EarthquakeRecord{}, fmt.Errorf("parse record time: %w", err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(row[colLatitude]), 64)
	if err != nil {
		return EarthquakeRecord{}, fmt.Errorf("parse record latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(row[colLongitude]), 64)
	if err != nil {
		return EarthquakeRecord{}, fmt.Errorf("parse record longitude: %w", err)
	}
	mag, err := strconv.ParseFloat(strings.TrimSpace(row[colMag]), 64)
	if err != nil {
		return EarthquakeRecord{}, fmt.Errorf("parse record magnitude: %w", err)
	}

	// An unparseable "updated" stamp is not worth dropping the event for.
	updated, _ := parseTime(row[colUpdated])

	return EarthquakeRecord{
		ID:              strings.TrimSpace(row[colID]),
		Time:            eventTime,
		Updated:         updated,
		Latitude:        lat,
		Longitude:       lon,
		Depth:           optionalFloat(row[colDepth]),
		Magnitude:       mag,
		MagType:         strings.TrimSpace(row[colMagType]),
		Nst:             optionalInt(row[colNst]),
		Gap:             optionalFloat(row[colGap]),
		Dmin:            optionalFloat(row[colDmin]),
		RMS:             optionalFloat(row[colRMS]),
		Net:             strings.TrimSpace(row[colNet]),
		Place:           strings.TrimSpace(row[colPlace]),
		Type:            strings.ToLower(strings.TrimSpace(row[colType])),
		HorizontalError: optionalFloat(row[colHorizontalError]),
		DepthError:      optionalFloat(row[colDepthError]),
		MagError:        optionalFloat(row[colMagError]),
		MagNst:          optionalInt(row[colMagNst]),
		Status:          strings.TrimSpace(row[colStatus]),
		LocationSource:  strings.TrimSpace(row[colLocationSource]),
		MagSource:       strings.TrimSpace(row[colMagSource]),
		ProcessedAt:     clock.Now(),
	}, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	return time.Parse(time.RFC3339Nano, s)
}

func optionalFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// optionalInt accepts "12" and "12.0"; the query service emits both.
func optionalInt(s string) *int {
	f := optionalFloat(s)
	if f == nil {
		return nil
	}
	v := int(*f)
	return &v
}
