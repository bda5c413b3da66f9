package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimespanKind identifies a preset query window or a custom month range.
type TimespanKind int

const (
	TimespanUnset TimespanKind = iota
	LastHour
	LastDay
	LastWeek
	Last30Days
	CustomMonths
)

// String returns the name used on the command line and in run requests.
func (k TimespanKind) String() string {
	switch k {
	case LastHour:
		return "hour"
	case LastDay:
		return "day"
	case LastWeek:
		return "week"
	case Last30Days:
		return "30days"
	case CustomMonths:
		return "custom"
	default:
		return "unset"
	}
}

// FeedToken is the static summary feed suffix for a preset window.
func (k TimespanKind) FeedToken() string {
	switch k {
	case LastHour:
		return "_hour"
	case LastDay:
		return "_day"
	case LastWeek:
		return "_week"
	case Last30Days:
		return "_month"
	default:
		return ""
	}
}

// Duration is the look-back of a preset window, or zero for custom ranges.
func (k TimespanKind) Duration() time.Duration {
	switch k {
	case LastHour:
		return time.Hour
	case LastDay:
		return 24 * time.Hour
	case LastWeek:
		return 7 * 24 * time.Hour
	case Last30Days:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// ParseTimespanKind accepts the names produced by TimespanKind.String.
// "month" is accepted as an alias for the 30-day window.
func ParseTimespanKind(s string) (TimespanKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hour":
		return LastHour, nil
	case "day":
		return LastDay, nil
	case "week":
		return LastWeek, nil
	case "30days", "month":
		return Last30Days, nil
	case "custom":
		return CustomMonths, nil
	case "":
		return TimespanUnset, &InvalidSpecError{Field: "timespan", Reason: "no timespan selected"}
	default:
		return TimespanUnset, &InvalidSpecError{Field: "timespan", Reason: fmt.Sprintf("unknown timespan %q", s)}
	}
}

// YearMonth is a calendar month. The zero value means "not chosen".
type YearMonth struct {
	Year  int
	Month time.Month
}

// ParseYearMonth parses "YYYY-MM".
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return YearMonth{}, fmt.Errorf("parse year-month %q: %w", s, err)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// IsZero reports whether the month has not been chosen.
func (ym YearMonth) IsZero() bool {
	return ym.Year == 0 && ym.Month == 0
}

// Before compares year first, then month.
func (ym YearMonth) Before(o YearMonth) bool {
	if ym.Year != o.Year {
		return ym.Year < o.Year
	}
	return ym.Month < o.Month
}

// Next returns the following calendar month.
func (ym YearMonth) Next() YearMonth {
	if ym.Month == time.December {
		return YearMonth{Year: ym.Year + 1, Month: time.January}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month + 1}
}

// FirstDay returns midnight UTC on the first day of the month.
func (ym YearMonth) FirstDay() time.Time {
	return time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC)
}

// LastDay returns midnight UTC on the last day of the month, leap years included.
func (ym YearMonth) LastDay() time.Time {
	return time.Date(ym.Year, ym.Month+1, 0, 0, 0, 0, 0, time.UTC)
}

// TimeRange is either a preset window or a custom From..To month range.
type TimeRange struct {
	Kind TimespanKind
	From YearMonth
	To   YearMonth
}

// PresetTimespan returns a non-custom window.
func PresetTimespan(k TimespanKind) TimeRange {
	return TimeRange{Kind: k}
}

// CustomTimespan returns a month range.
func CustomTimespan(from, to YearMonth) TimeRange {
	return TimeRange{Kind: CustomMonths, From: from, To: to}
}

// IsCustom reports whether the range needs the query service.
func (r TimeRange) IsCustom() bool {
	return r.Kind == CustomMonths
}

// MagnitudeKind identifies the magnitude filter variant.
type MagnitudeKind int

const (
	MagnitudeUnset MagnitudeKind = iota
	MagnitudeAll
	MagnitudeAtLeast
	MagnitudeCustom
)

// Magnitude bounds for custom filters.
const (
	MinMagnitude = -1.0
	MaxMagnitude = 10.0
)

// presetThresholds are the thresholds with a static summary feed.
var presetThresholds = []float64{1.0, 2.5, 4.5}

// MagnitudeFilter is one of: all events, events at or above a preset
// threshold, or a custom Min..Max range.
type MagnitudeFilter struct {
	Kind      MagnitudeKind
	Threshold float64
	Min       float64
	Max       float64
}

// AllMagnitudes returns the unfiltered variant.
func AllMagnitudes() MagnitudeFilter {
	return MagnitudeFilter{Kind: MagnitudeAll}
}

// AtLeast returns a preset threshold filter.
func AtLeast(threshold float64) MagnitudeFilter {
	return MagnitudeFilter{Kind: MagnitudeAtLeast, Threshold: threshold}
}

// MagnitudeRange returns a custom filter.
func MagnitudeRange(lo, hi float64) MagnitudeFilter {
	return MagnitudeFilter{Kind: MagnitudeCustom, Min: lo, Max: hi}
}

// IsCustom reports whether the filter needs explicit min/max parameters.
func (m MagnitudeFilter) IsCustom() bool {
	return m.Kind == MagnitudeCustom
}

// FeedToken is the static summary feed prefix, e.g. "all" or "4.5".
func (m MagnitudeFilter) FeedToken() string {
	switch m.Kind {
	case MagnitudeAll:
		return "all"
	case MagnitudeAtLeast:
		return FormatMagnitude(m.Threshold)
	default:
		return ""
	}
}

// String returns a short label for logs.
func (m MagnitudeFilter) String() string {
	switch m.Kind {
	case MagnitudeAll:
		return "all"
	case MagnitudeAtLeast:
		return FormatMagnitude(m.Threshold) + "+"
	case MagnitudeCustom:
		return FormatMagnitude(m.Min) + ".." + FormatMagnitude(m.Max)
	default:
		return "unset"
	}
}

// FormatMagnitude renders a magnitude with one decimal place.
func FormatMagnitude(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// QuerySpec describes the slice of the catalog a run should acquire.
// It is built once from user input and never mutated.
type QuerySpec struct {
	Timespan  TimeRange
	Magnitude MagnitudeFilter
}

func (q QuerySpec) String() string {
	if q.Timespan.IsCustom() {
		return fmt.Sprintf("%s..%s mag %s", q.Timespan.From, q.Timespan.To, q.Magnitude)
	}
	return fmt.Sprintf("%s mag %s", q.Timespan.Kind, q.Magnitude)
}

// Validate checks that the spec is complete and consistent. It returns an
// *InvalidSpecError naming the first offending field.
func (q QuerySpec) Validate() error {
	if err := q.Timespan.validate(); err != nil {
		return err
	}
	return q.Magnitude.validate()
}

func (r TimeRange) validate() error {
	switch r.Kind {
	case LastHour, LastDay, LastWeek, Last30Days:
		return nil
	case CustomMonths:
	default:
		return &InvalidSpecError{Field: "timespan", Reason: "no timespan selected"}
	}

	if r.From.IsZero() {
		return &InvalidSpecError{Field: "from", Reason: "custom timespan requires a start year and month"}
	}
	if r.To.IsZero() {
		return &InvalidSpecError{Field: "to", Reason: "custom timespan requires an end year and month"}
	}
	if r.From.Month < time.January || r.From.Month > time.December {
		return &InvalidSpecError{Field: "from", Reason: fmt.Sprintf("month %d out of range", r.From.Month)}
	}
	if r.To.Month < time.January || r.To.Month > time.December {
		return &InvalidSpecError{Field: "to", Reason: fmt.Sprintf("month %d out of range", r.To.Month)}
	}
	if r.To.Before(r.From) {
		return &InvalidSpecError{Field: "from", Reason: fmt.Sprintf("start %s is after end %s", r.From, r.To)}
	}
	return nil
}

func (m MagnitudeFilter) validate() error {
	switch m.Kind {
	case MagnitudeAll:
		return nil
	case MagnitudeAtLeast:
		for _, t := range presetThresholds {
			if m.Threshold == t {
				return nil
			}
		}
		return &InvalidSpecError{Field: "magnitude", Reason: fmt.Sprintf("no preset feed for magnitude %s", FormatMagnitude(m.Threshold))}
	case MagnitudeCustom:
		if !isHalfStep(m.Min) {
			return &InvalidSpecError{Field: "min_magnitude", Reason: fmt.Sprintf("%g is not a half-step value in [%.1f, %.1f]", m.Min, MinMagnitude, MaxMagnitude)}
		}
		if !isHalfStep(m.Max) {
			return &InvalidSpecError{Field: "max_magnitude", Reason: fmt.Sprintf("%g is not a half-step value in [%.1f, %.1f]", m.Max, MinMagnitude, MaxMagnitude)}
		}
		if m.Min > m.Max {
			return &InvalidSpecError{Field: "min_magnitude", Reason: fmt.Sprintf("minimum %s is greater than maximum %s", FormatMagnitude(m.Min), FormatMagnitude(m.Max))}
		}
		return nil
	default:
		return &InvalidSpecError{Field: "magnitude", Reason: "no magnitude selected"}
	}
}

func isHalfStep(v float64) bool {
	if math.IsNaN(v) || v < MinMagnitude || v > MaxMagnitude {
		return false
	}
	return v*2 == math.Trunc(v*2)
}
