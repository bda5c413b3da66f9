package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// QueryInput is the loosely typed form of a query as it arrives from flags
// or a JSON request body. Spec converts it into a validated QuerySpec.
type QueryInput struct {
	Timespan     string `json:"timespan"`
	From         string `json:"from,omitempty"`
	To           string `json:"to,omitempty"`
	Magnitude    string `json:"magnitude"`
	MinMagnitude string `json:"min_magnitude,omitempty"`
	MaxMagnitude string `json:"max_magnitude,omitempty"`
}

// Spec parses and validates the input. Missing custom fields are reported
// as *InvalidSpecError rather than defaulted.
func (in QueryInput) Spec() (QuerySpec, error) {
	kind, err := ParseTimespanKind(in.Timespan)
	if err != nil {
		return QuerySpec{}, err
	}

	timespan := PresetTimespan(kind)
	if kind == CustomMonths {
		from, err := parseMonthField("from", in.From)
		if err != nil {
			return QuerySpec{}, err
		}
		to, err := parseMonthField("to", in.To)
		if err != nil {
			return QuerySpec{}, err
		}
		timespan = CustomTimespan(from, to)
	}

	magnitude, err := in.magnitude()
	if err != nil {
		return QuerySpec{}, err
	}

	spec := QuerySpec{Timespan: timespan, Magnitude: magnitude}
	if err := spec.Validate(); err != nil {
		return QuerySpec{}, err
	}
	return spec, nil
}

func (in QueryInput) magnitude() (MagnitudeFilter, error) {
	raw := strings.ToLower(strings.TrimSpace(in.Magnitude))
	switch raw {
	case "":
		return MagnitudeFilter{}, &InvalidSpecError{Field: "magnitude", Reason: "no magnitude selected"}
	case "all":
		return AllMagnitudes(), nil
	case "custom":
		lo, err := parseMagnitudeField("min_magnitude", in.MinMagnitude)
		if err != nil {
			return MagnitudeFilter{}, err
		}
		hi, err := parseMagnitudeField("max_magnitude", in.MaxMagnitude)
		if err != nil {
			return MagnitudeFilter{}, err
		}
		return MagnitudeRange(lo, hi), nil
	default:
		threshold, err := strconv.ParseFloat(strings.TrimSuffix(raw, "+"), 64)
		if err != nil {
			return MagnitudeFilter{}, &InvalidSpecError{Field: "magnitude", Reason: fmt.Sprintf("unknown magnitude %q", in.Magnitude)}
		}
		return AtLeast(threshold), nil
	}
}

func parseMonthField(field, value string) (YearMonth, error) {
	if strings.TrimSpace(value) == "" {
		return YearMonth{}, &InvalidSpecError{Field: field, Reason: "custom timespan requires a year and month (YYYY-MM)"}
	}
	ym, err := ParseYearMonth(value)
	if err != nil {
		return YearMonth{}, &InvalidSpecError{Field: field, Reason: fmt.Sprintf("%q is not a YYYY-MM month", value)}
	}
	return ym, nil
}

func parseMagnitudeField(field, value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, &InvalidSpecError{Field: field, Reason: "custom magnitude requires a value"}
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, &InvalidSpecError{Field: field, Reason: fmt.Sprintf("%q is not a number", value)}
	}
	return v, nil
}
