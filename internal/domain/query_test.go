package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuerySpec_Validate(t *testing.T) {
	jan2020 := YearMonth{Year: 2020, Month: time.January}
	apr2020 := YearMonth{Year: 2020, Month: time.April}

	tests := []struct {
		name    string
		spec    QuerySpec
		field   string
		wantErr bool
	}{
		{"preset window with preset magnitude", QuerySpec{PresetTimespan(LastWeek), AtLeast(4.5)}, "", false},
		{"preset window with all", QuerySpec{PresetTimespan(LastHour), AllMagnitudes()}, "", false},
		{"custom range", QuerySpec{CustomTimespan(jan2020, apr2020), AllMagnitudes()}, "", false},
		{"equal custom magnitudes", QuerySpec{PresetTimespan(LastDay), MagnitudeRange(4.5, 4.5)}, "", false},
		{"full magnitude range", QuerySpec{PresetTimespan(LastDay), MagnitudeRange(-1.0, 10.0)}, "", false},
		{"no timespan", QuerySpec{Magnitude: AllMagnitudes()}, "timespan", true},
		{"no magnitude", QuerySpec{Timespan: PresetTimespan(LastDay)}, "magnitude", true},
		{"custom range missing from", QuerySpec{CustomTimespan(YearMonth{}, apr2020), AllMagnitudes()}, "from", true},
		{"custom range missing to", QuerySpec{CustomTimespan(jan2020, YearMonth{}), AllMagnitudes()}, "to", true},
		{"from after to", QuerySpec{CustomTimespan(apr2020, jan2020), AllMagnitudes()}, "from", true},
		{"month out of range", QuerySpec{CustomTimespan(YearMonth{Year: 2020, Month: 13}, apr2020), AllMagnitudes()}, "from", true},
		{"min above max", QuerySpec{PresetTimespan(LastDay), MagnitudeRange(5.0, 4.5)}, "min_magnitude", true},
		{"not a half step", QuerySpec{PresetTimespan(LastDay), MagnitudeRange(4.2, 5.0)}, "min_magnitude", true},
		{"above upper bound", QuerySpec{PresetTimespan(LastDay), MagnitudeRange(4.5, 10.5)}, "max_magnitude", true},
		{"below lower bound", QuerySpec{PresetTimespan(LastDay), MagnitudeRange(-1.5, 2.0)}, "min_magnitude", true},
		{"unknown preset threshold", QuerySpec{PresetTimespan(LastDay), AtLeast(3.0)}, "magnitude", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var specErr *InvalidSpecError
			require.True(t, errors.As(err, &specErr), "want *InvalidSpecError, got %v", err)
			assert.Equal(t, tt.field, specErr.Field)
		})
	}
}

func TestYearMonth(t *testing.T) {
	ym, err := ParseYearMonth("2020-02")
	require.NoError(t, err)
	assert.Equal(t, YearMonth{Year: 2020, Month: time.February}, ym)
	assert.Equal(t, "2020-02", ym.String())
	assert.Equal(t, time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC), ym.LastDay())
	assert.Equal(t, time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC), ym.FirstDay())

	dec := YearMonth{Year: 2021, Month: time.December}
	assert.Equal(t, YearMonth{Year: 2022, Month: time.January}, dec.Next())
	assert.True(t, dec.Before(YearMonth{Year: 2022, Month: time.January}))
	assert.False(t, dec.Before(YearMonth{Year: 2021, Month: time.November}))

	_, err = ParseYearMonth("2020/02")
	assert.Error(t, err)
}

func TestTimespanKind_Tokens(t *testing.T) {
	assert.Equal(t, "_hour", LastHour.FeedToken())
	assert.Equal(t, "_day", LastDay.FeedToken())
	assert.Equal(t, "_week", LastWeek.FeedToken())
	assert.Equal(t, "_month", Last30Days.FeedToken())

	assert.Equal(t, time.Hour, LastHour.Duration())
	assert.Equal(t, 24*time.Hour, LastDay.Duration())
	assert.Equal(t, 7*24*time.Hour, LastWeek.Duration())
	assert.Equal(t, 30*24*time.Hour, Last30Days.Duration())
	assert.Zero(t, CustomMonths.Duration())
}

func TestMagnitudeFilter_FeedToken(t *testing.T) {
	assert.Equal(t, "all", AllMagnitudes().FeedToken())
	assert.Equal(t, "1.0", AtLeast(1.0).FeedToken())
	assert.Equal(t, "2.5", AtLeast(2.5).FeedToken())
	assert.Equal(t, "4.5", AtLeast(4.5).FeedToken())
	assert.Empty(t, MagnitudeRange(1, 2).FeedToken())
}

func TestQueryInput_Spec(t *testing.T) {
	t.Run("preset", func(t *testing.T) {
		spec, err := QueryInput{Timespan: "week", Magnitude: "4.5"}.Spec()
		require.NoError(t, err)
		assert.Equal(t, QuerySpec{PresetTimespan(LastWeek), AtLeast(4.5)}, spec)
	})

	t.Run("custom everything", func(t *testing.T) {
		spec, err := QueryInput{
			Timespan: "custom", From: "2020-01", To: "2020-04",
			Magnitude: "custom", MinMagnitude: "2.5", MaxMagnitude: "6.0",
		}.Spec()
		require.NoError(t, err)
		assert.Equal(t, CustomMonths, spec.Timespan.Kind)
		assert.Equal(t, YearMonth{Year: 2020, Month: time.January}, spec.Timespan.From)
		assert.Equal(t, YearMonth{Year: 2020, Month: time.April}, spec.Timespan.To)
		assert.Equal(t, MagnitudeRange(2.5, 6.0), spec.Magnitude)
	})

	t.Run("30 day alias", func(t *testing.T) {
		spec, err := QueryInput{Timespan: "month", Magnitude: "all"}.Spec()
		require.NoError(t, err)
		assert.Equal(t, Last30Days, spec.Timespan.Kind)
	})

	errorCases := []struct {
		name  string
		in    QueryInput
		field string
	}{
		{"custom without months", QueryInput{Timespan: "custom", Magnitude: "all"}, "from"},
		{"custom bad month", QueryInput{Timespan: "custom", From: "2020-1x", To: "2020-03", Magnitude: "all"}, "from"},
		{"custom magnitude missing max", QueryInput{Timespan: "day", Magnitude: "custom", MinMagnitude: "2.0"}, "max_magnitude"},
		{"unknown timespan", QueryInput{Timespan: "fortnight", Magnitude: "all"}, "timespan"},
		{"unknown magnitude", QueryInput{Timespan: "day", Magnitude: "big"}, "magnitude"},
		{"empty magnitude", QueryInput{Timespan: "day"}, "magnitude"},
		{"reversed magnitudes", QueryInput{Timespan: "day", Magnitude: "custom", MinMagnitude: "5.0", MaxMagnitude: "4.5"}, "min_magnitude"},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.in.Spec()
			var specErr *InvalidSpecError
			require.ErrorAs(t, err, &specErr)
			assert.Equal(t, tc.field, specErr.Field)
		})
	}
}
