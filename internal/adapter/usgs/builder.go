package usgs

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/quake-catalog-etl/internal/domain"
)

const (
	DefaultFeedBaseURL = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/"
	DefaultQueryURL    = "https://earthquake.usgs.gov/fdsnws/event/1/query"

	// queryTimeLayout is accepted by the FDSN event service as a UTC instant.
	queryTimeLayout = "2006-01-02T15:04:05"
)

// Builder translates a QuerySpec into a RequestPlan against the USGS feed
// and query endpoints.
type Builder struct {
	feedBaseURL string
	queryURL    string
}

// NewBuilder creates a Builder. The feed base URL gets a trailing slash if it lacks one.
func NewBuilder(feedBaseURL, queryURL string) *Builder {
	if !strings.HasSuffix(feedBaseURL, "/") {
		feedBaseURL += "/"
	}
	return &Builder{feedBaseURL: feedBaseURL, queryURL: queryURL}
}

// Build validates the spec and returns the ordered downloads that cover it.
// It never defaults missing fields: an incomplete spec is an *InvalidSpecError.
func (b *Builder) Build(spec domain.QuerySpec) (domain.RequestPlan, error) {
	if err := spec.Validate(); err != nil {
		return domain.RequestPlan{}, err
	}

	ts, mag := spec.Timespan, spec.Magnitude
	switch {
	case !ts.IsCustom() && !mag.IsCustom():
		return b.feedPlan(ts, mag), nil
	case !ts.IsCustom():
		end := domain.Now().UTC().Truncate(time.Second)
		start := end.Add(-ts.Kind.Duration())
		return b.queryPlan(start, end, mag), nil
	case !mag.IsCustom():
		return b.queryPlan(ts.From.FirstDay(), endOfDay(ts.To.LastDay()), mag), nil
	default:
		return b.monthlyPlan(ts, mag), nil
	}
}

func (b *Builder) feedPlan(ts domain.TimeRange, mag domain.MagnitudeFilter) domain.RequestPlan {
	name := mag.FeedToken() + ts.Kind.FeedToken() + ".csv"
	return domain.RequestPlan{
		Kind:     domain.PlanFeed,
		Requests: []domain.Request{{URL: b.feedBaseURL + name, Label: name}},
	}
}

func (b *Builder) queryPlan(start, end time.Time, mag domain.MagnitudeFilter) domain.RequestPlan {
	label := fmt.Sprintf("%s to %s", start.Format(time.DateOnly), end.Format(time.DateOnly))
	return domain.RequestPlan{
		Kind:     domain.PlanQuery,
		Requests: []domain.Request{{URL: b.queryURLFor(start, end, mag), Label: label}},
	}
}

func (b *Builder) monthlyPlan(ts domain.TimeRange, mag domain.MagnitudeFilter) domain.RequestPlan {
	plan := domain.RequestPlan{Kind: domain.PlanMonthly}
	for chunk := range domain.MonthChunks(ts.From, ts.To) {
		plan.Requests = append(plan.Requests, domain.Request{
			URL:   b.queryURLFor(chunk.Start, endOfDay(chunk.End), mag),
			Label: chunk.Start.Format("2006-01"),
			Chunk: &chunk,
		})
	}
	return plan
}

func (b *Builder) queryURLFor(start, end time.Time, mag domain.MagnitudeFilter) string {
	params := url.Values{
		"format":    {"csv"},
		"starttime": {start.UTC().Format(queryTimeLayout)},
		"endtime":   {end.UTC().Format(queryTimeLayout)},
	}
	switch mag.Kind {
	case domain.MagnitudeAtLeast:
		params.Set("minmagnitude", domain.FormatMagnitude(mag.Threshold))
	case domain.MagnitudeCustom:
		params.Set("minmagnitude", domain.FormatMagnitude(mag.Min))
		params.Set("maxmagnitude", domain.FormatMagnitude(mag.Max))
	}
	return b.queryURL + "?" + params.Encode()
}

// endOfDay returns the last second of t's calendar day.
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}
