// Package domain models USGS earthquake catalog queries and records.
//
// # Data Source
//
// The USGS Earthquake Hazards Program publishes its catalog through two
// endpoint families:
//
//	Static summary feeds, one CSV per (magnitude, window) preset:
//	  https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/4.5_week.csv
//	The FDSN event query service, accepting explicit windows and bounds:
//	  https://earthquake.usgs.gov/fdsnws/event/1/query?format=csv&starttime=...
//
// Both return the same CSV layout, described by [CanonicalHeader].
//
// # Query Model
//
// A [QuerySpec] pairs a [TimeRange] with a [MagnitudeFilter]. Each is a
// tagged variant: presets (last hour/day/week/30 days; all/1.0+/2.5+/4.5+)
// map to static feeds, while custom variants require the query service.
// Custom magnitudes are half-step values in [-1.0, 10.0].
//
// Custom time ranges are expressed at month granularity. When both the time
// range and the magnitude are custom, the range is requested one calendar
// month at a time (see [MonthChunks]); the upper month is exclusive unless
// it equals the lower month.
//
// # Record Validation
//
// Rows are kept only when latitude, longitude and magnitude are present,
// coordinates are within WGS-84 bounds, and the event type is "earthquake"
// (case-insensitive). Quarry blasts, explosions, ice quakes and other
// non-tectonic events share the same feed and are dropped. See [Validator].
//
// Time format:
//
//	ISO 8601 UTC with milliseconds, e.g. "2020-01-01T00:03:49.620Z".
//	Applies to both the "time" and "updated" columns.
package domain
