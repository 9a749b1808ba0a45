package models

import "time"

// Measurement names written by this collector. These are load-bearing for
// dashboards built on previously collected data and must not change.
const (
	MeasurementPlayerStats = "player_stats"
	MeasurementSeasons     = "fortnite_seasons"
)

// Tag keys attached to points.
const (
	TagPlayer   = "player"
	TagPlatform = "platform"
	TagSeason   = "season"
	TagMode     = "mode"
	TagChapter  = "chapter"
)

// MetricPoint is the atomic unit written to the time-series database: one
// measurement with its tag set, numeric fields, and a collection timestamp.
// Points live only until their batch is written.
type MetricPoint struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]float64
	Timestamp   time.Time
}
