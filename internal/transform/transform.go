package transform

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aessing/fortnite-stats-2-influx-container/internal/models"

	"github.com/rs/zerolog/log"
)

// statCategory maps one upstream stat key to the field name written to the
// database. Field names are load-bearing for dashboards and must not change.
type statCategory struct {
	key   string // key inside a game mode block of the stats document
	field string // field name written to the database
}

// knownCategories is walked in declaration order so the emitted point
// sequence is stable for identical input. Upstream keys not listed here are
// ignored.
var knownCategories = []statCategory{
	{"matchesplayed", "matches"},
	{"placetop1", "wins"},
	{"kills", "kills"},
	{"kd", "kd"},
	{"winrate", "win_rate"},
	{"score", "score"},
	{"minutesplayed", "minutes_played"},
	{"playersoutlived", "players_outlived"},
	{"placetop3", "top3"},
	{"placetop5", "top5"},
	{"placetop6", "top6"},
	{"placetop10", "top10"},
	{"placetop12", "top12"},
	{"placetop25", "top25"},
}

// PlayerPoints flattens a stats document into one point per (mode, category)
// combination present in the document. Modes are walked in sorted order and
// categories in table order, so the same inputs always produce the same
// sequence. Values that refuse numeric coercion are dropped with a warning.
func PlayerPoints(doc *models.StatsDocument, identity *models.PlayerIdentity, season *models.SeasonDescriptor, collectedAt time.Time) []models.MetricPoint {
	if doc == nil || len(doc.GlobalStats) == 0 {
		return nil
	}

	modes := make([]string, 0, len(doc.GlobalStats))
	for mode := range doc.GlobalStats {
		modes = append(modes, mode)
	}
	sort.Strings(modes)

	var points []models.MetricPoint
	for _, mode := range modes {
		stats := doc.GlobalStats[mode]
		for _, cat := range knownCategories {
			raw, ok := stats[cat.key]
			if !ok || raw == nil {
				continue
			}

			value, ok := toFloat(raw)
			if !ok {
				log.Warn().
					Str("player", identity.DisplayName).
					Str("mode", mode).
					Str("stat", cat.key).
					Msg("Dropping non-numeric stat value")
				continue
			}

			tags := map[string]string{
				models.TagPlayer: identity.DisplayName,
				models.TagMode:   mode,
			}
			if identity.Platform != "" {
				tags[models.TagPlatform] = identity.Platform
			}
			if season != nil {
				tags[models.TagSeason] = strconv.Itoa(season.ID)
			}

			points = append(points, models.MetricPoint{
				Measurement: models.MeasurementPlayerStats,
				Tags:        tags,
				Fields:      map[string]float64{cat.field: value},
				Timestamp:   collectedAt,
			})
		}
	}

	return points
}

// SeasonPoints builds one point per enumerated season. Zero dates are
// omitted rather than written as the epoch.
func SeasonPoints(seasons []models.SeasonDescriptor, collectedAt time.Time) []models.MetricPoint {
	points := make([]models.MetricPoint, 0, len(seasons))
	for i := range seasons {
		s := &seasons[i]

		fields := map[string]float64{
			"is_current": 0,
		}
		if s.Current {
			fields["is_current"] = 1
		}
		if !s.Start.IsZero() {
			fields["start_ts"] = float64(s.Start.Unix())
		}
		if !s.End.IsZero() {
			fields["end_ts"] = float64(s.End.Unix())
		}

		tags := map[string]string{
			models.TagSeason: strconv.Itoa(s.ID),
		}
		if s.Chapter != "" {
			tags[models.TagChapter] = s.Chapter
		}

		points = append(points, models.MetricPoint{
			Measurement: models.MeasurementSeasons,
			Tags:        tags,
			Fields:      fields,
			Timestamp:   collectedAt,
		})
	}

	return points
}

// toFloat coerces the value shapes the API serves. JSON numbers arrive as
// float64; bools and numeric strings appear in older payloads.
func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
