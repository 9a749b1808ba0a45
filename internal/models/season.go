package models

import "time"

// SeasonDescriptor describes one season as reported by the seasons endpoint.
// The set is enumerated once per run and shared read-only across players.
type SeasonDescriptor struct {
	ID      int
	Chapter string
	Label   string
	Current bool
	Start   time.Time
	End     time.Time
}

// SeasonInput is the wire shape of one entry in the seasons list response
type SeasonInput struct {
	Season      int    `json:"season"`
	Chapter     string `json:"chapter"`
	DisplayName string `json:"displayName"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Current     bool   `json:"current"`
}

// seasonDateLayouts covers the formats the API has used for season dates.
var seasonDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ToSeason converts SeasonInput (from API) to a SeasonDescriptor.
// Unparseable dates are left zero rather than failing the season.
func (si *SeasonInput) ToSeason() *SeasonDescriptor {
	return &SeasonDescriptor{
		ID:      si.Season,
		Chapter: si.Chapter,
		Label:   si.DisplayName,
		Current: si.Current,
		Start:   parseSeasonDate(si.StartDate),
		End:     parseSeasonDate(si.EndDate),
	}
}

func parseSeasonDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range seasonDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// CurrentSeason returns the season flagged as current, falling back to the
// highest season id when no entry carries the flag. Returns nil for an
// empty set.
func CurrentSeason(seasons []SeasonDescriptor) *SeasonDescriptor {
	if len(seasons) == 0 {
		return nil
	}

	latest := &seasons[0]
	for i := range seasons {
		s := &seasons[i]
		if s.Current {
			return s
		}
		if s.ID > latest.ID {
			latest = s
		}
	}
	return latest
}
