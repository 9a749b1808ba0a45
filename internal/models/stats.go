package models

// StatsDocument is the useful portion of a stats endpoint response. The
// upstream schema is externally owned: GlobalStats is keyed by game mode
// (solo, duo, squad, ...) and each mode maps stat names to whatever the API
// currently returns, so consumers must tolerate missing or additional keys.
type StatsDocument struct {
	Name        string
	Level       int
	GlobalStats map[string]map[string]interface{}
}

// StatsInput is the wire shape of a stats endpoint response
type StatsInput struct {
	Result      bool                              `json:"result"`
	Error       string                            `json:"error"`
	Name        string                            `json:"name"`
	Account     StatsAccountInput                 `json:"account"`
	GlobalStats map[string]map[string]interface{} `json:"global_stats"`
}

// StatsAccountInput carries the account sub-object of a stats response
type StatsAccountInput struct {
	Season int `json:"season"`
	Level  int `json:"level"`
}

// ToDocument converts StatsInput (from API) to a StatsDocument
func (si *StatsInput) ToDocument() *StatsDocument {
	doc := &StatsDocument{
		Name:        si.Name,
		Level:       si.Account.Level,
		GlobalStats: si.GlobalStats,
	}
	if doc.GlobalStats == nil {
		doc.GlobalStats = map[string]map[string]interface{}{}
	}
	return doc
}
