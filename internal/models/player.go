package models

// PlayerEntry is one line of the mounted player list, loaded at startup and
// immutable for the rest of the run.
type PlayerEntry struct {
	DisplayName string
}

// PlayerIdentity is a resolved player. It is scoped to a single run and
// never persisted.
type PlayerIdentity struct {
	DisplayName string
	AccountID   string
	Platform    string // empty when the lookup response carries no platform
}
