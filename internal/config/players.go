package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/aessing/fortnite-stats-2-influx-container/internal/models"
)

// LoadPlayers reads the mounted player list: one display name per line,
// surrounding whitespace trimmed, blank lines ignored. An empty result is an
// error because a collector with nothing to collect is a misconfiguration.
func LoadPlayers(path string) ([]models.PlayerEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open player list %s: %w", path, err)
	}
	defer f.Close()

	var players []models.PlayerEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		players = append(players, models.PlayerEntry{DisplayName: name})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read player list %s: %w", path, err)
	}

	if len(players) == 0 {
		return nil, fmt.Errorf("player list %s contains no players", path)
	}

	return players, nil
}
