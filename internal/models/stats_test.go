package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsInput_ToDocument(t *testing.T) {
	input := &StatsInput{
		Result:  true,
		Name:    "Ninja",
		Account: StatsAccountInput{Season: 27, Level: 120},
		GlobalStats: map[string]map[string]interface{}{
			"solo": {"kills": float64(150)},
		},
	}

	doc := input.ToDocument()
	require.NotNil(t, doc)

	assert.Equal(t, "Ninja", doc.Name)
	assert.Equal(t, 120, doc.Level)
	assert.Equal(t, float64(150), doc.GlobalStats["solo"]["kills"])
}

func TestStatsInput_ToDocumentWithoutStats(t *testing.T) {
	input := &StatsInput{Result: true, Name: "Ninja"}

	doc := input.ToDocument()
	require.NotNil(t, doc)

	assert.NotNil(t, doc.GlobalStats)
	assert.Empty(t, doc.GlobalStats)
}
