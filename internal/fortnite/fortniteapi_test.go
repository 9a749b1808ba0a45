package fortnite

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aessing/fortnite-stats-2-influx-container/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		LookupURL:     srv.URL + "/v1/lookup",
		StatsURL:      srv.URL + "/v1/stats",
		SeasonsURL:    srv.URL + "/v1/seasons/list",
		Token:         "test-token",
		Timeout:       5 * time.Second,
		MaxRetries:    2,
		RetryDelay:    time.Millisecond,
		RetryDelayCap: 5 * time.Millisecond,
	})
}

func TestClient_LookupResolvesPlayer(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/lookup", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "Ninja", r.URL.Query().Get("username"))
		assert.Equal(t, "true", r.URL.Query().Get("strict"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result": true, "account_id": "4735ce91", "platform": "epic"}`))
	})

	identity, err := client.Lookup(context.Background(), "Ninja")
	require.NoError(t, err)

	assert.Equal(t, "Ninja", identity.DisplayName)
	assert.Equal(t, "4735ce91", identity.AccountID)
	assert.Equal(t, "epic", identity.Platform)
}

func TestClient_LookupNestedAccountShapes(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("username") {
		case "nested-result":
			w.Write([]byte(`{"result": {"account_id": "aaa111"}}`))
		case "nested-account":
			w.Write([]byte(`{"account": {"id": "bbb222"}}`))
		}
	})

	identity, err := client.Lookup(context.Background(), "nested-result")
	require.NoError(t, err)
	assert.Equal(t, "aaa111", identity.AccountID)

	identity, err = client.Lookup(context.Background(), "nested-account")
	require.NoError(t, err)
	assert.Equal(t, "bbb222", identity.AccountID)
}

func TestClient_LookupNotFound(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"result": false, "error": "account not found"}`, http.StatusNotFound)
	})

	_, err := client.Lookup(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestClient_LookupRefusedWithoutAccountID(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result": false}`))
	})

	_, err := client.Lookup(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestClient_AuthFailureNotRetried(t *testing.T) {
	var attempts int32
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		http.Error(w, `{"error": "invalid api key"}`, http.StatusUnauthorized)
	})

	_, err := client.Lookup(context.Background(), "Ninja")
	assert.ErrorIs(t, err, ErrAuthFailure)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts), "auth rejection must not be retried")
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var attempts int32
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result": true, "account_id": "4735ce91"}`))
	})

	identity, err := client.Lookup(context.Background(), "Ninja")
	require.NoError(t, err)

	assert.Equal(t, "4735ce91", identity.AccountID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestClient_RateLimitExhaustsRetryBudget(t *testing.T) {
	var attempts int32
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.Header().Set("Retry-After", "0")
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	})

	_, err := client.Lookup(context.Background(), "Ninja")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts), "initial attempt plus two retries")
}

func TestClient_StatsAppliesSeasonFilter(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/stats", r.URL.Path)
		assert.Equal(t, "4735ce91", r.URL.Query().Get("account"))
		assert.Equal(t, "27", r.URL.Query().Get("season"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"result": true,
			"name": "Ninja",
			"account": {"season": 27, "level": 120},
			"global_stats": {"solo": {"kills": 250, "matchesplayed": 100}}
		}`))
	})

	identity := &models.PlayerIdentity{DisplayName: "Ninja", AccountID: "4735ce91"}
	doc, err := client.Stats(context.Background(), identity, &models.SeasonDescriptor{ID: 27})
	require.NoError(t, err)

	assert.Equal(t, "Ninja", doc.Name)
	assert.Equal(t, 120, doc.Level)
	assert.Equal(t, float64(250), doc.GlobalStats["solo"]["kills"])
}

func TestClient_StatsWithoutSeasonFilter(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("season"), "degraded mode sends no season parameter")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result": true, "name": "Ninja", "global_stats": {"solo": {"kills": 1}}}`))
	})

	identity := &models.PlayerIdentity{DisplayName: "Ninja", AccountID: "4735ce91"}
	_, err := client.Stats(context.Background(), identity, nil)
	require.NoError(t, err)
}

func TestClient_StatsPrivateProfile(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result": false, "error": "This profile is private"}`))
	})

	identity := &models.PlayerIdentity{DisplayName: "Ninja", AccountID: "4735ce91"}
	_, err := client.Stats(context.Background(), identity, nil)
	assert.ErrorIs(t, err, ErrPlayerPrivate)
}

func TestClient_StatsMalformedBody(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance page</html>`))
	})

	identity := &models.PlayerIdentity{DisplayName: "Ninja", AccountID: "4735ce91"}
	_, err := client.Stats(context.Background(), identity, nil)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestClient_StatsRefusalWithoutStats(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result": false, "error": "no stats for current season"}`))
	})

	identity := &models.PlayerIdentity{DisplayName: "Ninja", AccountID: "4735ce91"}
	_, err := client.Stats(context.Background(), identity, nil)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestClient_StatsFalseResultWithStatsStillUsable(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result": false, "error": "partial data", "global_stats": {"solo": {"kills": 5}}}`))
	})

	identity := &models.PlayerIdentity{DisplayName: "Ninja", AccountID: "4735ce91"}
	doc, err := client.Stats(context.Background(), identity, nil)
	require.NoError(t, err)

	assert.Equal(t, float64(5), doc.GlobalStats["solo"]["kills"])
}

func TestClient_SeasonsSortedAscending(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/seasons/list", r.URL.Path)
		assert.Equal(t, "en", r.URL.Query().Get("lang"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"seasons": [
			{"season": 27, "chapter": "4", "displayName": "Chapter 4 Season 4", "current": true},
			{"season": 2, "chapter": "1", "startDate": "2017-12-14", "endDate": "2018-02-21"},
			{"season": 14, "chapter": "2"}
		]}`))
	})

	seasons, err := client.Seasons(context.Background())
	require.NoError(t, err)
	require.Len(t, seasons, 3)

	assert.Equal(t, 2, seasons[0].ID)
	assert.Equal(t, 14, seasons[1].ID)
	assert.Equal(t, 27, seasons[2].ID)
	assert.True(t, seasons[2].Current)
	assert.Equal(t, 2017, seasons[0].Start.Year())
}

func TestClient_SeasonsEmptyListMalformed(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"seasons": []}`))
	})

	_, err := client.Seasons(context.Background())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestClient_SeasonsUpstreamFailure(t *testing.T) {
	var attempts int32
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		http.Error(w, "internal error", http.StatusInternalServerError)
	})

	_, err := client.Seasons(context.Background())
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestClient_ContextCancelled(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Lookup(ctx, "Ninja")
	assert.ErrorIs(t, err, context.Canceled)
}
