package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aessing/fortnite-stats-2-influx-container/internal/config"
	"github.com/aessing/fortnite-stats-2-influx-container/internal/fortnite"
	"github.com/aessing/fortnite-stats-2-influx-container/internal/metrics"
	"github.com/aessing/fortnite-stats-2-influx-container/internal/models"
	"github.com/aessing/fortnite-stats-2-influx-container/internal/transform"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// PlayerState tracks one player's progress through the pipeline
type PlayerState string

const (
	StatePending      PlayerState = "pending"
	StateResolving    PlayerState = "resolving"
	StateFetching     PlayerState = "fetching"
	StateTransforming PlayerState = "transforming"
	StateWriting      PlayerState = "writing"
	StateDone         PlayerState = "done"
	StateSkipped      PlayerState = "skipped"
	StateFailed       PlayerState = "failed"
)

// RunStatus is the global state of a collection pass
type RunStatus string

const (
	RunStarting       RunStatus = "starting"
	RunRunning        RunStatus = "running"
	RunSuccess        RunStatus = "success"
	RunPartialSuccess RunStatus = "partial_success"
	RunFailed         RunStatus = "failed"
)

// StatsAPI is the upstream half of the pipeline
type StatsAPI interface {
	Lookup(ctx context.Context, displayName string) (*models.PlayerIdentity, error)
	Stats(ctx context.Context, identity *models.PlayerIdentity, season *models.SeasonDescriptor) (*models.StatsDocument, error)
	Seasons(ctx context.Context) ([]models.SeasonDescriptor, error)
}

// PointWriter is the storage half of the pipeline
type PointWriter interface {
	Ping(ctx context.Context) error
	WritePoints(ctx context.Context, points []models.MetricPoint) (written, lost int, err error)
}

// PlayerResult is the terminal record of one player's pipeline
type PlayerResult struct {
	Player   string
	State    PlayerState
	Reason   string // set for failed and skipped players
	Points   int
	Lost     int
	Duration time.Duration
}

// Summary describes one finished collection pass
type Summary struct {
	RunID         string
	Status        RunStatus
	Players       int
	Collected     int
	Failed        int
	Skipped       int
	PointsWritten int
	PointsLost    int
	Seasons       int
	Degraded      bool
	Duration      time.Duration
	Results       []PlayerResult
}

// Collector orchestrates a collection pass: database preflight, season
// enumeration, then every player through resolve, fetch, transform and
// write. Failures stay scoped to their player; only bad configuration, a
// rejected credential or an unusable database abort the pass.
type Collector struct {
	cfg     *config.Config
	players []models.PlayerEntry
	api     StatsAPI
	writer  PointWriter

	mu     sync.Mutex
	status RunStatus
}

// New creates a Collector for an immutable player list
func New(cfg *config.Config, players []models.PlayerEntry, api StatsAPI, writer PointWriter) *Collector {
	return &Collector{
		cfg:     cfg,
		players: players,
		api:     api,
		writer:  writer,
		status:  RunStarting,
	}
}

// Status returns the current global run state
func (c *Collector) Status() RunStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Collector) setStatus(s RunStatus) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

// Run executes one full collection pass. The returned error is non-nil only
// for run-fatal conditions (database preflight, auth rejection, cancellation,
// or zero players collected); per-player failures land in the summary.
func (c *Collector) Run(ctx context.Context) (*Summary, error) {
	runID := uuid.NewString()
	started := time.Now()
	logger := log.With().Str("run_id", runID).Logger()

	c.setStatus(RunStarting)
	summary := &Summary{RunID: runID, Players: len(c.players)}

	logger.Info().
		Int("players", len(c.players)).
		Int("workers", c.cfg.WorkerCount()).
		Msg("Collection run starting")

	// Fail before any per-player work when the database is unreachable or
	// the credential is rejected.
	if err := c.writer.Ping(ctx); err != nil {
		return c.finish(&logger, summary, RunFailed, started, err)
	}

	c.setStatus(RunRunning)

	seasons, current, err := c.enumerateSeasons(ctx, &logger, summary)
	if err != nil {
		return c.finish(&logger, summary, RunFailed, started, err)
	}
	summary.Seasons = len(seasons)

	results := make([]PlayerResult, len(c.players))
	for i, p := range c.players {
		results[i] = PlayerResult{Player: p.DisplayName, State: StatePending}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg        sync.WaitGroup
		fatalOnce sync.Once
		fatalErr  error
	)
	abort := func(err error) {
		fatalOnce.Do(func() {
			fatalErr = err
			cancel()
		})
	}

	jobs := make(chan int)
	for i := 0; i < c.cfg.WorkerCount(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				res, err := c.collectPlayer(runCtx, &logger, c.players[idx], current)
				results[idx] = res
				if err != nil {
					abort(err)
				}
			}
		}()
	}

feed:
	for idx := range c.players {
		select {
		case jobs <- idx:
		case <-runCtx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	for i := range results {
		r := &results[i]
		if r.State != StateDone && r.State != StateSkipped && r.State != StateFailed {
			r.State = StateFailed
			r.Reason = "not_processed"
		}
		switch r.State {
		case StateDone:
			summary.Collected++
		case StateSkipped:
			summary.Skipped++
		case StateFailed:
			summary.Failed++
		}
		summary.PointsWritten += r.Points
		summary.PointsLost += r.Lost
	}
	summary.Results = results

	switch {
	case fatalErr != nil:
		return c.finish(&logger, summary, RunFailed, started, fatalErr)
	case ctx.Err() != nil:
		return c.finish(&logger, summary, RunFailed, started, ctx.Err())
	case summary.Collected == 0:
		err := fmt.Errorf("no players collected (%d failed, %d skipped)", summary.Failed, summary.Skipped)
		return c.finish(&logger, summary, RunFailed, started, err)
	case summary.Failed > 0 || summary.Skipped > 0:
		return c.finish(&logger, summary, RunPartialSuccess, started, nil)
	default:
		return c.finish(&logger, summary, RunSuccess, started, nil)
	}
}

// enumerateSeasons fetches the season list once per pass and writes the
// season measurement. Enumeration failure switches the pass to degraded
// mode (current-season stats, no season tag) instead of aborting; only a
// rejected credential or cancellation is fatal.
func (c *Collector) enumerateSeasons(ctx context.Context, logger *zerolog.Logger, summary *Summary) ([]models.SeasonDescriptor, *models.SeasonDescriptor, error) {
	seasons, err := c.api.Seasons(ctx)
	if err != nil {
		if errors.Is(err, fortnite.ErrAuthFailure) {
			return nil, nil, err
		}
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		summary.Degraded = true
		metrics.RecordError("collector", "season_enumeration")
		logger.Warn().
			Err(err).
			Msg("Season enumeration failed, falling back to current-season stats without season tags")
		return nil, nil, nil
	}

	metrics.SeasonsEnumerated.Set(float64(len(seasons)))

	points := transform.SeasonPoints(seasons, time.Now().UTC())
	written, lost, err := c.writer.WritePoints(ctx, points)
	if err != nil {
		return nil, nil, err
	}
	summary.PointsWritten += written
	summary.PointsLost += lost

	logger.Info().
		Int("seasons", len(seasons)).
		Int("points", written).
		Msg("Seasons enumerated")

	return seasons, models.CurrentSeason(seasons), nil
}

// collectPlayer walks one player through the pipeline. The returned error is
// non-nil only when the failure must abort the whole run.
func (c *Collector) collectPlayer(ctx context.Context, logger *zerolog.Logger, entry models.PlayerEntry, season *models.SeasonDescriptor) (PlayerResult, error) {
	res := PlayerResult{Player: entry.DisplayName, State: StatePending}
	started := time.Now()

	if ctx.Err() != nil {
		return res, nil
	}

	res.State = StateResolving
	identity, err := c.api.Lookup(ctx, entry.DisplayName)
	if err != nil {
		return c.failPlayer(logger, res, started, err)
	}

	res.State = StateFetching
	doc, err := c.api.Stats(ctx, identity, season)
	if err != nil {
		return c.failPlayer(logger, res, started, err)
	}

	res.State = StateTransforming
	points := transform.PlayerPoints(doc, identity, season, time.Now().UTC())

	res.State = StateWriting
	written, lost, err := c.writer.WritePoints(ctx, points)
	res.Points = written
	res.Lost = lost
	if err != nil {
		return c.failPlayer(logger, res, started, err)
	}

	res.State = StateDone
	res.Duration = time.Since(started)
	metrics.RecordPlayerOutcome("collected")
	logger.Info().
		Str("player", res.Player).
		Str("state", string(res.State)).
		Int("points", res.Points).
		Int("lost", res.Lost).
		Dur("duration", res.Duration).
		Msg("Player collected")

	return res, nil
}

// failPlayer classifies an error into the player's terminal state and
// decides whether it must abort the run.
func (c *Collector) failPlayer(logger *zerolog.Logger, res PlayerResult, started time.Time, err error) (PlayerResult, error) {
	res.Duration = time.Since(started)

	switch {
	case errors.Is(err, fortnite.ErrAuthFailure):
		res.State = StateFailed
		res.Reason = "auth_failure"
		metrics.RecordPlayerOutcome("failed")
		logger.Error().
			Err(err).
			Str("player", res.Player).
			Msg("Authentication rejected, aborting run")
		return res, err

	case errors.Is(err, fortnite.ErrPlayerPrivate):
		res.State = StateSkipped
		res.Reason = "private_profile"
		metrics.RecordPlayerOutcome("skipped")
		logger.Info().
			Str("player", res.Player).
			Str("state", string(res.State)).
			Msg("Player skipped, profile is private")
		return res, nil

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		res.State = StateFailed
		res.Reason = "aborted"
		return res, nil

	default:
		res.State = StateFailed
		res.Reason = failReason(err)
		metrics.RecordPlayerOutcome("failed")
		metrics.RecordError("collector", res.Reason)
		logger.Warn().
			Err(err).
			Str("player", res.Player).
			Str("state", string(res.State)).
			Str("reason", res.Reason).
			Msg("Player failed")
		return res, nil
	}
}

// failReason buckets an error into the summary's reason labels
func failReason(err error) string {
	switch {
	case errors.Is(err, fortnite.ErrPlayerNotFound):
		return "not_found"
	case errors.Is(err, fortnite.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, fortnite.ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, fortnite.ErrUpstream):
		return "upstream_error"
	default:
		return "error"
	}
}

// finish seals the summary, records run metrics and logs the final line
func (c *Collector) finish(logger *zerolog.Logger, summary *Summary, status RunStatus, started time.Time, err error) (*Summary, error) {
	summary.Status = status
	summary.Duration = time.Since(started)
	c.setStatus(status)
	metrics.RecordRun(string(status), summary.Duration.Seconds())

	event := logger.Info()
	if status == RunFailed {
		event = logger.Error().Err(err)
	}
	event.
		Str("status", string(status)).
		Int("players", summary.Players).
		Int("collected", summary.Collected).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Int("points_written", summary.PointsWritten).
		Int("points_lost", summary.PointsLost).
		Bool("degraded", summary.Degraded).
		Dur("duration", summary.Duration).
		Msg("Collection run finished")

	return summary, err
}
