package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aessing/fortnite-stats-2-influx-container/internal/metrics"
	"github.com/aessing/fortnite-stats-2-influx-container/internal/models"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog/log"
)

// Config holds InfluxDB connection configuration
type Config struct {
	URL        string
	Token      string
	Org        string
	Bucket     string
	BatchSize  int
	MaxRetries int
	RetryDelay time.Duration
}

// Writer persists metric points to InfluxDB. A single instance is shared by
// all workers; WritePoints calls batch independently, so concurrent use
// needs no locking.
type Writer struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
	cfg    Config
}

// NewWriter creates a new InfluxDB writer
func NewWriter(cfg Config) *Writer {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 500
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	// Retrying is owned by writeBatch. The client's own retry queue must
	// stay off: it re-queues failed batches and flushes them during later
	// writes, which would resurrect points already counted as lost.
	opts := influxdb2.DefaultOptions().SetMaxRetries(0)
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	return &Writer{
		client: client,
		write:  client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		cfg:    cfg,
	}
}

// Ping verifies connectivity and credentials before any collection work by
// resolving the configured bucket. The health endpoint is unauthenticated,
// so a bucket lookup is the cheapest call that actually exercises the token.
func (w *Writer) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := w.client.BucketsAPI().FindBucketByName(ctx, w.cfg.Bucket); err != nil {
		return fmt.Errorf("influxdb preflight failed for bucket %s: %w", w.cfg.Bucket, err)
	}

	log.Debug().
		Str("bucket", w.cfg.Bucket).
		Msg("InfluxDB preflight succeeded")

	return nil
}

// WritePoints batches and writes points. Each batch gets its own bounded
// retry budget; a batch that exhausts it is counted as lost and the
// remaining batches are still attempted. The returned error is non-nil only
// when the context ended before all batches could be tried.
func (w *Writer) WritePoints(ctx context.Context, points []models.MetricPoint) (written, lost int, err error) {
	for start := 0; start < len(points); start += w.cfg.BatchSize {
		end := start + w.cfg.BatchSize
		if end > len(points) {
			end = len(points)
		}
		batch := points[start:end]

		if err := w.writeBatch(ctx, batch); err != nil {
			if ctx.Err() != nil {
				// Shutdown: the rest of the buffer is discarded, nothing
				// further will be attempted.
				return written, lost, ctx.Err()
			}
			lost += len(batch)
			log.Error().
				Err(err).
				Int("points", len(batch)).
				Msg("Batch lost after exhausted write retries")
			continue
		}
		written += len(batch)
	}

	return written, lost, nil
}

// writeBatch writes one batch with bounded retry and doubling backoff
func (w *Writer) writeBatch(ctx context.Context, batch []models.MetricPoint) error {
	pts := make([]*write.Point, 0, len(batch))
	for i := range batch {
		pts = append(pts, toInfluxPoint(&batch[i]))
	}

	var lastErr error
	var lastDur float64
	for attempt := 0; attempt <= w.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := w.cfg.RetryDelay * time.Duration(1<<uint(attempt-1))
			log.Warn().
				Dur("backoff", backoff).
				Int("attempt", attempt).
				Int("points", len(batch)).
				Msg("Retrying batch write after backoff")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		start := time.Now()
		err := w.write.WritePoint(ctx, pts...)
		lastDur = time.Since(start).Seconds()
		if err == nil {
			metrics.RecordBatchWrite("success", len(batch), lastDur)
			log.Debug().
				Int("points", len(batch)).
				Msg("Batch written")
			return nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	metrics.RecordBatchWrite("failed", len(batch), lastDur)
	return lastErr
}

// toInfluxPoint converts a MetricPoint to the client's point type
func toInfluxPoint(p *models.MetricPoint) *write.Point {
	fields := make(map[string]interface{}, len(p.Fields))
	for k, v := range p.Fields {
		fields[k] = v
	}
	return write.NewPoint(p.Measurement, p.Tags, fields, p.Timestamp)
}

// Close releases the underlying HTTP resources
func (w *Writer) Close() {
	w.client.Close()
	log.Info().Msg("InfluxDB client closed")
}
