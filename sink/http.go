package sink

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/vmstats/config"
	"github.com/Guliveer/vitalis/vmstats/models"
)

const (
	// maxRetries is the maximum number of retry attempts before a batch is dropped.
	maxRetries = 3

	// baseRetryDelay is the base delay for exponential backoff between retries.
	baseRetryDelay = 2 * time.Second

	// requestTimeout is the HTTP request timeout for each send attempt.
	requestTimeout = 10 * time.Second

	// shutdownTimeout bounds the final flush after Run's context is cancelled.
	shutdownTimeout = 5 * time.Second
)

// HTTP queues envelopes and posts them in gzip-compressed JSON batches to
// <url>/api/ingest. Report never blocks: when the queue is full the envelope
// is dropped and counted.
type HTTP struct {
	client     *http.Client
	cfg        config.SinkConfig
	logger     *zap.Logger
	queue      chan models.Envelope
	retryDelay time.Duration
	dropped    atomic.Uint64
}

// NewHTTP creates an HTTP sink. Call Run to start delivering.
func NewHTTP(cfg config.SinkConfig, logger *zap.Logger) *HTTP {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.FlushInterval.Duration <= 0 {
		cfg.FlushInterval.Duration = 10 * time.Second
	}
	return &HTTP{
		client: &http.Client{
			Timeout: requestTimeout,
		},
		cfg:        cfg,
		logger:     logger,
		queue:      make(chan models.Envelope, cfg.QueueSize),
		retryDelay: baseRetryDelay,
	}
}

// Report enqueues one envelope. It satisfies models.ReportFunc.
func (s *HTTP) Report(typ models.SampleType, pid int, metrics interface{}) {
	select {
	case s.queue <- models.Envelope{Type: typ, PID: pid, Metrics: metrics}:
	default:
		s.dropped.Add(1)
	}
}

// Dropped returns the number of envelopes discarded because the queue was full.
func (s *HTTP) Dropped() uint64 { return s.dropped.Load() }

// Run batches queued envelopes until ctx is cancelled. A batch is sent when
// it reaches the configured size or when the flush interval elapses. On
// cancellation whatever is queued is sent once more before returning.
func (s *HTTP) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.FlushInterval.Duration)
	defer ticker.Stop()

	batch := make([]models.Envelope, 0, s.cfg.BatchSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := s.Send(ctx, batch); err != nil {
			s.logger.Error("Dropping batch", zap.Int("count", len(batch)), zap.Error(err))
		}
		batch = make([]models.Envelope, 0, s.cfg.BatchSize)
	}

	for {
		select {
		case <-ctx.Done():
		drain:
			for {
				select {
				case env := <-s.queue:
					batch = append(batch, env)
				default:
					break drain
				}
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			flush(shutdownCtx)
			cancel()
			return
		case env := <-s.queue:
			batch = append(batch, env)
			if len(batch) >= s.cfg.BatchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		}
	}
}

// Send posts one batch, retrying with exponential backoff. A 429 response
// stops retrying immediately.
func (s *HTTP) Send(ctx context.Context, envelopes []models.Envelope) error {
	data, err := json.Marshal(models.Batch{Samples: envelopes})
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	if _, err := gz.Write(data); err != nil {
		return fmt.Errorf("compress batch: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("finalize gzip compression: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * s.retryDelay
			s.logger.Warn("Retrying send",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = s.doSend(ctx, compressed.Bytes())
		if lastErr == nil {
			s.logger.Debug("Batch sent successfully", zap.Int("samples", len(envelopes)))
			return nil
		}

		var rl *rateLimitError
		if errors.As(lastErr, &rl) {
			return lastErr
		}

		s.logger.Warn("Send failed",
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
	}

	return fmt.Errorf("all retries exhausted: %w", lastErr)
}

// doSend performs a single HTTP POST to the ingest endpoint.
func (s *HTTP) doSend(ctx context.Context, compressedData []byte) error {
	url := strings.TrimRight(s.cfg.URL, "/") + "/api/ingest"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(compressedData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &rateLimitError{statusCode: resp.StatusCode}
	}

	return fmt.Errorf("server returned %d", resp.StatusCode)
}

// rateLimitError indicates the server returned HTTP 429.
type rateLimitError struct {
	statusCode int
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("rate limited (%d)", e.statusCode)
}
