package sink

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Guliveer/vitalis/vmstats/config"
	"github.com/Guliveer/vitalis/vmstats/models"
)

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	report := Console(&buf)

	report(models.TypeThreadCount, 42, models.CountSample{Count: 7})
	report(models.TypeSampleError, 42, models.SampleError{Type: "fd", Error: "boom"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `thread_count 42 {"count":7}`, lines[0])
	assert.Equal(t, `sample_error 42 {"type":"fd","error":"boom"}`, lines[1])
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	report := Logger(zap.New(core))

	report(models.TypeMemory, 7, models.MemorySample{RSS: 10})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Sample", entry.Message)
	assert.Equal(t, "memory", entry.ContextMap()["type"])
	assert.EqualValues(t, 7, entry.ContextMap()["pid"])
}

// ingestServer decodes every posted batch and answers with the next status
// from statuses (200 once they run out).
type ingestServer struct {
	mu       sync.Mutex
	statuses []int
	batches  []models.Batch
	calls    atomic.Int32
}

func (s *ingestServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.calls.Add(1)

	status := http.StatusOK
	s.mu.Lock()
	if len(s.statuses) > 0 {
		status, s.statuses = s.statuses[0], s.statuses[1:]
	}
	s.mu.Unlock()

	if status == http.StatusOK {
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(gz)
		var batch models.Batch
		if err := json.Unmarshal(data, &batch); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.batches = append(s.batches, batch)
		s.mu.Unlock()
	}
	w.WriteHeader(status)
}

func (s *ingestServer) received() []models.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Batch(nil), s.batches...)
}

func newTestHTTP(url string, batchSize int) *HTTP {
	s := NewHTTP(config.SinkConfig{
		URL:           url,
		Token:         "secret",
		BatchSize:     batchSize,
		QueueSize:     8,
		FlushInterval: config.Duration{Duration: time.Hour},
	}, zap.NewNop())
	s.retryDelay = time.Millisecond
	return s
}

func TestHTTP_SendBatchOnSize(t *testing.T) {
	srv := &ingestServer{}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	s := newTestHTTP(ts.URL, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	s.Report(models.TypeThreadCount, 1, models.CountSample{Count: 3})
	s.Report(models.TypeFDCount, 1, models.CountSample{Count: 9})

	assert.Eventually(t, func() bool { return len(srv.received()) == 1 }, 2*time.Second, 10*time.Millisecond)
	batch := srv.received()[0]
	require.Len(t, batch.Samples, 2)
	assert.Equal(t, models.TypeThreadCount, batch.Samples[0].Type)
	assert.Equal(t, 1, batch.Samples[1].PID)
}

func TestHTTP_FlushOnShutdown(t *testing.T) {
	srv := &ingestServer{}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	s := newTestHTTP(ts.URL, 100)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	s.Report(models.TypeMemory, 1, models.MemorySample{RSS: 1})
	cancel()
	<-done

	received := srv.received()
	require.Len(t, received, 1)
	assert.Len(t, received[0].Samples, 1)
}

func TestHTTP_RetriesServerErrors(t *testing.T) {
	srv := &ingestServer{statuses: []int{http.StatusInternalServerError, http.StatusBadGateway}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	s := newTestHTTP(ts.URL, 1)
	err := s.Send(context.Background(), []models.Envelope{{Type: models.TypeCPU, PID: 1}})
	require.NoError(t, err)
	assert.EqualValues(t, 3, srv.calls.Load())
	assert.Len(t, srv.received(), 1)
}

func TestHTTP_RateLimitStopsRetrying(t *testing.T) {
	srv := &ingestServer{statuses: []int{http.StatusTooManyRequests}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	s := newTestHTTP(ts.URL, 1)
	err := s.Send(context.Background(), []models.Envelope{{Type: models.TypeCPU, PID: 1}})
	var rl *rateLimitError
	assert.ErrorAs(t, err, &rl)
	assert.EqualValues(t, 1, srv.calls.Load())
}

func TestHTTP_GivesUpAfterMaxRetries(t *testing.T) {
	srv := &ingestServer{statuses: []int{500, 500, 500, 500, 500}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	s := newTestHTTP(ts.URL, 1)
	err := s.Send(context.Background(), []models.Envelope{{Type: models.TypeCPU, PID: 1}})
	assert.Error(t, err)
	assert.EqualValues(t, maxRetries+1, srv.calls.Load())
}

func TestHTTP_ReportDropsWhenQueueFull(t *testing.T) {
	s := newTestHTTP("http://127.0.0.1:0", 100)
	for i := 0; i < 10; i++ {
		s.Report(models.TypeMemory, 1, nil)
	}
	assert.EqualValues(t, 2, s.Dropped())
}
