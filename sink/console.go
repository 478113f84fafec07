// Package sink provides ready-made report functions: a console printer, a
// zap logger and an asynchronous HTTP batch sender.
package sink

import (
	"fmt"
	"io"
	"sync"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/vmstats/models"
)

// Console prints one line per envelope: the type, the pid and the metrics as
// JSON. Writes are serialized so lines from different collectors never mix.
func Console(w io.Writer) models.ReportFunc {
	var mu sync.Mutex
	return func(typ models.SampleType, pid int, metrics interface{}) {
		data, err := json.Marshal(metrics)
		if err != nil {
			data = []byte(fmt.Sprintf("%+v", metrics))
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "%s %d %s\n", typ, pid, data)
	}
}

// Logger writes every envelope as an info entry.
func Logger(logger *zap.Logger) models.ReportFunc {
	return func(typ models.SampleType, pid int, metrics interface{}) {
		logger.Info("Sample",
			zap.String("type", string(typ)),
			zap.Int("pid", pid),
			zap.Any("metrics", metrics))
	}
}
