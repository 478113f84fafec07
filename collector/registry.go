package collector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/vmstats/config"
	"github.com/Guliveer/vitalis/vmstats/internal/scheduler"
	"github.com/Guliveer/vitalis/vmstats/models"
	"github.com/Guliveer/vitalis/vmstats/platform"
	"github.com/Guliveer/vitalis/vmstats/sink"
	"github.com/Guliveer/vitalis/vmstats/source"
)

// ErrAlreadyStarted is returned by a second call to Registry.Start.
var ErrAlreadyStarted = errors.New("collector: already started")

// Registry owns the configuration, the process identity and the adapters,
// and starts the enabled collectors.
type Registry struct {
	cfg       *config.Config
	logger    *zap.Logger
	source    source.RawSource
	runtime   source.Runtime
	platform  platform.Platform
	identity  models.ProcessIdentity
	reporter  *Reporter
	scheduler *scheduler.Scheduler

	mu         sync.Mutex
	started    bool
	collectors []Collector
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithSource replaces the Go runtime event source.
func WithSource(src source.RawSource) Option {
	return func(r *Registry) { r.source = src }
}

// WithRuntime replaces the process introspection adapter.
func WithRuntime(rt source.Runtime) Option {
	return func(r *Registry) { r.runtime = rt }
}

// WithPlatform replaces the OS introspection adapter.
func WithPlatform(p platform.Platform) Option {
	return func(r *Registry) { r.platform = p }
}

// New builds a Registry. A nil cfg is loaded from the standard config file
// locations, falling back to the defaults. A nil cfg.Report prints envelopes
// to stdout.
func New(cfg *config.Config, opts ...Option) (*Registry, error) {
	r := &Registry{logger: zap.NewNop()}
	for _, o := range opts {
		o(r)
	}

	if cfg == nil {
		loaded, err := config.LoadLayered(config.CLIOverrides{}, nil)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	frozen := *cfg
	r.cfg = &frozen
	if r.cfg.Report == nil {
		r.cfg.Report = sink.Console(os.Stdout)
	}

	if r.runtime == nil {
		rt, err := source.NewProcessRuntime()
		if err != nil {
			return nil, err
		}
		r.runtime = rt
	}
	if r.source == nil {
		r.source = source.NewGoRuntimeSource(source.WithLogger(r.logger))
	}
	if r.platform == nil {
		r.platform = platform.New()
	}

	r.identity = models.ProcessIdentity{
		PID:      r.runtime.PID(),
		CPUCores: r.runtime.NumCPU(context.Background()),
	}
	r.reporter = NewReporter(r.identity.PID, r.cfg.Report)
	r.scheduler = scheduler.New(r.logger)
	return r, nil
}

// Identity returns the process identity captured by New.
func (r *Registry) Identity() models.ProcessIdentity { return r.identity }

// Start initializes the raw source and starts every enabled collector. The
// thread and fd collectors only start on Linux. Cancelling ctx stops all
// timers and the GC subscription; without cancellation they run for the
// life of the process. A second call returns ErrAlreadyStarted.
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return ErrAlreadyStarted
	}
	r.started = true

	if err := r.source.Start(ctx); err != nil {
		return fmt.Errorf("starting runtime source: %w", err)
	}

	if r.cfg.GC {
		gc := NewGCCollector(r.runtime, r.reporter)
		if err := gc.Attach(r.source); err != nil {
			return fmt.Errorf("subscribing to gc events: %w", err)
		}
		r.logger.Info("Subscribed collector", zap.String("collector", gc.Name()))
	}

	r.schedule(ctx, r.cfg.Memory, NewMemoryCollector(r.runtime))
	r.schedule(ctx, r.cfg.CPUTime, NewCPUTimeCollector(r.runtime, r.identity.CPUCores))
	r.schedule(ctx, r.cfg.EventLoop, NewEventLoopCollector(r.source))

	if r.platform.Name() != platform.Linux {
		r.logger.Info("Thread and fd collectors need procfs, skipping",
			zap.String("platform", r.platform.Name()))
		return nil
	}
	r.schedule(ctx, r.cfg.Thread, NewThreadCountCollector(r.platform, r.identity.PID))
	r.schedule(ctx, r.cfg.FD, NewFDCountCollector(r.platform, r.identity.PID))
	return nil
}

// Collectors returns a copy of the periodic collectors started so far.
func (r *Registry) Collectors() []Collector {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]Collector, len(r.collectors))
	copy(result, r.collectors)
	return result
}

func (r *Registry) schedule(ctx context.Context, family config.Family, c Collector) {
	if !family.Enabled {
		return
	}
	if !c.IsAvailable() {
		r.logger.Warn("Collector not available, skipping", zap.String("collector", c.Name()))
		return
	}
	r.collectors = append(r.collectors, c)
	r.scheduler.Every(ctx, c.Name(), family.Interval(), func(ctx context.Context) {
		r.collect(ctx, c)
	})
}

// collect runs one tick. Read failures become sample_error envelopes and
// the timer keeps going.
func (r *Registry) collect(ctx context.Context, c Collector) {
	data, err := c.Collect(ctx)
	if err != nil {
		r.logger.Warn("Collection failed",
			zap.String("collector", c.Name()),
			zap.Error(err))
		r.reporter.ReportError(c.Name(), err)
		return
	}
	r.reporter.Report(c.Type(), data)
}
