// Package config handles collector configuration loaded from YAML files and
// environment variables.
// Configuration precedence: CLI flags > environment variables > config file >
// embedded bytes > defaults. Every layer replaces per-family settings as a
// whole; options records are never deep-merged.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Guliveer/vitalis/vmstats/models"
)

// ErrInvalidFrequency is returned by Validate when an enabled family has a
// non-positive sampling frequency.
var ErrInvalidFrequency = errors.New("frequency must be positive")

// Sink kinds understood by the vmstats binary.
const (
	SinkConsole = "console"
	SinkLog     = "log"
	SinkHTTP    = "http"
)

// Config holds the full collector configuration.
type Config struct {
	GC        bool   `yaml:"gc"`
	Memory    Family `yaml:"memory"`
	EventLoop Family `yaml:"eventLoop"`
	CPUTime   Family `yaml:"cpuTime"`
	Thread    Family `yaml:"thread"`
	FD        Family `yaml:"fd"`

	Sink    SinkConfig    `yaml:"sink"`
	Logging LoggingConfig `yaml:"logging"`

	// Report receives every envelope. When nil the collector prints to stdout.
	Report models.ReportFunc `yaml:"-"`
}

// SinkConfig selects and tunes the sink built by the vmstats binary.
type SinkConfig struct {
	Kind          string   `yaml:"kind"`
	URL           string   `yaml:"url"`
	Token         string   `yaml:"token"`
	BatchSize     int      `yaml:"batch_size"`
	QueueSize     int      `yaml:"queue_size"`
	FlushInterval Duration `yaml:"flush_interval"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration: every family enabled and
// sampled every 15 seconds.
func DefaultConfig() *Config {
	return &Config{
		GC:        true,
		Memory:    Every(DefaultFrequency),
		EventLoop: Every(DefaultFrequency),
		CPUTime:   Every(DefaultFrequency),
		Thread:    Every(DefaultFrequency),
		FD:        Every(DefaultFrequency),
		Sink: SinkConfig{
			Kind:          SinkConsole,
			BatchSize:     100,
			QueueSize:     1024,
			FlushInterval: Duration{10 * time.Second},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Overrides carries caller-supplied values. A nil field keeps the base value;
// a set field replaces it entirely.
type Overrides struct {
	GC        *bool
	Memory    *Family
	EventLoop *Family
	CPUTime   *Family
	Thread    *Family
	FD        *Family
	Report    models.ReportFunc
}

// Ptr returns a pointer to v. Handy for building Overrides.
func Ptr[T any](v T) *T { return &v }

// Merge returns a copy of base with every set override applied.
func Merge(base *Config, o Overrides) *Config {
	cfg := *base
	if o.GC != nil {
		cfg.GC = *o.GC
	}
	for _, r := range []struct {
		dst *Family
		src *Family
	}{
		{&cfg.Memory, o.Memory},
		{&cfg.EventLoop, o.EventLoop},
		{&cfg.CPUTime, o.CPUTime},
		{&cfg.Thread, o.Thread},
		{&cfg.FD, o.FD},
	} {
		if r.src != nil {
			*r.dst = *r.src
		}
	}
	if o.Report != nil {
		cfg.Report = o.Report
	}
	return &cfg
}

// LoadFromBytes parses YAML configuration from a byte slice and merges with
// defaults. Environment variables override values from the byte slice.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config data: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// Load reads configuration from a YAML file and merges with defaults.
// If path is empty or the file does not exist, only defaults and environment
// variables are used.
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFromBytes(nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		return LoadFromBytes(nil)
	}

	return LoadFromBytes(data)
}

// CLIOverrides holds values from command-line flags.
// Empty strings are treated as "not set" and skipped.
type CLIOverrides struct {
	LogLevel string
	SinkKind string
	SinkURL  string
}

// Locate searches standard config file paths and returns the first one found.
// Returns empty string if no config file exists.
func Locate() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadLayered loads configuration with the full precedence chain:
// CLI flags > env vars > external YAML file > embedded bytes > defaults.
//
// An optional configPath argument controls external-file discovery:
//   - omitted        → auto-discover via Locate()
//   - explicit value → use that path ("" means no external file)
func LoadLayered(cli CLIOverrides, embedded []byte, configPath ...string) (*Config, error) {
	cfg := DefaultConfig()

	if len(embedded) > 0 {
		if err := yaml.Unmarshal(embedded, cfg); err != nil {
			return nil, fmt.Errorf("parsing embedded config: %w", err)
		}
	}

	var filePath string
	if len(configPath) > 0 {
		filePath = configPath[0]
	} else {
		filePath = Locate()
	}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file %s: %w", filePath, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", filePath, err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}
	if cli.SinkKind != "" {
		cfg.Sink.Kind = cli.SinkKind
	}
	if cli.SinkURL != "" {
		cfg.Sink.URL = cli.SinkURL
	}

	return cfg, nil
}

// WriteConfig serializes the config to a YAML file at the given path.
// Creates parent directories if needed.
func WriteConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0640)
}

func applyEnvOverrides(cfg *Config) {
	if level := os.Getenv("VMSTATS_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if kind := os.Getenv("VMSTATS_SINK"); kind != "" {
		cfg.Sink.Kind = kind
	}
	if url := os.Getenv("VMSTATS_SINK_URL"); url != "" {
		cfg.Sink.URL = url
	}
	if token := os.Getenv("VMSTATS_SINK_TOKEN"); token != "" {
		cfg.Sink.Token = token
	}
}

// Validate checks that every enabled family has a positive frequency and that
// the sink settings are usable.
func (c *Config) Validate() error {
	for _, f := range []struct {
		name   string
		family Family
	}{
		{"memory", c.Memory},
		{"eventLoop", c.EventLoop},
		{"cpuTime", c.CPUTime},
		{"thread", c.Thread},
		{"fd", c.FD},
	} {
		if f.family.Enabled && f.family.Interval() <= 0 {
			return fmt.Errorf("%s: %w (got %v)", f.name, ErrInvalidFrequency, f.family.Interval())
		}
	}

	switch strings.ToLower(c.Sink.Kind) {
	case "", SinkConsole, SinkLog:
	case SinkHTTP:
		if c.Sink.URL == "" {
			return fmt.Errorf("sink URL is required for the http sink")
		}
		if c.Sink.BatchSize <= 0 {
			return fmt.Errorf("sink batch_size must be positive")
		}
	default:
		return fmt.Errorf("unknown sink kind %q", c.Sink.Kind)
	}
	return nil
}
