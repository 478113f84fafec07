package config

import (
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFrequency is the sampling interval used by the defaults and by a
// family that is switched on with a bare `true`.
const DefaultFrequency = 15 * time.Second

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from strings like "15s" or from integer milliseconds.
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
	if value.ShortTag() == "!!int" {
		ms, err := strconv.ParseInt(value.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value.Value, err)
		}
		d.Duration = time.Duration(ms) * time.Millisecond
		return nil
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Family is the per-metric-family setting: either disabled, or enabled with
// a sampling frequency. A Family value is always replaced as a whole, never
// patched field by field.
type Family struct {
	Enabled   bool
	Frequency Duration
}

// Disabled returns a switched-off family.
func Disabled() Family { return Family{} }

// Every returns a family sampled at the given interval.
func Every(d time.Duration) Family {
	return Family{Enabled: true, Frequency: Duration{d}}
}

// Interval returns the sampling frequency.
func (f Family) Interval() time.Duration { return f.Frequency.Duration }

type familyOptions struct {
	Frequency *Duration `yaml:"frequency"`
}

// UnmarshalYAML accepts `false`, `true`, a bare frequency ("5s" or 5000) or an
// options mapping `{frequency: ...}`. A mapping without a frequency leaves the
// family enabled with a zero interval, which Validate rejects.
func (f *Family) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.ShortTag() == "!!bool" {
			var on bool
			if err := value.Decode(&on); err != nil {
				return err
			}
			if on {
				*f = Every(DefaultFrequency)
			} else {
				*f = Disabled()
			}
			return nil
		}
		var d Duration
		if err := d.UnmarshalYAML(value); err != nil {
			return err
		}
		*f = Family{Enabled: true, Frequency: d}
		return nil
	case yaml.MappingNode:
		var opts familyOptions
		if err := value.Decode(&opts); err != nil {
			return fmt.Errorf("parsing family options: %w", err)
		}
		*f = Family{Enabled: true}
		if opts.Frequency != nil {
			f.Frequency = *opts.Frequency
		}
		return nil
	default:
		return fmt.Errorf("unsupported family format: %v", value.Kind)
	}
}

// MarshalYAML implements the yaml.Marshaler interface for Family.
func (f Family) MarshalYAML() (interface{}, error) {
	if !f.Enabled {
		return false, nil
	}
	return familyOptions{Frequency: &f.Frequency}, nil
}
