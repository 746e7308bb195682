package flags

import (
	"context"
	"fmt"

	"github.com/joseaugf/cop320-cw/pkg/cerrors"
)

// KeyPrefix namespaces every persisted flag record in the backing store.
const KeyPrefix = "flags:"

// Config knobs recognized by the validator. The config map itself stays
// open; unknown keys pass through untouched.
const (
	KeyErrorRate            = "errorRate"
	KeyLatencyMs            = "latencyMs"
	KeyMemoryLeakMb         = "memoryLeakMb"
	KeyIntensityLevel       = "intensityLevel"
	KeyDurationSeconds      = "durationSeconds"
	KeyCrashIntervalMinutes = "crashIntervalMinutes"
	KeyCrashProbability     = "crashProbability"
	KeyFailureRate          = "failureRate"
	KeyTimeoutMs            = "timeoutMs"
	KeyDelayMs              = "delayMs"
	KeyJitterMs             = "jitterMs"
)

// FlagConfig holds the per-flag tuning knobs. JSON decoding yields float64
// values, YAML yields int, so the accessors normalize both.
type FlagConfig map[string]interface{}

// Number returns the numeric value stored under key, or def when the key is
// absent or not a number.
func (c FlagConfig) Number(key string, def float64) float64 {
	v, ok := c[key]
	if !ok {
		return def
	}
	n, ok := asNumber(v)
	if !ok {
		return def
	}
	return n
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// FeatureFlag is a named, remotely toggleable switch with a configuration
// payload controlling simulated-fault behavior.
type FeatureFlag struct {
	Name        string     `json:"name" yaml:"name"`
	Enabled     bool       `json:"enabled" yaml:"enabled"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Config      FlagConfig `json:"config" yaml:"config"`
}

// bounds of the recognized numeric knobs, inclusive
var knobBounds = map[string][2]float64{
	KeyErrorRate:            {0, 100},
	KeyCrashProbability:     {0, 100},
	KeyFailureRate:          {0, 100},
	KeyIntensityLevel:       {1, 10},
	KeyLatencyMs:            {0, maxKnob},
	KeyMemoryLeakMb:         {0, maxKnob},
	KeyDurationSeconds:      {0, maxKnob},
	KeyCrashIntervalMinutes: {0, maxKnob},
	KeyTimeoutMs:            {0, maxKnob},
	KeyDelayMs:              {0, maxKnob},
	KeyJitterMs:             {0, maxKnob},
}

const maxKnob = 1 << 40

// Validate checks a flag against the knob bounds. It rejects the update
// without touching the stored value; the store persists only validated flags.
func Validate(flag *FeatureFlag) error {
	if flag == nil {
		return cerrors.Validation{Reason: "flag is empty"}
	}
	if flag.Name == "" {
		return cerrors.Validation{Field: "name", Reason: "must not be empty"}
	}
	for key, raw := range flag.Config {
		bounds, known := knobBounds[key]
		if !known {
			continue
		}
		n, ok := asNumber(raw)
		if !ok {
			return cerrors.Validation{Field: key, Reason: "must be a number"}
		}
		if n < bounds[0] || n > bounds[1] {
			return cerrors.Validation{
				Field:  key,
				Reason: fmt.Sprintf("must be between %v and %v, got %v", bounds[0], bounds[1], n),
			}
		}
	}
	return nil
}

// Source resolves flags for the simulators. Implementations are fail-open: a
// fetch failure reads as "flag disabled", never as an error.
type Source interface {
	GetFlag(ctx context.Context, name string) *FeatureFlag
	IsFlagEnabled(ctx context.Context, name string) bool
	GetFlagConfig(ctx context.Context, name string) FlagConfig
}
