// Package logic contains the pure humidity warning logic for the filament enclosure.
// This package has NO external dependencies (no I2C, SPI, GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"errors"
	"fmt"
	"time"
)

// RGB is a color for the warning indicator.
type RGB struct {
	R, G, B uint8
}

// String formats the color as "(r, g, b)".
func (c RGB) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.R, c.G, c.B)
}

// Default colors and thresholds.
var (
	NormalColor  = RGB{R: 255, G: 255, B: 255}
	WarningColor = RGB{R: 255, G: 0, B: 0}
)

const (
	DefaultHumidityLimit = 60.0
	DefaultDwellLimit    = 20
)

// State is the controller's coarse state.
type State string

const (
	StateNormal     State = "NORMAL"
	StateWarning    State = "WARNING"
	StateOverridden State = "OVERRIDDEN"
)

// OverridePolicy decides how a manual override ends.
type OverridePolicy string

const (
	// OverrideTimed lifts the override automatically once the dwell elapses.
	OverrideTimed OverridePolicy = "timed"
	// OverrideManual keeps the override until SetManualOverride(false).
	OverrideManual OverridePolicy = "manual"
)

// ParseOverridePolicy converts a config string into an OverridePolicy.
func ParseOverridePolicy(s string) (OverridePolicy, error) {
	switch OverridePolicy(s) {
	case OverrideTimed, OverrideManual:
		return OverridePolicy(s), nil
	case "":
		return OverrideTimed, nil
	}
	return "", fmt.Errorf("unknown override policy %q (want %q or %q)", s, OverrideTimed, OverrideManual)
}

// Transition is the state change produced by a single Step, if any.
type Transition string

const (
	TransitionNone            Transition = ""
	TransitionRaised          Transition = "WARNING_RAISED"
	TransitionCleared         Transition = "WARNING_CLEARED"
	TransitionOverrideExpired Transition = "OVERRIDE_EXPIRED"
)

// Result is the outcome of one Step.
type Result struct {
	Active     bool
	Override   bool
	Color      RGB
	Transition Transition
}

// Counts tracks the number of each transition since startup.
type Counts struct {
	Raised          int
	Cleared         int
	Overrides       int
	OverrideExpired int
}

// InvalidSampleError reports a non-finite humidity sample passed to Step.
type InvalidSampleError struct {
	Value float64
}

func (e *InvalidSampleError) Error() string {
	return fmt.Sprintf("invalid humidity sample: %v", e.Value)
}

// ErrInvalidLimit is returned by NewController and SetHumidityLimit for non-finite limits.
var ErrInvalidLimit = errors.New("humidity limit must be finite")

// ErrInvalidDwell is returned by NewController for a negative dwell.
var ErrInvalidDwell = errors.New("dwell limit must not be negative")

// Readings holds one tick's rounded sensor values and their averages.
type Readings struct {
	Temperature1       float64
	Temperature2       float64
	AverageTemperature float64
	Humidity1          float64
	Humidity2          float64
	AverageHumidity    float64
	Time               time.Time
}
