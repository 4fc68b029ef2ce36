package logic

import (
	"fmt"
	"math"
	"sync"
)

// ControllerConfig configures a Controller. Every numeric field is used as
// given; start from DefaultControllerConfig for the enclosure defaults.
type ControllerConfig struct {
	HumidityLimit float64
	DwellLimit    int
	Policy        OverridePolicy
	NormalColor   *RGB
	WarningColor  *RGB
}

// DefaultControllerConfig returns the enclosure defaults: 60 %RH, 20 ticks, timed override.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		HumidityLimit: DefaultHumidityLimit,
		DwellLimit:    DefaultDwellLimit,
		Policy:        OverrideTimed,
	}
}

// Controller turns a stream of averaged humidity samples into a warning state
// with tick-counted hysteresis. It is safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	humidityLimit float64
	dwellLimit    int
	policy        OverridePolicy
	normalColor   RGB
	warningColor  RGB

	warningActive  bool
	manualOverride bool
	dwellTimer     int
	counts         Counts
}

// NewController creates a controller in the normal state. It returns
// ErrInvalidLimit for a non-finite limit and ErrInvalidDwell for a negative dwell.
// An empty policy selects OverrideTimed.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if math.IsNaN(cfg.HumidityLimit) || math.IsInf(cfg.HumidityLimit, 0) {
		return nil, ErrInvalidLimit
	}
	if cfg.DwellLimit < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDwell, cfg.DwellLimit)
	}
	policy, err := ParseOverridePolicy(string(cfg.Policy))
	if err != nil {
		return nil, err
	}

	c := &Controller{
		humidityLimit: cfg.HumidityLimit,
		dwellLimit:    cfg.DwellLimit,
		policy:        policy,
		normalColor:   NormalColor,
		warningColor:  WarningColor,
	}
	if cfg.NormalColor != nil {
		c.normalColor = *cfg.NormalColor
	}
	if cfg.WarningColor != nil {
		c.warningColor = *cfg.WarningColor
	}
	return c, nil
}

// Step advances the controller by one tick using the averaged humidity.
// A non-finite sample returns *InvalidSampleError and leaves all state unchanged.
func (c *Controller) Step(avgHumidity float64) (Result, error) {
	if math.IsNaN(avgHumidity) || math.IsInf(avgHumidity, 0) {
		return Result{}, &InvalidSampleError{Value: avgHumidity}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	transition := TransitionNone

	switch {
	case c.manualOverride:
		// Warning state is frozen; only the override's own timer runs.
		c.dwellTimer++
		if c.policy == OverrideTimed && c.dwellTimer > c.dwellLimit {
			c.manualOverride = false
			c.dwellTimer = 0
			c.counts.OverrideExpired++
			transition = TransitionOverrideExpired
		}

	case avgHumidity > c.humidityLimit && !c.warningActive:
		c.warningActive = true
		c.dwellTimer = 0
		c.counts.Raised++
		transition = TransitionRaised

	case avgHumidity <= c.humidityLimit && c.warningActive:
		c.dwellTimer++
		if c.dwellTimer > c.dwellLimit {
			c.warningActive = false
			c.dwellTimer = 0
			c.counts.Cleared++
			transition = TransitionCleared
		}
	}

	return c.resultLocked(transition), nil
}

// SetManualOverride enters or leaves the override. Setting the current value is a no-op.
func (c *Controller) SetManualOverride(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setOverrideLocked(active)
}

func (c *Controller) setOverrideLocked(active bool) {
	if c.manualOverride == active {
		return
	}
	c.manualOverride = active
	c.dwellTimer = 0
	if active {
		c.counts.Overrides++
	}
}

// ToggleManualOverride flips the override and returns the new value.
func (c *Controller) ToggleManualOverride() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setOverrideLocked(!c.manualOverride)
	return c.manualOverride
}

// SetHumidityLimit changes the activation threshold. It applies from the next Step.
func (c *Controller) SetHumidityLimit(limit float64) error {
	if math.IsNaN(limit) || math.IsInf(limit, 0) {
		return ErrInvalidLimit
	}
	c.mu.Lock()
	c.humidityLimit = limit
	c.mu.Unlock()
	return nil
}

// HumidityLimit returns the current activation threshold.
func (c *Controller) HumidityLimit() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.humidityLimit
}

// DwellLimit returns the configured dwell in ticks.
func (c *Controller) DwellLimit() int {
	return c.dwellLimit
}

// Policy returns the configured override policy.
func (c *Controller) Policy() OverridePolicy {
	return c.policy
}

// Current returns the present output without advancing the controller.
func (c *Controller) Current() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resultLocked(TransitionNone)
}

// State returns NORMAL, WARNING or OVERRIDDEN.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.manualOverride:
		return StateOverridden
	case c.warningActive:
		return StateWarning
	}
	return StateNormal
}

// Counts returns a copy of the transition counters.
func (c *Controller) Counts() Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts
}

func (c *Controller) resultLocked(t Transition) Result {
	color := c.normalColor
	if c.warningActive {
		color = c.warningColor
	}
	return Result{
		Active:     c.warningActive,
		Override:   c.manualOverride,
		Color:      color,
		Transition: t,
	}
}
