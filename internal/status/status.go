// Package status provides a thread-safe status tracker for the filament-monitor daemon.
// It is read by the HTTP handlers, the websocket feed and MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/filament-monitor/internal/logic"
)

// NetworkInfo contains network state as written by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs         int64
	HeartbeatMs    int64
	DwellTicks     int
	OverridePolicy string
	Broker         string
	HTTPAddr       string
	DataFile       string
	Simulated      bool
}

// Warning is the controller output as last observed.
type Warning struct {
	State         logic.State
	Active        bool
	Override      bool
	Color         logic.RGB
	HumidityLimit float64
	Counts        logic.Counts
}

// Controller is the read side of the warning controller.
type Controller interface {
	Current() logic.Result
	State() logic.State
	Counts() logic.Counts
	HumidityLimit() float64
}

// WarningFrom reads the controller's present output.
func WarningFrom(c Controller) Warning {
	res := c.Current()
	return Warning{
		State:         c.State(),
		Active:        res.Active,
		Override:      res.Override,
		Color:         res.Color,
		HumidityLimit: c.HumidityLimit(),
		Counts:        c.Counts(),
	}
}

// Counts tracks loop activity since startup.
type Counts struct {
	Ticks      int
	ReadErrors int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	// Readings is nil until the first successful tick.
	Readings      *logic.Readings
	Warning       Warning
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			Warning:   Warning{State: logic.StateNormal, Color: logic.NormalColor},
		},
	}
}

// Update stores a successful tick's readings and controller output.
func (t *Tracker) Update(r logic.Readings, w Warning) {
	t.mu.Lock()
	t.snap.Readings = &r
	t.snap.Warning = w
	t.snap.Counts.Ticks++
	t.mu.Unlock()
}

// SetWarning stores controller output changed outside a tick (override, limit).
func (t *Tracker) SetWarning(w Warning) {
	t.mu.Lock()
	t.snap.Warning = w
	t.mu.Unlock()
}

// RecordReadError counts a tick skipped because a sensor failed.
func (t *Tracker) RecordReadError() {
	t.mu.Lock()
	t.snap.Counts.Ticks++
	t.snap.Counts.ReadErrors++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	if s.Readings != nil {
		r := *s.Readings
		s.Readings = &r
	}
	s.Now = time.Now()
	return s
}
