// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/filament-monitor/internal/logic"
)

// Topics for enclosure messages.
const (
	TopicReadings = "home/filament/monitor/readings"
	TopicWarning  = "home/filament/monitor/warning"
	TopicSystem   = "home/filament/monitor/system"
)

// Publisher publishes monitor messages to MQTT.
type Publisher interface {
	// PublishReadings sends one tick's readings.
	// Returns error if publishing fails (should not crash the process).
	PublishReadings(r logic.Readings) error

	// PublishWarning sends a warning state change.
	PublishWarning(event WarningEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// WarningEvent is a warning controller transition.
type WarningEvent struct {
	Timestamp     time.Time
	Transition    logic.Transition
	Active        bool
	Override      bool
	Humidity      float64
	HumidityLimit float64
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// ReadingsPayload is the MQTT payload for readings.
type ReadingsPayload struct {
	Readings ReadingsInner `json:"readings"`
}

// ReadingsInner contains the readings details.
type ReadingsInner struct {
	Timestamp string    `json:"timestamp"`
	Sensor1   ValuePair `json:"sensor1"`
	Sensor2   ValuePair `json:"sensor2"`
	Averages  ValuePair `json:"averages"`
}

// ValuePair is one temperature/humidity pair.
type ValuePair struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

// FormatReadingsPayload creates the JSON payload for readings.
func FormatReadingsPayload(r logic.Readings) ([]byte, error) {
	return json.Marshal(ReadingsPayload{
		Readings: ReadingsInner{
			Timestamp: r.Time.UTC().Format(time.RFC3339),
			Sensor1:   ValuePair{Temperature: r.Temperature1, Humidity: r.Humidity1},
			Sensor2:   ValuePair{Temperature: r.Temperature2, Humidity: r.Humidity2},
			Averages:  ValuePair{Temperature: r.AverageTemperature, Humidity: r.AverageHumidity},
		},
	})
}

// WarningPayload is the MQTT payload for a warning transition.
type WarningPayload struct {
	Warning WarningInner `json:"warning"`
}

// WarningInner contains the warning details.
type WarningInner struct {
	Timestamp     string  `json:"timestamp"`
	Event         string  `json:"event"`
	Active        bool    `json:"active"`
	Override      bool    `json:"override"`
	Humidity      float64 `json:"humidity"`
	HumidityLimit float64 `json:"humidity_limit"`
}

// FormatWarningPayload creates the JSON payload for a warning transition.
func FormatWarningPayload(event WarningEvent) ([]byte, error) {
	return json.Marshal(WarningPayload{
		Warning: WarningInner{
			Timestamp:     event.Timestamp.UTC().Format(time.RFC3339),
			Event:         string(event.Transition),
			Active:        event.Active,
			Override:      event.Override,
			Humidity:      event.Humidity,
			HumidityLimit: event.HumidityLimit,
		},
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
