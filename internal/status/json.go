package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string        `json:"event,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Readings      *ReadingsJSON `json:"readings"`
	Warning       WarningJSON   `json:"warning"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	MQTT          MQTTStatus    `json:"mqtt"`
	Counts        CountsJSON    `json:"counts"`
	Network       *NetworkJSON  `json:"network,omitempty"`
	Config        ConfigJSON    `json:"config"`
}

// ReadingsJSON is the JSON representation of the latest readings.
type ReadingsJSON struct {
	Timestamp string     `json:"timestamp"`
	Sensor1   SensorJSON `json:"sensor1"`
	Sensor2   SensorJSON `json:"sensor2"`
	Averages  SensorJSON `json:"averages"`
}

// SensorJSON holds one temperature/humidity pair.
type SensorJSON struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

// WarningJSON is the JSON representation of the warning controller.
type WarningJSON struct {
	State         string  `json:"state"`
	Active        bool    `json:"active"`
	Override      bool    `json:"override"`
	Color         [3]int  `json:"color"`
	HumidityLimit float64 `json:"humidity_limit"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of counters.
type CountsJSON struct {
	Ticks           int `json:"ticks"`
	ReadErrors      int `json:"read_errors"`
	Raised          int `json:"warnings_raised"`
	Cleared         int `json:"warnings_cleared"`
	Overrides       int `json:"overrides"`
	OverrideExpired int `json:"overrides_expired"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs         int64  `json:"poll_ms"`
	HeartbeatMs    int64  `json:"heartbeat_ms"`
	DwellTicks     int    `json:"dwell_ticks"`
	OverridePolicy string `json:"override_policy"`
	Broker         string `json:"broker"`
	HTTPAddr       string `json:"http_addr"`
	DataFile       string `json:"data_file,omitempty"`
	Simulated      bool   `json:"simulated"`
}

func buildInner(snap Snapshot) StatusInner {
	state := string(snap.Warning.State)
	if state == "" {
		state = "UNKNOWN"
	}
	c := snap.Warning.Color

	inner := StatusInner{
		Warning: WarningJSON{
			State:         state,
			Active:        snap.Warning.Active,
			Override:      snap.Warning.Override,
			Color:         [3]int{int(c.R), int(c.G), int(c.B)},
			HumidityLimit: snap.Warning.HumidityLimit,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Ticks:           snap.Counts.Ticks,
			ReadErrors:      snap.Counts.ReadErrors,
			Raised:          snap.Warning.Counts.Raised,
			Cleared:         snap.Warning.Counts.Cleared,
			Overrides:       snap.Warning.Counts.Overrides,
			OverrideExpired: snap.Warning.Counts.OverrideExpired,
		},
		Config: ConfigJSON{
			PollMs:         snap.Config.PollMs,
			HeartbeatMs:    snap.Config.HeartbeatMs,
			DwellTicks:     snap.Config.DwellTicks,
			OverridePolicy: snap.Config.OverridePolicy,
			Broker:         snap.Config.Broker,
			HTTPAddr:       snap.Config.HTTPAddr,
			DataFile:       snap.Config.DataFile,
			Simulated:      snap.Config.Simulated,
		},
	}

	if r := snap.Readings; r != nil {
		inner.Readings = &ReadingsJSON{
			Timestamp: r.Time.UTC().Format(time.RFC3339),
			Sensor1:   SensorJSON{Temperature: r.Temperature1, Humidity: r.Humidity1},
			Sensor2:   SensorJSON{Temperature: r.Temperature2, Humidity: r.Humidity2},
			Averages:  SensorJSON{Temperature: r.AverageTemperature, Humidity: r.AverageHumidity},
		}
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatCompact returns the JSON status on a single line, for streaming and files.
func FormatCompact(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
