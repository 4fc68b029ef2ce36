package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/filament-monitor/internal/logic"
)

func testReadings() logic.Readings {
	return logic.NewReadings(22.0, 23.0, 58.0, 62.0, time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC))
}

func warningOn() Warning {
	return Warning{
		State:         logic.StateWarning,
		Active:        true,
		Color:         logic.WarningColor,
		HumidityLimit: 60,
		Counts:        logic.Counts{Raised: 2, Cleared: 1},
	}
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{PollMs: 2000, DwellTicks: 20, Broker: "tcp://localhost:1883", HTTPAddr: ":80"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.PollMs != 2000 {
		t.Errorf("Config.PollMs: got %d, want 2000", snap.Config.PollMs)
	}
	if snap.Config.HTTPAddr != ":80" {
		t.Errorf("Config.HTTPAddr: got %q, want %q", snap.Config.HTTPAddr, ":80")
	}
	if snap.Readings != nil {
		t.Error("expected no readings initially")
	}
	if snap.Warning.State != logic.StateNormal {
		t.Errorf("Warning.State: got %q, want NORMAL", snap.Warning.State)
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.Update(testReadings(), warningOn())

	snap := tr.Snapshot()
	if snap.Readings == nil {
		t.Fatal("expected readings after Update")
	}
	if snap.Readings.AverageHumidity != 60 {
		t.Errorf("AverageHumidity: got %v, want 60", snap.Readings.AverageHumidity)
	}
	if !snap.Warning.Active {
		t.Error("expected Warning.Active=true")
	}
	if snap.Warning.Counts.Raised != 2 {
		t.Errorf("Warning.Counts.Raised: got %d, want 2", snap.Warning.Counts.Raised)
	}
	if snap.Counts.Ticks != 1 {
		t.Errorf("Counts.Ticks: got %d, want 1", snap.Counts.Ticks)
	}
}

func TestRecordReadError(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.RecordReadError()
	tr.RecordReadError()
	tr.Update(testReadings(), warningOn())

	snap := tr.Snapshot()
	if snap.Counts.ReadErrors != 2 {
		t.Errorf("ReadErrors: got %d, want 2", snap.Counts.ReadErrors)
	}
	if snap.Counts.Ticks != 3 {
		t.Errorf("Ticks: got %d, want 3", snap.Counts.Ticks)
	}
}

func TestSetWarningKeepsReadings(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.Update(testReadings(), warningOn())

	tr.SetWarning(Warning{State: logic.StateOverridden, Active: true, Override: true, Color: logic.WarningColor})

	snap := tr.Snapshot()
	if snap.Readings == nil {
		t.Fatal("SetWarning must not drop readings")
	}
	if snap.Warning.State != logic.StateOverridden {
		t.Errorf("Warning.State: got %q, want OVERRIDDEN", snap.Warning.State)
	}
	if snap.Counts.Ticks != 1 {
		t.Errorf("SetWarning must not count a tick, got %d", snap.Counts.Ticks)
	}
}

func TestWarningFrom(t *testing.T) {
	c, err := logic.NewController(logic.ControllerConfig{HumidityLimit: 55, DwellLimit: 20})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Step(70); err != nil {
		t.Fatal(err)
	}
	c.SetManualOverride(true)

	w := WarningFrom(c)
	if w.State != logic.StateOverridden {
		t.Errorf("State: got %q, want OVERRIDDEN", w.State)
	}
	if !w.Active || !w.Override {
		t.Errorf("expected active and overridden, got %+v", w)
	}
	if w.Color != logic.WarningColor {
		t.Errorf("Color: got %s, want %s", w.Color, logic.WarningColor)
	}
	if w.HumidityLimit != 55 {
		t.Errorf("HumidityLimit: got %v, want 55", w.HumidityLimit)
	}
	if w.Counts.Raised != 1 || w.Counts.Overrides != 1 {
		t.Errorf("Counts: got %+v", w.Counts)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	if tr.Snapshot().Network != nil {
		t.Error("expected nil Network initially")
	}

	net := &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected"}
	tr.SetNetwork(net)

	snap := tr.Snapshot()
	if snap.Network == nil {
		t.Fatal("expected non-nil Network")
	}
	if snap.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want %q", snap.Network.IP, "192.168.1.42")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.Update(testReadings(), warningOn())

	snap1 := tr.Snapshot()
	snap1.Readings.AverageHumidity = 99

	tr.Update(logic.NewReadings(20, 20, 40, 40, time.Now()), Warning{State: logic.StateNormal})

	if snap1.Warning.State != logic.StateWarning {
		t.Error("snapshot should be a copy; warning was modified")
	}
	if snap1.Readings.AverageTemperature != 22.5 {
		t.Error("snapshot should be a copy; readings were modified")
	}
	if got := tr.Snapshot().Readings.AverageHumidity; got != 40 {
		t.Errorf("mutating a snapshot leaked into the tracker: %v", got)
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := testReadings()
	snap := Snapshot{
		Readings:      &r,
		Warning:       warningOn(),
		Counts:        Counts{Ticks: 10, ReadErrors: 1},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{PollMs: 2000, DwellTicks: 20, OverridePolicy: "timed", Broker: "tcp://localhost:1883", HTTPAddr: ":80"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Readings == nil {
		t.Fatal("expected readings")
	}
	if parsed.Status.Readings.Averages.Humidity != 60 {
		t.Errorf("Averages.Humidity: got %v, want 60", parsed.Status.Readings.Averages.Humidity)
	}
	if parsed.Status.Readings.Sensor2.Temperature != 23 {
		t.Errorf("Sensor2.Temperature: got %v, want 23", parsed.Status.Readings.Sensor2.Temperature)
	}
	if parsed.Status.Warning.State != "WARNING" {
		t.Errorf("Warning.State: got %q, want WARNING", parsed.Status.Warning.State)
	}
	if parsed.Status.Warning.Color != [3]int{255, 0, 0} {
		t.Errorf("Warning.Color: got %v", parsed.Status.Warning.Color)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
	if parsed.Status.MQTT.Connected != true {
		t.Error("expected MQTT.Connected=true")
	}
	if parsed.Status.Counts.Raised != 2 || parsed.Status.Counts.ReadErrors != 1 {
		t.Errorf("unexpected counts: %+v", parsed.Status.Counts)
	}
	if parsed.Status.Config.OverridePolicy != "timed" {
		t.Errorf("Config.OverridePolicy: got %q", parsed.Status.Config.OverridePolicy)
	}
	// Event and Reason should be omitted
	if parsed.Status.Event != "" {
		t.Errorf("expected empty Event for web format, got %q", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("expected empty Reason for web format, got %q", parsed.Status.Reason)
	}
}

func TestFormatJSONNoReadingsYet(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatJSON(snap)

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	status := raw["status"].(map[string]interface{})
	if v, exists := status["readings"]; !exists || v != nil {
		t.Errorf("readings: expected explicit null, got %v (exists=%v)", v, exists)
	}

	var parsed StatusJSON
	json.Unmarshal(data, &parsed)
	if parsed.Status.Warning.State != "UNKNOWN" {
		t.Errorf("Warning.State: got %q, want UNKNOWN", parsed.Status.Warning.State)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Warning:       warningOn(),
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{PollMs: 2000, Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "HEARTBEAT", "")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("Event: got %q, want HEARTBEAT", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("Reason: got %q, want empty", parsed.Status.Reason)
	}
	if !parsed.Status.Warning.Active {
		t.Error("expected Warning.Active=true")
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
}

func TestFormatStatusEventShutdown(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(30 * time.Minute),
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatStatusEvent(snap, "STARTUP", "")

	// Verify "reason" is not in the raw JSON output
	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestFormatCompactIsSingleLine(t *testing.T) {
	r := testReadings()
	snap := Snapshot{Readings: &r, StartTime: time.Now(), Now: time.Now()}

	data := FormatCompact(snap)
	for _, b := range data {
		if b == '\n' {
			t.Fatal("compact JSON should not contain newlines")
		}
	}
}

func TestFormatJSONWithNetwork(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC),
		Network:   &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"},
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	json.Unmarshal(data, &parsed)

	if parsed.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if parsed.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", parsed.Status.Network.IP)
	}
	if parsed.Status.Network.SSID != "MyNet" {
		t.Errorf("Network.SSID: got %q, want MyNet", parsed.Status.Network.SSID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(testReadings(), warningOn())
			tr.RecordReadError()
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
			_ = FormatCompact(snap)
		}
	}()

	wg.Wait()
}
