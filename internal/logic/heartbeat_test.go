package logic

import (
	"testing"
	"time"
)

func TestHeartbeatDisabledWithZeroInterval(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if _, ok := NewHeartbeat(0, startTime).Check(startTime.Add(15 * time.Minute)); ok {
		t.Error("should not return heartbeat when interval is 0 (disabled)")
	}
	if _, ok := NewHeartbeat(-time.Minute, startTime).Check(startTime.Add(15 * time.Minute)); ok {
		t.Error("should not return heartbeat when interval is negative")
	}
}

func TestHeartbeatBeforeInterval(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	h := NewHeartbeat(15*time.Minute, startTime)

	if _, ok := h.Check(startTime.Add(14 * time.Minute)); ok {
		t.Error("should not return heartbeat before interval")
	}
}

func TestHeartbeatAtInterval(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	h := NewHeartbeat(15*time.Minute, startTime)

	checkTime := startTime.Add(15 * time.Minute)
	hb, ok := h.Check(checkTime)
	if !ok {
		t.Fatal("should return heartbeat at interval")
	}
	if !hb.Timestamp.Equal(checkTime) {
		t.Errorf("expected timestamp %v, got %v", checkTime, hb.Timestamp)
	}
	if hb.Uptime != 15*time.Minute {
		t.Errorf("expected uptime 15m, got %v", hb.Uptime)
	}
}

func TestHeartbeatUpdatesLastTime(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	h := NewHeartbeat(15*time.Minute, startTime)

	t1 := startTime.Add(15 * time.Minute)
	if _, ok := h.Check(t1); !ok {
		t.Fatal("should return first heartbeat")
	}

	if _, ok := h.Check(t1.Add(time.Second)); ok {
		t.Error("should not return heartbeat immediately after previous")
	}

	t2 := t1.Add(15 * time.Minute)
	hb, ok := h.Check(t2)
	if !ok {
		t.Fatal("should return second heartbeat")
	}
	if hb.Uptime != 30*time.Minute {
		t.Errorf("expected uptime 30m, got %v", hb.Uptime)
	}
}
