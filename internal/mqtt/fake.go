package mqtt

import (
	"github.com/sweeney/filament-monitor/internal/logic"
)

// FakePublisher records published messages for test assertions.
type FakePublisher struct {
	// Readings contains all readings that were published.
	Readings []logic.Readings

	// WarningEvents contains all warning transitions that were published.
	WarningEvents []WarningEvent

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// Payloads contains every JSON payload in publish order.
	Payloads [][]byte

	// PublishError, if set, will be returned by PublishReadings and PublishWarning.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishReadings records the readings.
func (f *FakePublisher) PublishReadings(r logic.Readings) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatReadingsPayload(r)
	if err != nil {
		return err
	}
	f.Readings = append(f.Readings, r)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishWarning records the warning transition.
func (f *FakePublisher) PublishWarning(event WarningEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatWarningPayload(event)
	if err != nil {
		return err
	}
	f.WarningEvents = append(f.WarningEvents, event)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded messages.
func (f *FakePublisher) Reset() {
	f.Readings = nil
	f.WarningEvents = nil
	f.SystemEvents = nil
	f.Payloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
