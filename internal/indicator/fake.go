package indicator

import "github.com/sweeney/filament-monitor/internal/logic"

// FakeIndicator records every call for test assertions.
type FakeIndicator struct {
	// Colors contains every color passed to SetColor.
	Colors []logic.RGB

	// Clears counts Clear calls.
	Clears int

	// SetError, if set, is returned by SetColor.
	SetError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeIndicator creates a FakeIndicator.
func NewFakeIndicator() *FakeIndicator {
	return &FakeIndicator{}
}

// SetColor records the color.
func (f *FakeIndicator) SetColor(c logic.RGB) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Colors = append(f.Colors, c)
	return nil
}

// Clear records the call.
func (f *FakeIndicator) Clear() error {
	f.Clears++
	return nil
}

// Close marks the indicator as closed.
func (f *FakeIndicator) Close() error {
	f.Closed = true
	return nil
}

// Last returns the most recent color, if any.
func (f *FakeIndicator) Last() (logic.RGB, bool) {
	if len(f.Colors) == 0 {
		return logic.RGB{}, false
	}
	return f.Colors[len(f.Colors)-1], true
}
