// Package gpio reads the manual override push button on the enclosure.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads the button state.
type Reader interface {
	// Pressed returns true while the button is held down.
	// The raw line is active-low: raw 0 = pressed.
	Pressed() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// DefaultPinButton is the BCM pin of the override button.
const DefaultPinButton = 27

// Edge turns level samples into single press events.
type Edge struct {
	last bool
}

// Update returns true on the transition from released to pressed.
func (e *Edge) Update(pressed bool) bool {
	rising := pressed && !e.last
	e.last = pressed
	return rising
}
