// Package indicator drives the warning LED strip on the enclosure.
package indicator

import "github.com/sweeney/filament-monitor/internal/logic"

// Indicator shows a single color.
type Indicator interface {
	// SetColor lights every pixel with c.
	SetColor(c logic.RGB) error

	// Clear turns every pixel off.
	Clear() error

	// Close releases the bus. It does not clear the pixels.
	Close() error
}

// Strip defaults: 17 WS2812 pixels.
const DefaultPixels = 17
