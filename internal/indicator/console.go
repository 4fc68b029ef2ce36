package indicator

import (
	"log"

	"github.com/sweeney/filament-monitor/internal/logic"
)

// Console logs color changes instead of driving hardware. Used in simulation mode.
type Console struct {
	last logic.RGB
	lit  bool
}

// NewConsole creates a Console indicator.
func NewConsole() *Console {
	return &Console{}
}

// SetColor logs the new color.
func (c *Console) SetColor(rgb logic.RGB) error {
	c.last = rgb
	c.lit = true
	log.Printf("indicator: color %s", rgb)
	return nil
}

// Clear logs that the strip is off.
func (c *Console) Clear() error {
	c.lit = false
	log.Printf("indicator: cleared")
	return nil
}

// Close does nothing.
func (c *Console) Close() error {
	return nil
}
