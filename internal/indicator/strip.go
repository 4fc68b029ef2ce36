package indicator

import (
	"fmt"

	"github.com/sweeney/filament-monitor/internal/logic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"
)

// Strip drives a WS2812 (NeoPixel) strip through the SPI MOSI pin.
type Strip struct {
	port   spi.PortCloser
	dev    *nrzled.Dev
	pixels int
	buf    []byte
}

// NewStrip opens the SPI port ("" for the first one) and attaches a strip of n pixels.
func NewStrip(portName string, n int) (*Strip, error) {
	if n <= 0 {
		n = DefaultPixels
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host: %w", err)
	}
	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("open spi port %q: %w", portName, err)
	}

	opts := nrzled.DefaultOpts
	opts.NumPixels = n
	opts.Channels = 3
	dev, err := nrzled.NewSPI(port, &opts)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("attach strip: %w", err)
	}

	return &Strip{
		port:   port,
		dev:    dev,
		pixels: n,
		buf:    make([]byte, n*3),
	}, nil
}

func (s *Strip) fill(c logic.RGB) error {
	for i := 0; i < s.pixels; i++ {
		s.buf[i*3] = c.R
		s.buf[i*3+1] = c.G
		s.buf[i*3+2] = c.B
	}
	if _, err := s.dev.Write(s.buf); err != nil {
		return fmt.Errorf("write pixels: %w", err)
	}
	return nil
}

// SetColor lights every pixel with c.
func (s *Strip) SetColor(c logic.RGB) error {
	return s.fill(c)
}

// Clear turns every pixel off.
func (s *Strip) Clear() error {
	return s.fill(logic.RGB{})
}

// Close releases the SPI port.
func (s *Strip) Close() error {
	var errs []error
	if err := s.dev.Halt(); err != nil {
		errs = append(errs, fmt.Errorf("halt strip: %w", err))
	}
	if err := s.port.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close spi: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
