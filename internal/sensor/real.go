package sensor

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"
)

// BME280 reads a Bosch BME280 over I2C.
type BME280 struct {
	addr   uint16
	bus    i2c.BusCloser
	device *bmxx80.Dev
	owned  bool // bus is closed with the sensor
}

// OpenBus initializes the host drivers and opens the named I2C bus ("" for the first one).
func OpenBus(name string) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host: %w", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", name, err)
	}
	return bus, nil
}

// NewBME280 attaches to the chip at addr on an already opened bus.
// The caller keeps ownership of the bus.
func NewBME280(bus i2c.BusCloser, addr uint16) (*BME280, error) {
	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("bme280 at 0x%02x: %w", addr, err)
	}
	return &BME280{addr: addr, bus: bus, device: dev}, nil
}

// OpenPair opens the bus and both enclosure sensors. The second sensor owns the bus.
func OpenPair(busName string, addr1, addr2 uint16) (*BME280, *BME280, error) {
	bus, err := OpenBus(busName)
	if err != nil {
		return nil, nil, err
	}
	s1, err := NewBME280(bus, addr1)
	if err != nil {
		bus.Close()
		return nil, nil, err
	}
	s2, err := NewBME280(bus, addr2)
	if err != nil {
		s1.Close()
		bus.Close()
		return nil, nil, err
	}
	s2.owned = true
	return s1, s2, nil
}

func (s *BME280) sense() (physic.Env, error) {
	var e physic.Env
	if err := s.device.Sense(&e); err != nil {
		return e, fmt.Errorf("sense 0x%02x: %w", s.addr, err)
	}
	return e, nil
}

// ReadTemperature returns degrees Celsius.
func (s *BME280) ReadTemperature() (float64, error) {
	e, err := s.sense()
	if err != nil {
		return 0, err
	}
	return e.Temperature.Celsius(), nil
}

// ReadHumidity returns relative humidity in percent.
func (s *BME280) ReadHumidity() (float64, error) {
	e, err := s.sense()
	if err != nil {
		return 0, err
	}
	return float64(e.Humidity) / float64(physic.PercentRH), nil
}

// Close halts the chip and, if owned, closes the bus.
func (s *BME280) Close() error {
	var errs []error
	if s.device != nil {
		if err := s.device.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("halt 0x%02x: %w", s.addr, err))
		}
	}
	if s.owned && s.bus != nil {
		if err := s.bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close bus: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
