// Package sensor reads temperature and humidity from the enclosure sensors.
// The real implementation talks to BME280 chips over I2C.
// The simulator and fake implementations allow running without hardware.
package sensor

import (
	"fmt"
	"time"

	"github.com/sweeney/filament-monitor/internal/logic"
)

// Sensor reads one temperature/humidity chip.
type Sensor interface {
	// ReadTemperature returns degrees Celsius.
	ReadTemperature() (float64, error)

	// ReadHumidity returns relative humidity in percent.
	ReadHumidity() (float64, error)

	// Close releases bus resources.
	Close() error
}

// I2C addresses of the two BME280 chips in the enclosure.
const (
	DefaultAddr1 = 0x77
	DefaultAddr2 = 0x76
)

// Quantity names the value that failed to read.
type Quantity string

const (
	Temperature Quantity = "temperature"
	Humidity    Quantity = "humidity"
)

// ReadError reports a failed read from one sensor.
type ReadError struct {
	Sensor   int // 1 or 2
	Quantity Quantity
	Err      error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("sensor %d %s: %v", e.Sensor, e.Quantity, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// ReadPair reads both sensors and returns rounded readings with averages.
// The first failure is returned as a *ReadError and no readings are produced.
func ReadPair(s1, s2 Sensor, at time.Time) (logic.Readings, error) {
	t1, err := s1.ReadTemperature()
	if err != nil {
		return logic.Readings{}, &ReadError{Sensor: 1, Quantity: Temperature, Err: err}
	}
	t2, err := s2.ReadTemperature()
	if err != nil {
		return logic.Readings{}, &ReadError{Sensor: 2, Quantity: Temperature, Err: err}
	}
	h1, err := s1.ReadHumidity()
	if err != nil {
		return logic.Readings{}, &ReadError{Sensor: 1, Quantity: Humidity, Err: err}
	}
	h2, err := s2.ReadHumidity()
	if err != nil {
		return logic.Readings{}, &ReadError{Sensor: 2, Quantity: Humidity, Err: err}
	}
	return logic.NewReadings(t1, t2, h1, h2, at), nil
}
