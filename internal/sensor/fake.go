package sensor

import "errors"

// FakeSensor is a test double that returns scripted values.
type FakeSensor struct {
	// Temperatures and Humidities are consumed one per call.
	// When exhausted, the last value repeats.
	Temperatures []float64
	Humidities   []float64

	tIndex int
	hIndex int

	// ReadError, if set, is returned by every read.
	ReadError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeSensor creates a FakeSensor with the given scripted values.
func NewFakeSensor(temps, hums []float64) *FakeSensor {
	return &FakeSensor{Temperatures: temps, Humidities: hums}
}

func next(values []float64, index *int) (float64, error) {
	if len(values) == 0 {
		return 0, errors.New("no values configured")
	}
	v := values[*index]
	if *index < len(values)-1 {
		*index++
	}
	return v, nil
}

// ReadTemperature returns the next scripted temperature.
func (f *FakeSensor) ReadTemperature() (float64, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	return next(f.Temperatures, &f.tIndex)
}

// ReadHumidity returns the next scripted humidity.
func (f *FakeSensor) ReadHumidity() (float64, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	return next(f.Humidities, &f.hIndex)
}

// Close marks the sensor as closed.
func (f *FakeSensor) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the scripted values.
func (f *FakeSensor) Reset() {
	f.tIndex = 0
	f.hIndex = 0
	f.Closed = false
}
