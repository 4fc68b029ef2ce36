package sensor

import "math/rand"

// Simulator produces plausible readings around a base value.
type Simulator struct {
	BaseTemp     float64
	BaseHumidity float64
	rng          *rand.Rand
}

// NewSimulator creates a simulator. The same seed always yields the same sequence.
func NewSimulator(baseTemp, baseHumidity float64, seed int64) *Simulator {
	return &Simulator{
		BaseTemp:     baseTemp,
		BaseHumidity: baseHumidity,
		rng:          rand.New(rand.NewSource(seed)),
	}
}

func (s *Simulator) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

// ReadTemperature returns BaseTemp plus jitter in [-2, +3).
func (s *Simulator) ReadTemperature() (float64, error) {
	return s.BaseTemp + s.uniform(-2, 3), nil
}

// ReadHumidity returns BaseHumidity plus jitter in [-10, +15).
func (s *Simulator) ReadHumidity() (float64, error) {
	return s.BaseHumidity + s.uniform(-10, 15), nil
}

// Close does nothing.
func (s *Simulator) Close() error {
	return nil
}
