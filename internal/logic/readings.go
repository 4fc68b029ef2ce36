package logic

import (
	"math"
	"time"
)

// Average returns the mean of two readings.
func Average(a, b float64) float64 {
	return (a + b) / 2
}

// Round1 rounds to one decimal place.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// NewReadings rounds the raw values of both sensors and computes the averages.
func NewReadings(t1, t2, h1, h2 float64, at time.Time) Readings {
	t1, t2 = Round1(t1), Round1(t2)
	h1, h2 = Round1(h1), Round1(h2)
	return Readings{
		Temperature1:       t1,
		Temperature2:       t2,
		AverageTemperature: Round1(Average(t1, t2)),
		Humidity1:          h1,
		Humidity2:          h2,
		AverageHumidity:    Round1(Average(h1, h2)),
		Time:               at,
	}
}
