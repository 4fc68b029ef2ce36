// Package metrics exposes enclosure readings and warning state to Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/filament-monitor/internal/logic"
)

const namespace = "filament"

var (
	temperature = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "temperature_celsius",
		Help:      "Temperature reported by each enclosure sensor",
	}, []string{"sensor"})

	humidity = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "humidity_percent",
		Help:      "Relative humidity reported by each enclosure sensor",
	}, []string{"sensor"})

	warningActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "warning",
		Name:      "active",
		Help:      "1 while the humidity warning is active",
	})

	overrideActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "warning",
		Name:      "override_active",
		Help:      "1 while the manual override is engaged",
	})

	humidityLimit = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "warning",
		Name:      "humidity_limit_percent",
		Help:      "Humidity above which the warning is raised",
	})

	transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "warning",
		Name:      "transitions_total",
		Help:      "Warning state transitions by kind",
	}, []string{"transition"})

	readErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sensor_read_errors_total",
		Help:      "Failed sensor reads",
	}, []string{"sensor"})
)

// SetReadings updates the per-sensor and averaged gauges.
// Averages are reported under sensor="average".
func SetReadings(r logic.Readings) {
	temperature.WithLabelValues("1").Set(r.Temperature1)
	temperature.WithLabelValues("2").Set(r.Temperature2)
	temperature.WithLabelValues("average").Set(r.AverageTemperature)
	humidity.WithLabelValues("1").Set(r.Humidity1)
	humidity.WithLabelValues("2").Set(r.Humidity2)
	humidity.WithLabelValues("average").Set(r.AverageHumidity)
}

// SetWarning records the controller output and current limit.
func SetWarning(res logic.Result, limit float64) {
	warningActive.Set(boolToFloat(res.Active))
	overrideActive.Set(boolToFloat(res.Override))
	humidityLimit.Set(limit)
	if res.Transition != logic.TransitionNone {
		transitions.WithLabelValues(string(res.Transition)).Inc()
	}
}

// IncReadError counts a failed read. sensor is 1 or 2; anything else is "unknown".
func IncReadError(sensor int) {
	label := "unknown"
	if sensor == 1 || sensor == 2 {
		label = strconv.Itoa(sensor)
	}
	readErrors.WithLabelValues(label).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
