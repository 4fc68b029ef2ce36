package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/sweeney/filament-monitor/internal/status"
)

// DataJSON is the flat latest-values document served at /data.
// Every field is null until the first successful tick.
type DataJSON struct {
	Temp1        *float64 `json:"temp1"`
	Temp2        *float64 `json:"temp2"`
	AverageTemp  *float64 `json:"average_temp"`
	Humid1       *float64 `json:"humid1"`
	Humid2       *float64 `json:"humid2"`
	AverageHumid *float64 `json:"average_humid"`
}

func formatData(snap status.Snapshot) []byte {
	var d DataJSON
	if r := snap.Readings; r != nil {
		d = DataJSON{
			Temp1:        &r.Temperature1,
			Temp2:        &r.Temperature2,
			AverageTemp:  &r.AverageTemperature,
			Humid1:       &r.Humidity1,
			Humid2:       &r.Humidity2,
			AverageHumid: &r.AverageHumidity,
		}
	}
	data, _ := json.Marshal(d)
	return data
}

// OverrideRequest is the body of POST /override.
type OverrideRequest struct {
	Active *bool `json:"active"`
}

// LimitRequest is the body of POST /limit.
type LimitRequest struct {
	HumidityLimit *float64 `json:"humidity_limit"`
}

// maxBody bounds control request bodies.
const maxBody = 1 << 10

var errMissingField = errors.New("missing field")

func decodeOverride(r io.Reader) (bool, error) {
	var req OverrideRequest
	if err := decodeStrict(r, &req); err != nil {
		return false, err
	}
	if req.Active == nil {
		return false, fmt.Errorf("%w: active", errMissingField)
	}
	return *req.Active, nil
}

func decodeLimit(r io.Reader) (float64, error) {
	var req LimitRequest
	if err := decodeStrict(r, &req); err != nil {
		return 0, err
	}
	if req.HumidityLimit == nil {
		return 0, fmt.Errorf("%w: humidity_limit", errMissingField)
	}
	limit := *req.HumidityLimit
	if math.IsNaN(limit) || limit < 0 || limit > 100 {
		return 0, fmt.Errorf("humidity_limit %v outside 0..100", limit)
	}
	return limit, nil
}

func decodeStrict(r io.Reader, v any) error {
	dec := json.NewDecoder(io.LimitReader(r, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}
