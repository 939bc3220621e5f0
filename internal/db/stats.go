package db

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/position.report/internal/nav"
)

// FieldStats summarises one numeric telemetry field.
type FieldStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// TelemetrySummary is the aggregate view of a telemetry window.
// PathLengthM is the length of the recorded track (sum of successive
// position deltas); NetDisplacementM is straight-line start to end.
type TelemetrySummary struct {
	Samples          int        `json:"samples"`
	TempC            FieldStats `json:"temp_c"`
	HumidityRH       FieldStats `json:"humidity_rh"`
	DistanceToTarget FieldStats `json:"distance_to_target"`
	PathLengthM      float64    `json:"path_length_m"`
	NetDisplacementM float64    `json:"net_displacement_m"`
}

func summariseField(values []float64) FieldStats {
	if len(values) == 0 {
		return FieldStats{}
	}
	s := FieldStats{
		Count: len(values),
		Mean:  stat.Mean(values, nil),
		Min:   floats.Min(values),
		Max:   floats.Max(values),
	}
	if len(values) > 1 {
		if sd := stat.StdDev(values, nil); !math.IsNaN(sd) {
			s.StdDev = sd
		}
	}
	return s
}

// TelemetrySummary computes summary statistics over all telemetry received
// since the given time. The distance field is summarised only over rows
// where the unit was navigating.
func (db *DB) TelemetrySummary(since time.Time) (*TelemetrySummary, error) {
	history, err := db.TelemetryHistory(since, 0)
	if err != nil {
		return nil, err
	}

	summary := &TelemetrySummary{Samples: len(history)}
	if len(history) == 0 {
		return summary, nil
	}

	temps := make([]float64, len(history))
	humidity := make([]float64, len(history))
	var distances []float64
	for i, row := range history {
		temps[i] = row.TempC
		humidity[i] = row.HumidityRH
		if row.DistanceToTarget != nil {
			distances = append(distances, *row.DistanceToTarget)
		}
	}

	summary.TempC = summariseField(temps)
	summary.HumidityRH = summariseField(humidity)
	summary.DistanceToTarget = summariseField(distances)

	for i := 1; i < len(history); i++ {
		summary.PathLengthM += nav.Distance(history[i-1].Position, history[i].Position)
	}
	summary.NetDisplacementM = nav.Distance(history[0].Position, history[len(history)-1].Position)

	return summary, nil
}
