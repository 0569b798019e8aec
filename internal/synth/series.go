// Package synth generates the deterministic synthetic telemetry served by the
// backend: time-series samples, categorized events, and mock acquisition
// results. Series and event output is fully determined by the query
// parameters via seeded generators.
package synth

import (
	"fmt"
	"math"

	"github.com/telemock/telemock/internal/models"
	"github.com/telemock/telemock/internal/seed"
)

const (
	// Series sampling bounds: at most ~300 steps per window, at least one
	// sample per second
	minStepMs      = 1000
	targetSteps    = 300
	seriesBase     = 50.0
	seriesBaseStep = 10.0
)

// Series produces one sample sequence per metric id over [startMs, endMs].
// Each metric is seeded independently with "series:<id>:<start>:<end>", so
// repeated calls with the same window return identical points. A zero or
// negative span is floored to 1ms and yields a single point.
func Series(ids []string, startMs, endMs int64) map[string][]models.SeriesPoint {
	span := endMs - startMs
	if span < 1 {
		span = 1
	}
	step := span / targetSteps
	if step < minStepMs {
		step = minStepMs
	}
	pointCount := span/step + 1

	out := make(map[string][]models.SeriesPoint, len(ids))
	for idx, id := range ids {
		rng := seed.NewRand(fmt.Sprintf("series:%s:%d:%d", id, startMs, endMs))
		base := seriesBase + float64(idx)*seriesBaseStep

		points := make([]models.SeriesPoint, 0, pointCount)
		for i := int64(0); i < pointCount; i++ {
			noise := math.Sin(float64(i)/10+float64(idx))*5 + (rng.Float64()-0.5)*2
			points = append(points, models.SeriesPoint{
				T: startMs + i*step,
				V: round2(base + noise),
			})
		}
		out[id] = points
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
