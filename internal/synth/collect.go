package synth

import (
	"math/rand"
	"time"
)

// AcquisitionResult reports the simulated collection outcome for one metric
type AcquisitionResult struct {
	ID         string   `json:"id"`
	Quality    string   `json:"quality"`
	Reason     *string  `json:"reason"`
	Value      *float64 `json:"value"`
	DurationMs int64    `json:"duration_ms"`
}

// Acquisition qualities
const (
	QualityGood    = "good"
	QualityTimeout = "timeout"
)

const timeoutProbability = 0.15

// Acquire simulates an on-demand collection pass over the target metric ids.
// Unlike series and events this is intentionally not seed-stable: each call
// models a fresh acquisition attempt with ~15% simulated timeouts.
func Acquire(targets []string) []AcquisitionResult {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	results := make([]AcquisitionResult, 0, len(targets))
	for _, id := range targets {
		if rng.Float64() > timeoutProbability {
			value := round2(50 + rng.Float64()*50)
			results = append(results, AcquisitionResult{
				ID:         id,
				Quality:    QualityGood,
				Value:      &value,
				DurationMs: int64(80 + rng.Float64()*180),
			})
			continue
		}

		reason := "mock_timeout"
		results = append(results, AcquisitionResult{
			ID:         id,
			Quality:    QualityTimeout,
			Reason:     &reason,
			DurationMs: 5000,
		})
	}
	return results
}

// SummarizeAcquisition counts good and failed results
func SummarizeAcquisition(results []AcquisitionResult) (success, failed int) {
	for _, r := range results {
		if r.Quality == QualityGood {
			success++
		} else {
			failed++
		}
	}
	return success, failed
}
