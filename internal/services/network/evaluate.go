package network

import (
	"fmt"

	"CandleNet/internal/domain/service"
)

// Evaluation scores a trained network on held-out samples.
type Evaluation struct {
	Samples int     `json:"samples"`
	MSE     float64 `json:"mse"`
	// Accuracy is the share of samples whose predicted direction matches the label's.
	Accuracy float64 `json:"accuracy"`
}

// Evaluate runs net over x and compares against y.
func Evaluate(net service.Network, x [][]float64, y []float64) (Evaluation, error) {
	if len(x) != len(y) {
		return Evaluation{}, fmt.Errorf("%d samples for %d labels", len(x), len(y))
	}
	if len(x) == 0 {
		return Evaluation{}, fmt.Errorf("no evaluation samples")
	}
	var sq float64
	correct := 0
	for i, row := range x {
		p, err := net.Predict(row)
		if err != nil {
			return Evaluation{}, fmt.Errorf("sample %d: %w", i, err)
		}
		sq += (p - y[i]) * (p - y[i])
		if Direction(p) == Direction(y[i]) {
			correct++
		}
	}
	n := float64(len(x))
	return Evaluation{Samples: len(x), MSE: sq / n, Accuracy: float64(correct) / n}, nil
}
