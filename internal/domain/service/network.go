package service

import "context"

// Network is a trained or trainable regression model.
type Network interface {
	// Fit trains on x/y and returns the loss after the last epoch.
	Fit(ctx context.Context, x [][]float64, y []float64) (float64, error)
	// Predict returns the scalar output for one flattened sample.
	Predict(x []float64) (float64, error)
	// InputShape is the per-sample shape the network expects.
	InputShape() []int
	Variant() string
	MarshalJSON() ([]byte, error)
}
