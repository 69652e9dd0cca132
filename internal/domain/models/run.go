package models

import "time"

// TrainingRun records one completed training.
type TrainingRun struct {
	ID        string   `json:"id"`
	Identity  Identity `json:"identity"`
	Profile   string   `json:"profile"`
	Variant   string   `json:"variant"`
	Samples   int      `json:"samples"`
	Epochs    int      `json:"epochs"`
	FinalLoss float64  `json:"final_loss"`
	// Held-out scores; zero TestSamples means no evaluation ran.
	TestSamples int           `json:"test_samples,omitempty"`
	TestLoss    float64       `json:"test_loss,omitempty"`
	Accuracy    float64       `json:"accuracy,omitempty"`
	Duration    time.Duration `json:"duration"`
	ModelPath   string        `json:"model_path"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Prediction is the single scalar produced for one sample.
type Prediction struct {
	Identity  Identity  `json:"identity"`
	Value     float64   `json:"value"`
	ModelPath string    `json:"model_path"`
	CreatedAt time.Time `json:"created_at"`
}
