package config

// BuiltinProfiles mirrors the three network scripts: a flattened dense regressor
// and two recurrent regressors fed the grid row by row.
func BuiltinProfiles() map[string]ProfileConfig {
	return map[string]ProfileConfig{
		"dense": {
			Variant: "dense",
			Layers: []LayerConfig{
				{Units: 128, Activation: "relu"},
				{Units: 64},
				{Units: 128},
				{Units: 32, Activation: "relu"},
				{Units: 1, Activation: "linear"},
			},
			Loss:        "mse",
			Optimizer:   OptimizerConfig{Name: "sgd", LearningRate: 0.01},
			Epochs:      170,
			BatchSize:   32,
			Flatten:     true,
			LabelPolicy: "filename",
		},
		"lstm": {
			Variant: "lstm",
			Layers: []LayerConfig{
				{Units: 64, Recurrent: true, Dropout: 0.2},
				{Units: 32, Recurrent: true},
				{Units: 1, Activation: "linear"},
			},
			Loss:        "mae",
			Optimizer:   OptimizerConfig{Name: "adam", LearningRate: 0.001, Beta1: 0.9, Beta2: 0.999},
			Epochs:      50,
			BatchSize:   32,
			Seed:        42,
			LabelPolicy: "last_row",
		},
		"bilstm": {
			Variant: "bilstm",
			Layers: []LayerConfig{
				{Units: 64, Recurrent: true, Bidirectional: true, Dropout: 0.2},
				{Units: 1, Activation: "linear"},
			},
			Loss:        "mae",
			Optimizer:   OptimizerConfig{Name: "momentum", LearningRate: 0.01, Momentum: 0.9},
			Epochs:      50,
			BatchSize:   32,
			Seed:        42,
			LabelPolicy: "last_row",
		},
		"forest": {
			Variant:     "forest",
			Trees:       50,
			MaxDepth:    8,
			Seed:        42,
			Flatten:     true,
			LabelPolicy: "filename",
		},
	}
}
