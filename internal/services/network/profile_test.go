package network

import (
	"errors"
	"testing"

	"CandleNet/internal/domain/models"
	"CandleNet/pkg/config"
)

func TestBuiltinProfilesAreValid(t *testing.T) {
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"dense", "lstm", "bilstm", "forest"} {
		p, err := FromConfig(cfg, name)
		if err != nil {
			t.Fatalf("profile %s: %v", name, err)
		}
		if p.Variant != name {
			t.Fatalf("expected variant %s, got %s", name, p.Variant)
		}
	}
}

func TestFromConfigUnknownProfile(t *testing.T) {
	cfg, _ := config.Default()
	if _, err := FromConfig(cfg, "gru"); !errors.Is(err, models.ErrUnknownProfile) {
		t.Fatalf("expected ErrUnknownProfile, got %v", err)
	}
}

func TestProfileValidate(t *testing.T) {
	cfg, _ := config.Default()
	dense, _ := FromConfig(cfg, "dense")
	lstm, _ := FromConfig(cfg, "lstm")
	bilstm, _ := FromConfig(cfg, "bilstm")
	forest, _ := FromConfig(cfg, "forest")

	tests := []struct {
		name   string
		mutate func() Profile
	}{
		{"dense with mae", func() Profile { p := dense; p.Loss = LossMAE; return p }},
		{"lstm flattened", func() Profile { p := lstm; p.Flatten = true; return p }},
		{"lstm with bidirectional layer", func() Profile {
			p := lstm
			p.Layers = append([]LayerSpec(nil), lstm.Layers...)
			p.Layers[0].Bidirectional = true
			return p
		}},
		{"bilstm without bidirectional layer", func() Profile {
			p := bilstm
			p.Layers = append([]LayerSpec(nil), bilstm.Layers...)
			p.Layers[0].Bidirectional = false
			return p
		}},
		{"recurrent after dense", func() Profile {
			p := lstm
			p.Layers = []LayerSpec{{Units: 4, Recurrent: true}, {Units: 4}, {Units: 4, Recurrent: true}, {Units: 1}}
			return p
		}},
		{"wide output", func() Profile {
			p := dense
			p.Layers = []LayerSpec{{Units: 4, Activation: "relu"}, {Units: 2}}
			return p
		}},
		{"unknown optimizer", func() Profile { p := lstm; p.Optimizer.Name = "rmsprop"; return p }},
		{"unknown label policy", func() Profile { p := dense; p.LabelPolicy = "header"; return p }},
		{"forest without trees", func() Profile { p := forest; p.Trees = 0; return p }},
		{"forest with layers", func() Profile { p := forest; p.Layers = dense.Layers; return p }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.mutate().Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
