package network

import (
	"fmt"

	"CandleNet/internal/domain/models"
	"CandleNet/internal/services/dataset"
	"CandleNet/pkg/config"
)

const (
	VariantDense  = "dense"
	VariantLSTM   = "lstm"
	VariantBiLSTM = "bilstm"
	VariantForest = "forest"

	LossMSE = "mse"
	LossMAE = "mae"
)

// LayerSpec describes one layer of a profile.
type LayerSpec struct {
	Units         int     `json:"units"`
	Activation    string  `json:"activation,omitempty"`
	Recurrent     bool    `json:"recurrent,omitempty"`
	Bidirectional bool    `json:"bidirectional,omitempty"`
	Dropout       float64 `json:"dropout,omitempty"`
}

type OptimizerSpec struct {
	Name         string  `json:"name"`
	LearningRate float64 `json:"learning_rate"`
	Momentum     float64 `json:"momentum,omitempty"`
	Beta1        float64 `json:"beta1,omitempty"`
	Beta2        float64 `json:"beta2,omitempty"`
}

// Profile is the declarative record of one network and how to train it.
type Profile struct {
	Name        string              `json:"name"`
	Variant     string              `json:"variant"`
	Layers      []LayerSpec         `json:"layers"`
	Loss        string              `json:"loss"`
	Optimizer   OptimizerSpec       `json:"optimizer"`
	Epochs      int                 `json:"epochs"`
	BatchSize   int                 `json:"batch_size"`
	Seed        int64               `json:"seed"`
	Trees       int                 `json:"trees,omitempty"`
	MaxDepth    int                 `json:"max_depth,omitempty"`
	Flatten     bool                `json:"flatten"`
	LabelPolicy dataset.LabelPolicy `json:"label_policy"`
}

// FromConfig looks up a named profile (the default one when name is empty).
func FromConfig(cfg *config.Config, name string) (Profile, error) {
	pc, resolved, ok := cfg.Profile(name)
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", models.ErrUnknownProfile, resolved)
	}
	p := Profile{
		Name:    resolved,
		Variant: pc.Variant,
		Loss:    pc.Loss,
		Optimizer: OptimizerSpec{
			Name:         pc.Optimizer.Name,
			LearningRate: pc.Optimizer.LearningRate,
			Momentum:     pc.Optimizer.Momentum,
			Beta1:        pc.Optimizer.Beta1,
			Beta2:        pc.Optimizer.Beta2,
		},
		Epochs:      pc.Epochs,
		BatchSize:   pc.BatchSize,
		Seed:        pc.Seed,
		Trees:       pc.Trees,
		MaxDepth:    pc.MaxDepth,
		Flatten:     pc.Flatten,
		LabelPolicy: dataset.LabelPolicy(pc.LabelPolicy),
	}
	for _, l := range pc.Layers {
		p.Layers = append(p.Layers, LayerSpec{
			Units:         l.Units,
			Activation:    l.Activation,
			Recurrent:     l.Recurrent,
			Bidirectional: l.Bidirectional,
			Dropout:       l.Dropout,
		})
	}
	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", resolved, err)
	}
	return p, nil
}

// Shaping is how the loader must present samples to this profile.
func (p Profile) Shaping() dataset.Shaping {
	return dataset.Shaping{Flatten: p.Flatten, LabelPolicy: p.LabelPolicy}
}

// Validate checks the rules the network builders rely on.
func (p Profile) Validate() error {
	if _, err := dataset.ParsePolicy(string(p.LabelPolicy)); err != nil {
		return err
	}
	if p.Variant == VariantForest {
		if p.Trees < 1 {
			return fmt.Errorf("forest needs at least one tree")
		}
		if p.MaxDepth < 1 {
			return fmt.Errorf("forest max depth must be positive")
		}
		if len(p.Layers) > 0 {
			return fmt.Errorf("forest profiles have no layers")
		}
		return nil
	}
	if len(p.Layers) == 0 {
		return fmt.Errorf("no layers")
	}
	if p.Epochs < 1 {
		return fmt.Errorf("epochs must be positive")
	}
	if p.Optimizer.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive")
	}
	if out := p.Layers[len(p.Layers)-1]; out.Units != 1 || out.Recurrent {
		return fmt.Errorf("output layer must be a single dense unit")
	}
	for _, l := range p.Layers {
		if l.Units < 1 {
			return fmt.Errorf("layer units must be positive")
		}
		if l.Dropout < 0 || l.Dropout >= 1 {
			return fmt.Errorf("dropout must be in [0, 1)")
		}
		if _, err := parseActivation(l.Activation); err != nil {
			return err
		}
	}

	switch p.Variant {
	case VariantDense:
		if p.Loss != LossMSE {
			return fmt.Errorf("dense networks train on %s loss only", LossMSE)
		}
		if p.Optimizer.Name != "sgd" && p.Optimizer.Name != "momentum" && p.Optimizer.Name != "adam" {
			return fmt.Errorf("unknown optimizer %q", p.Optimizer.Name)
		}
		for _, l := range p.Layers {
			if l.Recurrent || l.Bidirectional {
				return fmt.Errorf("dense networks cannot have recurrent layers")
			}
		}
	case VariantLSTM, VariantBiLSTM:
		if p.Flatten {
			return fmt.Errorf("%s networks need the 2-D grid, flatten must be off", p.Variant)
		}
		if p.Loss != LossMSE && p.Loss != LossMAE {
			return fmt.Errorf("unknown loss %q", p.Loss)
		}
		if _, err := newTransformer(p.Optimizer); err != nil {
			return err
		}
		if !p.Layers[0].Recurrent {
			return fmt.Errorf("%s networks start with a recurrent layer", p.Variant)
		}
		seenDense, bidi := false, false
		for _, l := range p.Layers {
			if !l.Recurrent {
				seenDense = true
				continue
			}
			if seenDense {
				return fmt.Errorf("recurrent layers must precede dense layers")
			}
			bidi = bidi || l.Bidirectional
		}
		if p.Variant == VariantBiLSTM && !bidi {
			return fmt.Errorf("bilstm needs a bidirectional layer")
		}
		if p.Variant == VariantLSTM && bidi {
			return fmt.Errorf("lstm cannot have bidirectional layers, use bilstm")
		}
	default:
		return fmt.Errorf("unknown variant %q", p.Variant)
	}
	return nil
}
