package network

import (
	"fmt"

	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anysgd"
)

// parseActivation maps a profile activation onto an anynet layer. Linear is nil.
func parseActivation(s string) (anynet.Layer, error) {
	switch s {
	case "", "linear":
		return nil, nil
	case "relu":
		return anynet.ReLU, nil
	case "sigmoid":
		return anynet.Sigmoid, nil
	case "tanh":
		return anynet.Tanh, nil
	default:
		return nil, fmt.Errorf("unknown activation %q", s)
	}
}

// newTransformer maps an optimizer spec onto the anysgd gradient transform.
// Plain SGD has none.
func newTransformer(spec OptimizerSpec) (anysgd.Transformer, error) {
	switch spec.Name {
	case "sgd":
		return nil, nil
	case "momentum":
		return &anysgd.Momentum{Momentum: spec.Momentum}, nil
	case "adam":
		b1, b2 := spec.Beta1, spec.Beta2
		if b1 == 0 {
			b1 = 0.9
		}
		if b2 == 0 {
			b2 = 0.999
		}
		return &anysgd.Adam{DecayRate1: b1, DecayRate2: b2, Damping: 1e-7}, nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q", spec.Name)
	}
}
