package network

import (
	"fmt"
	"math/rand"

	"CandleNet/internal/domain/service"
)

// Factory builds untrained networks from profiles.
type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

// New validates p and builds the network variant it names.
func (f *Factory) New(p Profile, shape []int, opts ...Option) (service.Network, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	Seed(p.Seed)
	switch p.Variant {
	case VariantDense:
		return NewDense(p, shape, opts...)
	case VariantLSTM, VariantBiLSTM:
		return NewRecurrent(p, shape, opts...)
	case VariantForest:
		return NewForest(p, shape, opts...)
	default:
		return nil, fmt.Errorf("unknown variant %q", p.Variant)
	}
}

// Seed seeds the process-wide source go-deep shuffles examples with and
// anynet draws dropout masks from. Weights come from per-network sources.
// Binaries and tests enable randseednop=0 so the call is honoured.
func Seed(seed int64) {
	if seed == 0 {
		return
	}
	rand.Seed(seed)
}
