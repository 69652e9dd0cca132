package network

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	deep "github.com/patrikeh/go-deep"
	"github.com/patrikeh/go-deep/training"
)

// Dense is a fully connected regressor backed by go-deep.
type Dense struct {
	net       *deep.Neural
	shape     []int
	optimizer OptimizerSpec
	epochs    int
	batchSize int
	opts      options
}

// NewDense builds an untrained dense network for samples of the given shape.
// Weights are drawn from the profile seed, or the clock when it is zero.
// go-deep applies one activation to every hidden layer, so the first
// non-linear activation of the profile is used for all of them.
func NewDense(p Profile, shape []int, opts ...Option) (*Dense, error) {
	inputs := 1
	for _, s := range shape {
		inputs *= s
	}
	if len(shape) == 0 || inputs < 1 {
		return nil, fmt.Errorf("dense network needs a non-empty input, got %v", shape)
	}

	layout := make([]int, len(p.Layers))
	hidden := deep.ActivationReLU
	picked := false
	for i, l := range p.Layers {
		layout[i] = l.Units
		if picked || i == len(p.Layers)-1 {
			continue
		}
		if act, ok := deepActivation(l.Activation); ok {
			hidden = act
			picked = true
		}
	}

	seed := p.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	std := 1 / math.Sqrt(float64(inputs))

	net := deep.NewNeural(&deep.Config{
		Inputs:     inputs,
		Layout:     layout,
		Activation: hidden,
		Mode:       deep.ModeRegression,
		Weight:     func() float64 { return rng.NormFloat64() * std },
		Bias:       true,
		Loss:       deep.LossMeanSquared,
	})

	return &Dense{
		net:       net,
		shape:     append([]int(nil), shape...),
		optimizer: p.Optimizer,
		epochs:    p.Epochs,
		batchSize: p.BatchSize,
		opts:      buildOptions(opts),
	}, nil
}

func deepActivation(s string) (deep.ActivationType, bool) {
	switch s {
	case "relu":
		return deep.ActivationReLU, true
	case "sigmoid":
		return deep.ActivationSigmoid, true
	case "tanh":
		return deep.ActivationTanh, true
	default:
		return deep.ActivationLinear, false
	}
}

func (d *Dense) solver() training.Solver {
	o := d.optimizer
	switch o.Name {
	case "adam":
		return training.NewAdam(o.LearningRate, o.Beta1, o.Beta2, 1e-7)
	case "momentum":
		return training.NewSGD(o.LearningRate, o.Momentum, 0, false)
	default:
		return training.NewSGD(o.LearningRate, 0, 0, false)
	}
}

type trainer interface {
	Train(n *deep.Neural, examples, validation training.Examples, iterations int)
}

func (d *Dense) Fit(ctx context.Context, x [][]float64, y []float64) (float64, error) {
	if len(x) == 0 {
		return 0, fmt.Errorf("no training samples")
	}
	if len(x) != len(y) {
		return 0, fmt.Errorf("%d samples for %d labels", len(x), len(y))
	}
	want := d.net.Config.Inputs
	examples := make(training.Examples, len(x))
	for i, row := range x {
		if len(row) != want {
			return 0, fmt.Errorf("sample %d has %d values, network expects %d", i, len(row), want)
		}
		examples[i] = training.Example{Input: row, Response: []float64{y[i]}}
	}

	var t trainer
	if d.batchSize > 1 {
		t = training.NewBatchTrainer(d.solver(), 0, d.batchSize, 1)
	} else {
		t = training.NewTrainer(d.solver(), 0)
	}

	var loss float64
	for epoch := 1; epoch <= d.epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return loss, err
		}
		t.Train(d.net, examples, nil, 1)
		loss = d.meanSquaredError(examples)
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return loss, fmt.Errorf("training diverged at epoch %d", epoch)
		}
		d.opts.epoch(epoch, loss)
	}
	return loss, nil
}

func (d *Dense) meanSquaredError(examples training.Examples) float64 {
	sum := 0.0
	for _, e := range examples {
		diff := d.net.Predict(e.Input)[0] - e.Response[0]
		sum += diff * diff
	}
	return sum / float64(len(examples))
}

func (d *Dense) Predict(x []float64) (float64, error) {
	if len(x) != d.net.Config.Inputs {
		return 0, fmt.Errorf("input has %d values, network expects %d", len(x), d.net.Config.Inputs)
	}
	return d.net.Predict(x)[0], nil
}

func (d *Dense) InputShape() []int { return append([]int(nil), d.shape...) }

func (d *Dense) Variant() string { return VariantDense }

// MarshalJSON writes go-deep's own dump format.
func (d *Dense) MarshalJSON() ([]byte, error) {
	return d.net.Marshal()
}

// UnmarshalDense restores a network written by MarshalJSON.
func UnmarshalDense(b []byte, shape []int) (*Dense, error) {
	net, err := deep.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("decode dense network: %w", err)
	}
	return &Dense{net: net, shape: append([]int(nil), shape...)}, nil
}
