package network

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anynet/anys2v"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
)

var creator anyvec.Creator = anyvec64.DefaultCreator{}

// seqLayer is one LSTM layer of the stack. Bidirectional layers run a second
// LSTM over the reversed sequence and mix both outputs to twice the units.
type seqLayer struct {
	fwd     *anyrnn.LSTM
	bwd     *anyrnn.LSTM
	mixIn   [2]*anynet.FC
	bidir   *anyrnn.Bidir
	dropout *anynet.Dropout
}

func newSeqLayer(in int, l LayerSpec) (*seqLayer, int) {
	sl := &seqLayer{fwd: anyrnn.NewLSTM(creator, in, l.Units)}
	out := l.Units
	if l.Bidirectional {
		out = 2 * l.Units
		sl.bwd = anyrnn.NewLSTM(creator, in, l.Units)
		sl.mixIn = [2]*anynet.FC{
			anynet.NewFC(creator, l.Units, out),
			anynet.NewFC(creator, l.Units, out),
		}
		sl.bidir = &anyrnn.Bidir{
			Forward:  sl.fwd,
			Backward: sl.bwd,
			Mixer:    &anynet.AddMixer{In1: sl.mixIn[0], In2: sl.mixIn[1], Out: anynet.Tanh},
		}
	}
	if l.Dropout > 0 {
		sl.dropout = &anynet.Dropout{KeepProb: 1 - l.Dropout}
	}
	return sl, out
}

func (l *seqLayer) apply(s anyseq.Seq) anyseq.Seq {
	if l.bidir != nil {
		s = l.bidir.Apply(s)
	} else {
		s = anyrnn.Map(s, l.fwd)
	}
	if l.dropout != nil {
		s = anyrnn.Map(s, &anyrnn.LayerBlock{Layer: l.dropout})
	}
	return s
}

func (l *seqLayer) parameters() []*anydiff.Var {
	ps := l.fwd.Parameters()
	if l.bidir != nil {
		ps = append(ps, l.bwd.Parameters()...)
		ps = append(ps, l.mixIn[0].Parameters()...)
		ps = append(ps, l.mixIn[1].Parameters()...)
	}
	return ps
}

// Recurrent is a stack of (optionally bidirectional) anyrnn LSTM layers whose
// last timestep feeds a dense anynet head. It trains as a sequence-to-vector
// model through anys2v.
type Recurrent struct {
	variant   string
	shape     []int
	loss      string
	specs     []LayerSpec
	layers    []*seqLayer
	head      anynet.Net
	params    []*anydiff.Var
	optimizer OptimizerSpec
	epochs    int
	batchSize int
	rng       *rand.Rand
	opts      options
}

// NewRecurrent builds an untrained network for samples of shape [timesteps, width].
// Initial weights are drawn from the profile seed, or the clock when it is zero.
func NewRecurrent(p Profile, shape []int, opts ...Option) (*Recurrent, error) {
	seed := p.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r, err := buildRecurrent(p.Variant, p.Loss, p.Layers, shape)
	if err != nil {
		return nil, err
	}
	if _, err := newTransformer(p.Optimizer); err != nil {
		return nil, err
	}
	r.optimizer = p.Optimizer
	r.epochs = p.Epochs
	r.batchSize = p.BatchSize
	if r.batchSize <= 0 {
		r.batchSize = 32
	}
	r.rng = rand.New(rand.NewSource(seed))
	r.opts = buildOptions(opts)
	reinit(r.params, r.rng)
	return r, nil
}

func buildRecurrent(variant, loss string, specs []LayerSpec, shape []int) (*Recurrent, error) {
	if len(shape) != 2 || shape[0] < 1 || shape[1] < 1 {
		return nil, fmt.Errorf("%s expects a [timesteps width] input, got %v", variant, shape)
	}
	r := &Recurrent{
		variant: variant,
		shape:   append([]int(nil), shape...),
		loss:    loss,
		specs:   append([]LayerSpec(nil), specs...),
	}
	in := shape[1]
	for _, l := range specs {
		if l.Recurrent {
			sl, out := newSeqLayer(in, l)
			r.layers = append(r.layers, sl)
			r.params = append(r.params, sl.parameters()...)
			in = out
			continue
		}
		act, err := parseActivation(l.Activation)
		if err != nil {
			return nil, err
		}
		r.head = append(r.head, anynet.NewFC(creator, in, l.Units))
		if act != nil {
			r.head = append(r.head, act)
		}
		in = l.Units
	}
	if len(r.layers) == 0 || len(r.head) == 0 {
		return nil, fmt.Errorf("%s needs recurrent layers followed by a dense head", variant)
	}
	r.params = append(r.params, r.head.Parameters()...)
	return r, nil
}

// reinit redraws every non-constant parameter from rng, keeping the mean and
// spread the layer constructor chose.
func reinit(params []*anydiff.Var, rng *rand.Rand) {
	for _, p := range params {
		data := p.Vector.Data().([]float64)
		mean, sd := moments(data)
		if sd == 0 {
			continue
		}
		for i := range data {
			data[i] = mean + rng.NormFloat64()*sd
		}
		p.Vector.SetData(creator.MakeNumericList(data))
	}
}

func moments(xs []float64) (float64, float64) {
	if len(xs) < 2 {
		return 0, 0
	}
	var sum, sq float64
	for _, v := range xs {
		sum += v
	}
	mean := sum / float64(len(xs))
	for _, v := range xs {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(xs)))
}

func (r *Recurrent) Variant() string   { return r.variant }
func (r *Recurrent) InputShape() []int { return append([]int(nil), r.shape...) }

func (r *Recurrent) apply(s anyseq.Seq) anydiff.Res {
	for _, l := range r.layers {
		s = l.apply(s)
	}
	n := len(s.Output()[0].Present)
	return r.head.Apply(anyseq.Tail(s), n)
}

func (r *Recurrent) setTraining(on bool) {
	for _, l := range r.layers {
		if l.dropout != nil {
			l.dropout.Enabled = on
		}
	}
}

func (r *Recurrent) cost() anynet.Cost {
	if r.loss == LossMAE {
		return absCost{}
	}
	return anynet.MSE{}
}

// absCost is the mean absolute error, smoothed at zero so its gradient is defined.
type absCost struct{}

func (absCost) Cost(desired, actual anydiff.Res, n int) anydiff.Res {
	sq := anydiff.Square(anydiff.Sub(actual, desired))
	return anydiff.Pow(anydiff.AddScalar(sq, creator.MakeNumeric(1e-12)), creator.MakeNumeric(0.5))
}

// steps splits a flat [timesteps*width] sample into one vector per timestep.
func (r *Recurrent) steps(x []float64) ([]anyvec.Vector, error) {
	T, W := r.shape[0], r.shape[1]
	if len(x) != T*W {
		return nil, fmt.Errorf("input has %d values, network expects %d", len(x), T*W)
	}
	vs := make([]anyvec.Vector, T)
	for t := range vs {
		vs[t] = creator.MakeVectorData(creator.MakeNumericList(append([]float64(nil), x[t*W:(t+1)*W]...)))
	}
	return vs, nil
}

// Fit trains for the configured number of epochs and returns the mean loss of the last one.
func (r *Recurrent) Fit(ctx context.Context, x [][]float64, y []float64) (float64, error) {
	if len(x) == 0 {
		return 0, fmt.Errorf("no training samples")
	}
	if len(x) != len(y) {
		return 0, fmt.Errorf("%d samples for %d labels", len(x), len(y))
	}
	transform, err := newTransformer(r.optimizer)
	if err != nil {
		return 0, err
	}
	samples := &sampleList{
		inputs:  make([][]anyvec.Vector, len(x)),
		outputs: make([]anyvec.Vector, len(x)),
	}
	for i, row := range x {
		vs, err := r.steps(row)
		if err != nil {
			return 0, fmt.Errorf("sample %d: %w", i, err)
		}
		samples.inputs[i] = vs
		samples.outputs[i] = creator.MakeVectorData(creator.MakeNumericList([]float64{y[i]}))
	}

	trainer := &anys2v.Trainer{
		Func:    r.apply,
		Cost:    r.cost(),
		Params:  r.params,
		Average: true,
	}
	step := creator.MakeNumeric(-r.optimizer.LearningRate)

	r.setTraining(true)
	defer r.setTraining(false)

	var epochLoss float64
	for epoch := 1; epoch <= r.epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return epochLoss, err
		}
		samples.shuffle(r.rng)
		total := 0.0
		for start := 0; start < samples.Len(); start += r.batchSize {
			end := min(start+r.batchSize, samples.Len())
			batch, err := trainer.Fetch(samples.Slice(start, end))
			if err != nil {
				return epochLoss, fmt.Errorf("fetch batch: %w", err)
			}
			cost := trainer.TotalCost(batch).Output().Data().([]float64)[0]
			total += cost * float64(end-start)

			grad := trainer.Gradient(batch)
			if transform != nil {
				grad = transform.Transform(grad)
			}
			grad.Scale(step)
			grad.AddToVars()
		}
		epochLoss = total / float64(samples.Len())
		if math.IsNaN(epochLoss) || math.IsInf(epochLoss, 0) {
			return epochLoss, fmt.Errorf("training diverged at epoch %d", epoch)
		}
		r.opts.epoch(epoch, epochLoss)
	}
	return epochLoss, nil
}

func (r *Recurrent) Predict(x []float64) (float64, error) {
	vs, err := r.steps(x)
	if err != nil {
		return 0, err
	}
	seq := anyseq.ConstSeqList(creator, [][]anyvec.Vector{vs})
	return r.apply(seq).Output().Data().([]float64)[0], nil
}

// sampleList feeds anys2v; Slice shares the backing arrays.
type sampleList struct {
	inputs  [][]anyvec.Vector
	outputs []anyvec.Vector
}

func (s *sampleList) Len() int { return len(s.inputs) }

func (s *sampleList) Swap(i, j int) {
	s.inputs[i], s.inputs[j] = s.inputs[j], s.inputs[i]
	s.outputs[i], s.outputs[j] = s.outputs[j], s.outputs[i]
}

func (s *sampleList) Slice(i, j int) anysgd.SampleList {
	return &sampleList{inputs: s.inputs[i:j], outputs: s.outputs[i:j]}
}

func (s *sampleList) GetSample(i int) (*anys2v.Sample, error) {
	return &anys2v.Sample{Input: s.inputs[i], Output: s.outputs[i]}, nil
}

func (s *sampleList) shuffle(rng *rand.Rand) {
	rng.Shuffle(s.Len(), s.Swap)
}

type recurrentSnapshot struct {
	Variant    string      `json:"variant"`
	InputShape []int       `json:"input_shape"`
	Loss       string      `json:"loss"`
	Layers     []LayerSpec `json:"layers"`
	Params     [][]float64 `json:"params"`
}

// MarshalJSON writes the layer specs and every parameter vector in build order.
func (r *Recurrent) MarshalJSON() ([]byte, error) {
	s := recurrentSnapshot{Variant: r.variant, InputShape: r.shape, Loss: r.loss, Layers: r.specs}
	for _, p := range r.params {
		s.Params = append(s.Params, p.Vector.Data().([]float64))
	}
	return json.Marshal(s)
}

// UnmarshalRecurrent restores a network written by MarshalJSON. The result
// predicts only; it carries no optimizer.
func UnmarshalRecurrent(b []byte) (*Recurrent, error) {
	var s recurrentSnapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode recurrent network: %w", err)
	}
	r, err := buildRecurrent(s.Variant, s.Loss, s.Layers, s.InputShape)
	if err != nil {
		return nil, fmt.Errorf("decode recurrent network: %w", err)
	}
	if len(s.Params) != len(r.params) {
		return nil, fmt.Errorf("decode recurrent network: %d parameter sets, topology has %d", len(s.Params), len(r.params))
	}
	for i, p := range r.params {
		if len(s.Params[i]) != p.Vector.Len() {
			return nil, fmt.Errorf("decode recurrent network: parameter %d has %d values, expected %d", i, len(s.Params[i]), p.Vector.Len())
		}
		p.Vector.SetData(creator.MakeNumericList(s.Params[i]))
	}
	return r, nil
}
