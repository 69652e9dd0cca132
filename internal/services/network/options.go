package network

// EpochFunc observes the mean training loss after each epoch.
type EpochFunc func(epoch int, loss float64)

type options struct {
	onEpoch EpochFunc
}

type Option func(*options)

// WithEpochHook registers fn to run after every epoch.
func WithEpochHook(fn EpochFunc) Option {
	return func(o *options) { o.onEpoch = fn }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) epoch(n int, loss float64) {
	if o.onEpoch != nil {
		o.onEpoch(n, loss)
	}
}
