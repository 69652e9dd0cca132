package features

import (
	"fmt"
	"time"

	"github.com/markcheno/go-talib"

	"CandleNet/internal/domain/models"
)

// MA selects a simple or exponential moving average over Period candles.
type MA struct {
	Period      int
	Exponential bool
}

func (m MA) String() string {
	if m.Exponential {
		return fmt.Sprintf("ema%d", m.Period)
	}
	return fmt.Sprintf("sma%d", m.Period)
}

// Frame is a candle with its moving averages at that bucket.
type Frame struct {
	Candle models.Candle
	MA     []float64
}

// Lookback is how many candles before a window are needed to seed every average.
func Lookback(mas []MA) int {
	n := 0
	for _, m := range mas {
		if m.Period > n {
			n = m.Period
		}
	}
	return n
}

// BuildFrames attaches moving averages to candles and returns the last n
// frames. Averages are computed over the whole slice, so candles must include
// Lookback(mas) extra entries before the window.
func BuildFrames(candles []models.Candle, mas []MA, n int) ([]Frame, error) {
	first := len(candles) - n
	if n < 2 || first < 0 {
		return nil, fmt.Errorf("need %d candles, have %d", n, len(candles))
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	series := make([][]float64, len(mas))
	for i, m := range mas {
		if first < m.Period-1 {
			return nil, fmt.Errorf("%s needs %d candles before the window, have %d", m, m.Period-1, first)
		}
		if m.Exponential {
			series[i] = talib.Ema(closes, m.Period)
		} else {
			series[i] = talib.Sma(closes, m.Period)
		}
	}

	frames := make([]Frame, 0, n)
	for i := first; i < len(candles); i++ {
		f := Frame{Candle: candles[i], MA: make([]float64, len(mas))}
		for j := range mas {
			f.MA[j] = series[j][i]
		}
		frames = append(frames, f)
	}
	return frames, nil
}

// Align truncates t down to a multiple of step since the Unix epoch.
func Align(t time.Time, step time.Duration) time.Time {
	if step <= 0 {
		return t
	}
	return t.UTC().Truncate(step)
}
