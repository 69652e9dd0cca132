package features

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"
)

// Row is one exported timestep.
//
//	DP   close minus previous close
//	WM   wick magnitude, top wick plus bottom wick
//	WPP  share of the wick above the body, 0 when there is no wick
//	MA   moving averages
type Row struct {
	Bucket time.Time
	Close  float64
	DP     float64
	WM     float64
	WPP    float64
	MA     []float64
}

// Convert turns n frames into n-1 rows; the first frame only seeds DP.
func Convert(frames []Frame) []Row {
	if len(frames) < 2 {
		return nil
	}
	rows := make([]Row, 0, len(frames)-1)
	for i := 1; i < len(frames); i++ {
		c := frames[i].Candle
		bodyLow := math.Min(c.Open, c.Close)
		bodyHigh := math.Max(c.Open, c.Close)
		top := c.High - bodyHigh
		bottom := bodyLow - c.Low
		wm := top + bottom
		wpp := top / wm
		if math.IsNaN(wpp) {
			wpp = 0
		}
		rows = append(rows, Row{
			Bucket: c.Bucket,
			Close:  c.Close,
			DP:     c.Close - frames[i-1].Candle.Close,
			WM:     wm,
			WPP:    wpp,
			MA:     append([]float64(nil), frames[i].MA...),
		})
	}
	return rows
}

// Peak is the largest |DP| of the window, the scale Normalize divides by.
func Peak(rows []Row) (float64, error) {
	if len(rows) == 0 {
		return 0, fmt.Errorf("no rows to normalize")
	}
	peak := 0.0
	for _, r := range rows {
		peak = math.Max(peak, math.Abs(r.DP))
	}
	if peak == 0 {
		return 0, fmt.Errorf("flat window: every price delta is zero")
	}
	return peak, nil
}

// Normalize scales DP and WM by the largest |DP| of the window and moving
// averages by the row's close.
func Normalize(rows []Row) error {
	peak, err := Peak(rows)
	if err != nil {
		return err
	}
	for i := range rows {
		r := &rows[i]
		if r.Close == 0 {
			return fmt.Errorf("zero close at %s", r.Bucket.Format(time.RFC3339))
		}
		for j := range r.MA {
			r.MA[j] /= r.Close
		}
		r.DP /= peak
		r.WM /= peak
	}
	return nil
}

// Label is the relative change from close to a later price.
func Label(close, later float64) float64 {
	return (later - close) / close
}

// FrameLabel is the move from close to a later price in units of the
// window's peak, so it shares the scale of the normalized DP column.
func FrameLabel(close, later, peak float64) float64 {
	return (later - close) / peak
}

// FrameName is the "<ms>,<label>.csv" file name of a frame ending at t.
func FrameName(t time.Time, label float64) string {
	return strconv.FormatInt(t.UnixMilli(), 10) + "," + formatFloat(label) + ".csv"
}

// WriteRows writes one CSV line per row followed by a single-cell label line.
func WriteRows(w io.Writer, rows []Row, label float64) error {
	cw := csv.NewWriter(w)
	if err := writeRecords(cw, rows); err != nil {
		return err
	}
	if err := cw.Write([]string{formatFloat(label)}); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WriteFeatures writes the rows alone, for labels kept in the file name or
// samples that have no label yet.
func WriteFeatures(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := writeRecords(cw, rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func writeRecords(cw *csv.Writer, rows []Row) error {
	for _, r := range rows {
		rec := make([]string, 0, 3+len(r.MA))
		rec = append(rec, formatFloat(r.DP), formatFloat(r.WM), formatFloat(r.WPP))
		for _, v := range r.MA {
			rec = append(rec, formatFloat(v))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 32)
}
