package labels

import "CandleNet/internal/domain/models"

// Target values for categorical labels.
const (
	Positive float32 = 0.99
	Negative float32 = 0.0
	Neutral  float32 = 0.5
)

// Encode maps a label to its float32 training target.
// Numeric labels pass through; "pos" and "neg" map to Positive and Negative,
// every other tag (including the empty string) maps to Neutral.
func Encode(l models.Label) float32 {
	if l.IsNumeric() {
		return float32(l.Value)
	}
	switch l.Text {
	case "pos":
		return Positive
	case "neg":
		return Negative
	default:
		return Neutral
	}
}

// EncodeAll encodes labels in order.
func EncodeAll(ls []models.Label) []float32 {
	out := make([]float32, len(ls))
	for i, l := range ls {
		out[i] = Encode(l)
	}
	return out
}
