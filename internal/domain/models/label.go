package models

import (
	"strconv"
	"strings"
)

// LabelKind tags the variant held by a Label.
type LabelKind int

const (
	LabelNumeric LabelKind = iota
	LabelCategorical
)

// Label is either a numeric target or a categorical text tag ("pos", "neg", "flt").
type Label struct {
	Kind  LabelKind
	Value float64
	Text  string
}

// Numeric builds a numeric label.
func Numeric(v float64) Label { return Label{Kind: LabelNumeric, Value: v} }

// Categorical builds a text label.
func Categorical(s string) Label { return Label{Kind: LabelCategorical, Text: s} }

// ParseLabel returns Numeric when s parses as a float and Categorical otherwise.
func ParseLabel(s string) Label {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return Numeric(v)
	}
	return Categorical(s)
}

// IsNumeric reports whether the label carries a number.
func (l Label) IsNumeric() bool { return l.Kind == LabelNumeric }

func (l Label) String() string {
	if l.Kind == LabelNumeric {
		return strconv.FormatFloat(l.Value, 'g', -1, 64)
	}
	return l.Text
}
