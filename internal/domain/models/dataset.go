package models

// Sample is one parsed feature file.
type Sample struct {
	Path  string
	Label Label
	Grid  [][]float64
}

// Dataset holds parallel label and feature arrays for one identity.
// Features[i] is sample i flattened row-major; Shape is the per-sample shape.
type Dataset struct {
	Identity Identity
	Labels   []float32
	Features [][]float32
	Shape    []int
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Labels)
}

// SampleSize is the element count of one sample.
func (d *Dataset) SampleSize() int {
	if d == nil || len(d.Shape) == 0 {
		return 0
	}
	n := 1
	for _, s := range d.Shape {
		n *= s
	}
	return n
}

// Float64Row converts sample i for libraries that train on float64.
func (d *Dataset) Float64Row(i int) []float64 {
	row := d.Features[i]
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = float64(v)
	}
	return out
}
