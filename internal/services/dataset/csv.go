package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ReadRecords reads a header-less CSV file. Rows may have different lengths.
func ReadRecords(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := readRecords(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return records, nil
}

func readRecords(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = false
	return cr.ReadAll()
}

// ToGrid parses records into a rectangular matrix. Empty cells and the tail
// of short rows are NaN, so the width is that of the widest row.
func ToGrid(records [][]string) ([][]float64, error) {
	width := 0
	for _, rec := range records {
		if len(rec) > width {
			width = len(rec)
		}
	}
	grid := make([][]float64, 0, len(records))
	for i, rec := range records {
		row := make([]float64, width)
		for j := range row {
			if j >= len(rec) {
				row[j] = math.NaN()
				continue
			}
			cell := strings.TrimSpace(rec[j])
			if cell == "" {
				row[j] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i, j, err)
			}
			row[j] = v
		}
		grid = append(grid, row)
	}
	return grid, nil
}

// Flatten joins the grid row-major and drops NaN cells.
func Flatten(grid [][]float64) []float64 {
	out := make([]float64, 0)
	for _, row := range grid {
		for _, v := range row {
			if math.IsNaN(v) {
				continue
			}
			out = append(out, v)
		}
	}
	return out
}

// Shape turns a parsed grid into the per-sample array: flattened when
// flatten is set, otherwise the grid as is.
func Shape(grid [][]float64, flatten bool) ([]float64, []int) {
	if flatten {
		flat := Flatten(grid)
		return flat, []int{len(flat)}
	}
	if len(grid) == 0 {
		return nil, []int{0, 0}
	}
	width := len(grid[0])
	out := make([]float64, 0, len(grid)*width)
	for _, row := range grid {
		out = append(out, row...)
	}
	return out, []int{len(grid), width}
}

// ReadSample reads one unlabelled sample file and shapes it.
func ReadSample(path string, flatten bool) ([]float64, []int, error) {
	records, err := ReadRecords(path)
	if err != nil {
		return nil, nil, err
	}
	grid, err := ToGrid(records)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	data, shape := Shape(grid, flatten)
	return data, shape, nil
}
