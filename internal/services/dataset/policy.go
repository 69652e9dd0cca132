package dataset

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"CandleNet/internal/domain/models"
)

// LabelPolicy says where a file keeps its label.
type LabelPolicy string

const (
	// PolicyFilename reads the label from "<id>,<label>.csv".
	PolicyFilename LabelPolicy = "filename"
	// PolicyLastRow takes the first cell of the final row and drops that row.
	PolicyLastRow LabelPolicy = "last_row"
	// PolicyLastColumn takes the last non-empty cell of the final row.
	PolicyLastColumn LabelPolicy = "last_column"
)

// ParsePolicy validates a configured policy name.
func ParsePolicy(s string) (LabelPolicy, error) {
	switch p := LabelPolicy(s); p {
	case PolicyFilename, PolicyLastRow, PolicyLastColumn:
		return p, nil
	default:
		return "", fmt.Errorf("unknown label policy %q", s)
	}
}

// Extract returns the label and the records that remain as features.
func (p LabelPolicy) Extract(path string, records [][]string) (models.Label, [][]string, error) {
	switch p {
	case PolicyFilename:
		l, err := FilenameLabel(filepath.Base(path))
		return l, records, err
	case PolicyLastRow:
		if len(records) == 0 {
			return models.Label{}, nil, fmt.Errorf("%w: %s has no label row", models.ErrMalformedLabel, path)
		}
		last := records[len(records)-1]
		cell := ""
		if len(last) > 0 {
			cell = last[0]
		}
		label, err := cellLabel(path, cell)
		if err != nil {
			return models.Label{}, nil, err
		}
		return label, records[:len(records)-1], nil
	case PolicyLastColumn:
		if len(records) == 0 {
			return models.Label{}, nil, fmt.Errorf("%w: %s has no label cell", models.ErrMalformedLabel, path)
		}
		last := records[len(records)-1]
		idx := -1
		for j := len(last) - 1; j >= 0; j-- {
			if strings.TrimSpace(last[j]) != "" {
				idx = j
				break
			}
		}
		if idx < 0 {
			return models.Label{}, nil, fmt.Errorf("%w: %s has no label cell", models.ErrMalformedLabel, path)
		}
		label, err := cellLabel(path, last[idx])
		if err != nil {
			return models.Label{}, nil, err
		}
		out := make([][]string, len(records))
		copy(out, records)
		if idx == 0 {
			out = out[:len(out)-1]
		} else {
			out[len(out)-1] = last[:idx]
		}
		return label, out, nil
	default:
		return models.Label{}, nil, fmt.Errorf("unknown label policy %q", string(p))
	}
}

// cellLabel accepts a number or one of the pos, neg and flt tags. An empty
// cell is a neutral tag.
func cellLabel(path, cell string) (models.Label, error) {
	l := models.ParseLabel(cell)
	if l.IsNumeric() {
		return l, nil
	}
	switch l.Text {
	case "", "pos", "neg", "flt":
		return l, nil
	default:
		return models.Label{}, fmt.Errorf("%w: %s has label %q", models.ErrMalformedLabel, path, l.Text)
	}
}

// FilenameLabel parses the numeric label embedded after the first comma of name.
func FilenameLabel(name string) (models.Label, error) {
	parts := strings.Split(name, ",")
	if len(parts) < 2 {
		return models.Label{}, fmt.Errorf("%w: %s has no label field", models.ErrMalformedLabel, name)
	}
	field := strings.TrimSuffix(parts[1], ".csv")
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return models.Label{}, fmt.Errorf("%w: %s: %v", models.ErrMalformedLabel, name, err)
	}
	return models.Numeric(v), nil
}
