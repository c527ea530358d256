package gold

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

const (
	colText   = "comment_text"
	colLabel  = "label"
	colGold   = "gold"
	colUnitID = "_unit_id"
	colName   = "name"
)

// Example is a single gold-labeled row: a piece of text with a
// ground-truth value for one of the model's output heads.
type Example struct {
	UnitID string  `json:"unit_id,omitempty" yaml:"unitID,omitempty"`
	Text   string  `json:"comment_text,omitempty" yaml:"commentText,omitempty"`
	Label  string  `json:"label,omitempty" yaml:"label,omitempty"`
	Name   string  `json:"name,omitempty" yaml:"name,omitempty"`
	Gold   float64 `json:"gold" yaml:"gold"`

	// Scores holds one model score per head label, in head order.
	// Populated by scoring, empty on load.
	Scores []float64 `json:"scores,omitempty" yaml:"scores,omitempty"`
}

// BinaryGold reports whether the gold value is a strict 0/1 label.
// Rows with fractional gold values are excluded from AUC.
func (e *Example) BinaryGold() (positive, ok bool) {
	switch e.Gold {
	case 0:
		return false, true
	case 1:
		return true, true
	default:
		return false, false
	}
}

// Dataset is a loaded gold set plus the model head labels it targets.
type Dataset struct {
	Labels   []string   `json:"labels,omitempty" yaml:"labels,omitempty"`
	Examples []*Example `json:"examples,omitempty" yaml:"examples,omitempty"`

	labelIndex map[string]int
	hasName    bool
}

// LabelIndex returns the head position of a label, or -1 if unknown.
func (d *Dataset) LabelIndex(label string) int {
	if i, ok := d.labelIndex[label]; ok {
		return i
	}
	return -1
}

// ScoreAt returns the example's score at its own label head.
// Only valid after scoring.
func (d *Dataset) ScoreAt(e *Example) (float64, error) {
	i := d.LabelIndex(e.Label)
	if i < 0 {
		return 0, errors.Errorf("unknown label: %s", e.Label)
	}
	if i >= len(e.Scores) {
		return 0, errors.Errorf("example %s not scored", e.UnitID)
	}
	return e.Scores[i], nil
}

func newDataset(labels []string) (*Dataset, error) {
	if len(labels) == 0 {
		return nil, errors.New("at least one label is required")
	}
	d := &Dataset{
		Labels:     labels,
		Examples:   make([]*Example, 0),
		labelIndex: make(map[string]int, len(labels)),
	}
	for i, l := range labels {
		if l == "" {
			return nil, errors.New("empty label")
		}
		if _, ok := d.labelIndex[l]; ok {
			return nil, errors.Errorf("duplicate label: %s", l)
		}
		d.labelIndex[l] = i
	}
	return d, nil
}

// Read loads a gold CSV file. The file must have comment_text, label,
// gold, and _unit_id columns, in any order; a name column is optional.
// Every row's label must match one of the given head labels.
func Read(path string, labels []string) (*Dataset, error) {
	if path == "" {
		return nil, errors.New("gold path not specified")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening gold file: %s", path)
	}
	defer f.Close()

	d, err := newDataset(labels)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing gold file: %s", path)
	}
	if len(rows) < 2 {
		return nil, errors.Errorf("gold file has no data rows: %s", path)
	}

	cols := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		cols[h] = i
	}
	for _, req := range []string{colText, colLabel, colGold, colUnitID} {
		if _, ok := cols[req]; !ok {
			return nil, errors.Errorf("gold file missing required column: %s", req)
		}
	}
	nameCol, hasName := cols[colName]
	d.hasName = hasName

	for n, row := range rows[1:] {
		e := &Example{
			UnitID: row[cols[colUnitID]],
			Text:   row[cols[colText]],
			Label:  row[cols[colLabel]],
		}
		if d.LabelIndex(e.Label) < 0 {
			return nil, errors.Errorf("row %d: label %q does not match any model head", n+2, e.Label)
		}
		e.Gold, err = strconv.ParseFloat(row[cols[colGold]], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d: invalid gold value: %s", n+2, row[cols[colGold]])
		}
		if hasName {
			e.Name = row[nameCol]
		}
		// rows without a subcategory roll up to their label
		if e.Name == "" {
			e.Name = e.Label
		}
		d.Examples = append(d.Examples, e)
	}

	return d, nil
}

// WriteScored writes the scored dataset as CSV: one score column per
// head label first, then the original gold columns.
func WriteScored(path string, d *Dataset) error {
	if path == "" {
		return errors.New("output path not specified")
	}
	if d == nil || len(d.Examples) == 0 {
		return errors.New("no scored examples to write")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "error creating output file: %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := make([]string, 0, len(d.Labels)+5)
	header = append(header, d.Labels...)
	header = append(header, colText, colLabel, colGold, colUnitID)
	if d.hasName {
		header = append(header, colName)
	}
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, "error writing header")
	}

	for _, e := range d.Examples {
		if len(e.Scores) != len(d.Labels) {
			return errors.Errorf("example %s has %d scores, want %d", e.UnitID, len(e.Scores), len(d.Labels))
		}
		row := make([]string, 0, len(header))
		for _, s := range e.Scores {
			row = append(row, strconv.FormatFloat(s, 'g', -1, 64))
		}
		row = append(row,
			e.Text,
			e.Label,
			strconv.FormatFloat(e.Gold, 'g', -1, 64),
			e.UnitID,
		)
		if d.hasName {
			row = append(row, e.Name)
		}
		if err := w.Write(row); err != nil {
			return errors.Wrapf(err, "error writing row for example %s", e.UnitID)
		}
	}

	w.Flush()
	return errors.Wrapf(w.Error(), "error flushing output file: %s", path)
}
