package eval

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/conversationai/goldeval/pkg/gold"
	"github.com/conversationai/goldeval/pkg/metrics"
	"github.com/conversationai/goldeval/pkg/model"
)

const (
	// EvalFileName is the metrics file written into the job directory.
	EvalFileName = "gold_eval.json"

	metricAvgDiff = "avg_diff"
	metricAUCAll  = "auc_all"
	aucPrefix     = "auc_"
)

// Score runs the model over every example in the dataset and attaches
// the per-head scores. The scorer's head labels must match the
// dataset's labels, in order.
func Score(ctx context.Context, d *gold.Dataset, s model.Scorer) error {
	if d == nil || len(d.Examples) == 0 {
		return errors.New("no examples to score")
	}
	if s == nil {
		return errors.New("scorer is required")
	}

	sl := s.Labels()
	if len(sl) != len(d.Labels) {
		return errors.Errorf("scorer has %d heads, dataset expects %d", len(sl), len(d.Labels))
	}
	for i, l := range d.Labels {
		if sl[i] != l {
			return errors.Errorf("head %d mismatch: scorer %q, dataset %q", i, sl[i], l)
		}
	}

	texts := make([]string, len(d.Examples))
	for i, e := range d.Examples {
		texts[i] = e.Text
	}

	scores, err := s.Predict(ctx, texts)
	if err != nil {
		return errors.Wrap(err, "error scoring gold data")
	}
	if len(scores) != len(d.Examples) {
		return errors.Errorf("scorer returned %d rows for %d examples", len(scores), len(d.Examples))
	}

	for i, e := range d.Examples {
		e.Scores = scores[i]
	}
	return nil
}

// Evaluate computes the metric map for a scored dataset:
//
//	avg_diff          mean |score at own label - gold| over all rows
//	auc_all           AUC over every row with a 0/1 gold value
//	auc_<label>        AUC over a label's rows (when the label has
//	                  rows without a finer subcategory)
//	auc_<label>_<name> AUC over one subcategory's rows
//
// An undefined AUC (single-class restriction) fails the evaluation.
func Evaluate(d *gold.Dataset) (map[string]float64, error) {
	if d == nil || len(d.Examples) == 0 {
		return nil, errors.New("no examples to evaluate")
	}

	results := make(map[string]float64)

	scores := make([]float64, len(d.Examples))
	golds := make([]float64, len(d.Examples))
	for i, e := range d.Examples {
		s, err := d.ScoreAt(e)
		if err != nil {
			return nil, err
		}
		scores[i] = s
		golds[i] = e.Gold
	}

	avg, err := metrics.MeanAbsDiff(scores, golds)
	if err != nil {
		return nil, errors.Wrap(err, "error computing avg_diff")
	}
	results[metricAvgDiff] = avg

	all, err := aucOver(d, d.Examples)
	if err != nil {
		return nil, errors.Wrap(err, "error computing auc_all")
	}
	results[metricAUCAll] = all

	for _, label := range orderedLabels(d) {
		group := examplesWhere(d, func(e *gold.Example) bool { return e.Label == label })

		for _, name := range orderedNames(group) {
			if name == label {
				// the label-level metric covers the whole group,
				// subcategories included
				a, err := aucOver(d, group)
				if err != nil {
					return nil, errors.Wrapf(err, "error computing %s%s", aucPrefix, label)
				}
				results[aucPrefix+label] = a
				continue
			}

			sub := make([]*gold.Example, 0)
			for _, e := range group {
				if e.Name == name {
					sub = append(sub, e)
				}
			}
			a, err := aucOver(d, sub)
			if err != nil {
				return nil, errors.Wrapf(err, "error computing %s%s_%s", aucPrefix, label, name)
			}
			results[aucPrefix+label+"_"+name] = a
		}
	}

	return results, nil
}

// aucOver computes AUC over the rows with a strict 0/1 gold value,
// scoring each row at its own label head.
func aucOver(d *gold.Dataset, rows []*gold.Example) (float64, error) {
	scores := make([]float64, 0, len(rows))
	classes := make([]bool, 0, len(rows))
	for _, e := range rows {
		pos, ok := e.BinaryGold()
		if !ok {
			continue
		}
		s, err := d.ScoreAt(e)
		if err != nil {
			return 0, err
		}
		scores = append(scores, s)
		classes = append(classes, pos)
	}
	return metrics.AUC(scores, classes)
}

func examplesWhere(d *gold.Dataset, keep func(*gold.Example) bool) []*gold.Example {
	out := make([]*gold.Example, 0)
	for _, e := range d.Examples {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// orderedLabels returns the distinct example labels in order of first
// appearance, keeping metric output stable across runs.
func orderedLabels(d *gold.Dataset) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, e := range d.Examples {
		if !seen[e.Label] {
			seen[e.Label] = true
			out = append(out, e.Label)
		}
	}
	return out
}

func orderedNames(rows []*gold.Example) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, e := range rows {
		if !seen[e.Name] {
			seen[e.Name] = true
			out = append(out, e.Name)
		}
	}
	return out
}

// WriteReport writes the metrics plus the gold path to
// <jobDir>/gold_eval.json and returns the written path.
func WriteReport(jobDir, goldPath string, results map[string]float64) (string, error) {
	if jobDir == "" {
		return "", errors.New("job directory not specified")
	}
	if len(results) == 0 {
		return "", errors.New("no results to write")
	}

	report := make(map[string]any, len(results)+1)
	for k, v := range results {
		report[k] = v
	}
	report["gold_path"] = goldPath

	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "error marshaling results")
	}

	if err := os.MkdirAll(jobDir, 0o700); err != nil {
		return "", errors.Wrapf(err, "error creating job directory: %s", jobDir)
	}

	path := filepath.Join(jobDir, EvalFileName)
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return "", errors.Wrapf(err, "error writing eval file: %s", path)
	}
	return path, nil
}
