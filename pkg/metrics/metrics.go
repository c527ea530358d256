package metrics

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrSingleClass is returned when AUC is requested for a sample that
	// does not contain both a positive and a negative example.
	ErrSingleClass = errors.New("AUC undefined: sample contains a single class")

	// ErrEmptySample is returned when a metric is requested over zero rows.
	ErrEmptySample = errors.New("empty sample")

	errLengthMismatch = errors.New("scores and classes must have the same length")
)

// AUC computes the area under the ROC curve for a set of classifier
// scores and their binary ground-truth classes.
func AUC(scores []float64, classes []bool) (float64, error) {
	if len(scores) != len(classes) {
		return 0, errLengthMismatch
	}
	if len(scores) == 0 {
		return 0, ErrEmptySample
	}

	pos, neg := 0, 0
	for _, c := range classes {
		if c {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0, ErrSingleClass
	}

	// stat.ROC expects scores sorted ascending with classes kept in step.
	y := make([]float64, len(scores))
	copy(y, scores)
	c := make([]bool, len(classes))
	copy(c, classes)
	stat.SortWeightedLabeled(y, c, nil)

	tpr, fpr, _ := stat.ROC(nil, y, c, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}

// MeanAbsDiff computes the mean absolute difference between paired
// scores and gold values.
func MeanAbsDiff(scores, gold []float64) (float64, error) {
	if len(scores) != len(gold) {
		return 0, errLengthMismatch
	}
	if len(scores) == 0 {
		return 0, ErrEmptySample
	}

	sum := 0.0
	for i, s := range scores {
		sum += math.Abs(s - gold[i])
	}
	return sum / float64(len(scores)), nil
}
