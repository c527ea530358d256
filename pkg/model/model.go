package model

import "context"

// Scorer scores texts with a multi-head classification model.
// Implementations are expected to be synchronous; the harness makes a
// single Predict call per evaluation.
type Scorer interface {
	// Predict returns one row of scores per input text. Each row has
	// one float per output head, in the order reported by Labels.
	Predict(ctx context.Context, texts []string) ([][]float64, error)

	// Labels returns the model's output head labels in head order.
	Labels() []string
}
