package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/conversationai/goldeval/pkg/net"
)

const predictPath = "/v1/predict"

// PredictRequest is the inference service request body.
type PredictRequest struct {
	Instances []string `json:"instances"`
	// JobDir identifies the trained model artifacts on the service.
	JobDir string `json:"job_dir,omitempty"`
	// EmbeddingsPath points the service at the word embeddings to use.
	EmbeddingsPath string `json:"embeddings_path,omitempty"`
}

// PredictResponse is the inference service response body.
type PredictResponse struct {
	Predictions [][]float64 `json:"predictions"`
}

// HTTPScorer scores text against a remote model inference service.
type HTTPScorer struct {
	baseURL        string
	labels         []string
	jobDir         string
	embeddingsPath string
	client         *http.Client
}

// HTTPScorerOption configures an HTTPScorer.
type HTTPScorerOption func(*HTTPScorer)

// WithToken authenticates requests with a bearer token.
func WithToken(token string) HTTPScorerOption {
	return func(s *HTTPScorer) {
		if token != "" {
			s.client = net.GetOAuthClient(context.Background(), token)
		}
	}
}

// WithJobDir sets the model job directory sent with each request.
func WithJobDir(dir string) HTTPScorerOption {
	return func(s *HTTPScorer) { s.jobDir = dir }
}

// WithEmbeddingsPath sets the embeddings path sent with each request.
func WithEmbeddingsPath(path string) HTTPScorerOption {
	return func(s *HTTPScorer) { s.embeddingsPath = path }
}

// NewHTTPScorer creates a scorer for the inference service at baseURL.
// The labels must be in the same order as the model's output heads;
// the heads themselves are unnamed on the wire.
func NewHTTPScorer(baseURL string, labels []string, opts ...HTTPScorerOption) (*HTTPScorer, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("model URL is required")
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("at least one label is required")
	}

	s := &HTTPScorer{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		labels:  labels,
		client:  net.GetHTTPClient(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Labels returns the configured output head labels.
func (s *HTTPScorer) Labels() []string {
	return s.labels
}

// Predict sends all texts to the inference service in a single batch.
func (s *HTTPScorer) Predict(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts to score")
	}

	body, err := json.Marshal(PredictRequest{
		Instances:      texts,
		JobDir:         s.jobDir,
		EmbeddingsPath: s.embeddingsPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+predictPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("inference service returned %s: %s", res.Status, string(b))
	}

	var pr PredictResponse
	if err := json.NewDecoder(res.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(pr.Predictions) != len(texts) {
		return nil, fmt.Errorf("inference service returned %d rows for %d texts", len(pr.Predictions), len(texts))
	}
	for i, row := range pr.Predictions {
		if len(row) != len(s.labels) {
			return nil, fmt.Errorf("row %d has %d scores, want %d heads", i, len(row), len(s.labels))
		}
	}

	return pr.Predictions, nil
}
