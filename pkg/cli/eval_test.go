package cli

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conversationai/goldeval/pkg/data"
	"github.com/conversationai/goldeval/pkg/eval"
	"github.com/conversationai/goldeval/pkg/model"
)

func writeGoldCSV(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "gold.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll([][]string{
		{"comment_text", "label", "gold", "_unit_id"},
		{"Die!", "threat", "1", "1"},
		{"Have an apple", "threat", "0", "2"},
		{"FU", "obscene", "1", "3"},
		{"nice", "obscene", "0", "4"},
	}))
	return path
}

func newStubInferenceService(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req model.PredictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		scores := make([][]float64, len(req.Instances))
		for i := range req.Instances {
			// alternate high/low so every head has both classes
			if i%2 == 0 {
				scores[i] = []float64{0.9, 0.8}
			} else {
				scores[i] = []float64{0.1, 0.2}
			}
		}
		json.NewEncoder(w).Encode(model.PredictResponse{Predictions: scores})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestEvalCommand(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	work := t.TempDir()
	goldPath := writeGoldCSV(t, work)
	outputPath := filepath.Join(work, "scored.csv")
	jobDir := filepath.Join(work, "job")
	dbPath := filepath.Join(work, "runs.db")
	ts := newStubInferenceService(t)

	app := newApp()
	err := app.Run([]string{
		appName,
		"--db", dbPath,
		"eval",
		"--gold-path", goldPath,
		"--output-path", outputPath,
		"--job-dir", jobDir,
		"--labels", "threat,obscene",
		"--model-url", ts.URL,
	})
	require.NoError(t, err)

	// metrics file
	b, err := os.ReadFile(filepath.Join(jobDir, eval.EvalFileName))
	require.NoError(t, err)
	var report map[string]any
	require.NoError(t, json.Unmarshal(b, &report))
	assert.Equal(t, goldPath, report["gold_path"])
	assert.InDelta(t, 1.0, report["auc_all"].(float64), 1e-9)
	assert.Contains(t, report, "auc_threat")
	assert.Contains(t, report, "auc_obscene")

	// scored CSV
	f, err := os.Open(outputPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"threat", "obscene", "comment_text", "label", "gold", "_unit_id"}, rows[0])

	// run history
	db, err := data.GetDB(dbPath)
	require.NoError(t, err)
	defer db.Close()
	list, err := data.ListRuns(db, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 4, list[0].Examples)
	assert.Equal(t, []string{"threat", "obscene"}, list[0].Labels)
}

func TestEvalCommandMissingGold(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	work := t.TempDir()
	ts := newStubInferenceService(t)

	app := newApp()
	err := app.Run([]string{
		appName,
		"--db", filepath.Join(work, "runs.db"),
		"eval",
		"--gold-path", filepath.Join(work, "nope.csv"),
		"--job-dir", filepath.Join(work, "job"),
		"--labels", "threat,obscene",
		"--model-url", ts.URL,
	})
	assert.Error(t, err)
}
