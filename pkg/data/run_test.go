package data

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, Init(dbPath))
	db, err := GetDB(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testRun() *EvalRun {
	return &EvalRun{
		Created:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		GoldPath: "local_data/gold_toxicity_subtypes.csv",
		Model:    "http://localhost:8501",
		Labels:   []string{"threat", "obscene"},
		Examples: 7,
		Metrics: map[string]float64{
			"avg_diff":   0.27857,
			"auc_all":    0.88889,
			"auc_threat": 0.75,
		},
	}
}

func TestInit_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, Init(dbPath))
	_, err := os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestInit_EmptyPath(t *testing.T) {
	assert.Error(t, Init(""))
}

func TestInit_Idempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, Init(dbPath))
	assert.NoError(t, Init(dbPath))
}

func TestSaveAndGetRun(t *testing.T) {
	db := setupTestDB(t)

	id, err := SaveRun(db, testRun())
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	got, err := GetRun(db, id)
	require.NoError(t, err)

	assert.Equal(t, id, got.ID)
	assert.Equal(t, "local_data/gold_toxicity_subtypes.csv", got.GoldPath)
	assert.Equal(t, "http://localhost:8501", got.Model)
	assert.Equal(t, []string{"threat", "obscene"}, got.Labels)
	assert.Equal(t, 7, got.Examples)
	assert.Len(t, got.Metrics, 3)
	assert.InDelta(t, 0.75, got.Metrics["auc_threat"], 1e-9)
	assert.Equal(t, 2026, got.Created.Year())
}

func TestGetRunNotFound(t *testing.T) {
	db := setupTestDB(t)
	_, err := GetRun(db, 42)
	assert.Error(t, err)
}

func TestListRuns(t *testing.T) {
	db := setupTestDB(t)

	first, err := SaveRun(db, testRun())
	require.NoError(t, err)
	second, err := SaveRun(db, testRun())
	require.NoError(t, err)

	list, err := ListRuns(db, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)

	// newest first
	assert.Equal(t, second, list[0].ID)
	assert.Equal(t, first, list[1].ID)
	assert.InDelta(t, 0.27857, list[0].AvgDiff, 1e-9)

	list, err = ListRuns(db, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestListRunsErrors(t *testing.T) {
	db := setupTestDB(t)

	_, err := ListRuns(db, 0)
	assert.Error(t, err)

	_, err = ListRuns(nil, 10)
	assert.Error(t, err)

	_, err = SaveRun(nil, testRun())
	assert.Error(t, err)

	_, err = SaveRun(db, nil)
	assert.Error(t, err)

	_, err = GetRun(nil, 1)
	assert.Error(t, err)
}
