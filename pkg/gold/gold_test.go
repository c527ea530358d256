package gold

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLabels = []string{"threat", "obscene", "flirtation"}

func writeTestCSV(t *testing.T, rows [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gold.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll(rows))
	return path
}

func TestRead(t *testing.T) {
	path := writeTestCSV(t, [][]string{
		{"comment_text", "label", "gold", "_unit_id", "name"},
		{"..and kill things", "threat", "0", "15190", ""},
		{"Die!", "threat", "1", "15193", "personal_threat"},
		{"FU", "obscene", "1", "15089", ""},
		{"Have an apple", "flirtation", "0.5", "15789", ""},
	})

	d, err := Read(path, testLabels)
	require.NoError(t, err)
	require.Len(t, d.Examples, 4)

	assert.Equal(t, "15190", d.Examples[0].UnitID)
	assert.Equal(t, "..and kill things", d.Examples[0].Text)
	assert.Equal(t, "threat", d.Examples[0].Label)
	// no subcategory rolls up to the label
	assert.Equal(t, "threat", d.Examples[0].Name)
	assert.Equal(t, "personal_threat", d.Examples[1].Name)

	pos, ok := d.Examples[1].BinaryGold()
	assert.True(t, ok)
	assert.True(t, pos)

	_, ok = d.Examples[3].BinaryGold()
	assert.False(t, ok)

	assert.Equal(t, 1, d.LabelIndex("obscene"))
	assert.Equal(t, -1, d.LabelIndex("nope"))
}

func TestReadColumnOrderFree(t *testing.T) {
	path := writeTestCSV(t, [][]string{
		{"_unit_id", "gold", "comment_text", "label"},
		{"1", "1", "Die!", "threat"},
	})

	d, err := Read(path, testLabels)
	require.NoError(t, err)
	require.Len(t, d.Examples, 1)
	assert.Equal(t, "Die!", d.Examples[0].Text)
	assert.Equal(t, float64(1), d.Examples[0].Gold)
}

func TestReadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Read(filepath.Join(t.TempDir(), "nope.csv"), testLabels)
		assert.Error(t, err)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := Read("", testLabels)
		assert.Error(t, err)
	})

	t.Run("no labels", func(t *testing.T) {
		path := writeTestCSV(t, [][]string{
			{"comment_text", "label", "gold", "_unit_id"},
			{"x", "threat", "0", "1"},
		})
		_, err := Read(path, nil)
		assert.Error(t, err)
	})

	t.Run("duplicate labels", func(t *testing.T) {
		path := writeTestCSV(t, [][]string{
			{"comment_text", "label", "gold", "_unit_id"},
			{"x", "threat", "0", "1"},
		})
		_, err := Read(path, []string{"threat", "threat"})
		assert.Error(t, err)
	})

	t.Run("missing column", func(t *testing.T) {
		path := writeTestCSV(t, [][]string{
			{"comment_text", "label", "_unit_id"},
			{"x", "threat", "1"},
		})
		_, err := Read(path, testLabels)
		assert.ErrorContains(t, err, "gold")
	})

	t.Run("unknown label", func(t *testing.T) {
		path := writeTestCSV(t, [][]string{
			{"comment_text", "label", "gold", "_unit_id"},
			{"x", "insult", "0", "1"},
		})
		_, err := Read(path, testLabels)
		assert.ErrorContains(t, err, "insult")
	})

	t.Run("bad gold value", func(t *testing.T) {
		path := writeTestCSV(t, [][]string{
			{"comment_text", "label", "gold", "_unit_id"},
			{"x", "threat", "maybe", "1"},
		})
		_, err := Read(path, testLabels)
		assert.Error(t, err)
	})
}

func TestWriteScored(t *testing.T) {
	path := writeTestCSV(t, [][]string{
		{"comment_text", "label", "gold", "_unit_id", "name"},
		{"Die!", "threat", "1", "15193", "personal_threat"},
		{"FU", "obscene", "1", "15089", ""},
	})

	d, err := Read(path, testLabels)
	require.NoError(t, err)
	d.Examples[0].Scores = []float64{0.9, 0.2, 0.1}
	d.Examples[1].Scores = []float64{0.3, 0.8, 0.05}

	out := filepath.Join(t.TempDir(), "scored.csv")
	require.NoError(t, WriteScored(out, d))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, []string{
		"threat", "obscene", "flirtation",
		"comment_text", "label", "gold", "_unit_id", "name",
	}, rows[0])
	assert.Equal(t, []string{"0.9", "0.2", "0.1", "Die!", "threat", "1", "15193", "personal_threat"}, rows[1])
}

func TestWriteScoredErrors(t *testing.T) {
	path := writeTestCSV(t, [][]string{
		{"comment_text", "label", "gold", "_unit_id"},
		{"Die!", "threat", "1", "15193"},
	})
	d, err := Read(path, testLabels)
	require.NoError(t, err)

	// unscored dataset
	out := filepath.Join(t.TempDir(), "scored.csv")
	assert.Error(t, WriteScored(out, d))

	assert.Error(t, WriteScored("", d))
	assert.Error(t, WriteScored(out, &Dataset{}))
}
