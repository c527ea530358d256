package data

import (
	"database/sql"

	"github.com/pkg/errors"
)

var statsQueries = map[string]string{
	"runs":    "SELECT COUNT(*) FROM eval_run",
	"metrics": "SELECT COUNT(*) FROM eval_metric",
	"models":  "SELECT COUNT(DISTINCT model) FROM eval_run",
	"golds":   "SELECT COUNT(DISTINCT gold_path) FROM eval_run",
}

// GetStats returns store-level counters: recorded runs, metric rows,
// distinct models and gold sets seen.
func GetStats(db *sql.DB) (map[string]int64, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	stats := make(map[string]int64, len(statsQueries))
	for name, q := range statsQueries {
		var count int64
		if err := db.QueryRow(q).Scan(&count); err != nil {
			return nil, errors.Wrapf(err, "failed to count %s", name)
		}
		stats[name] = count
	}

	return stats, nil
}
