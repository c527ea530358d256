package data

import (
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	insertRunSQL = `INSERT INTO eval_run (
			created,
			gold_path,
			model,
			labels,
			examples
		)
		VALUES (?, ?, ?, ?, ?)
	`

	insertMetricSQL = `INSERT INTO eval_metric (run_id, name, value) VALUES (?, ?, ?)`

	selectRunSQL = `SELECT
			id,
			created,
			gold_path,
			model,
			labels,
			examples
		FROM eval_run
		WHERE id = ?
	`

	selectRunMetricsSQL = `SELECT name, value FROM eval_metric WHERE run_id = ? ORDER BY name`

	listRunsSQL = `SELECT
			r.id,
			r.created,
			r.gold_path,
			r.model,
			r.labels,
			r.examples,
			COALESCE(m.value, 0)
		FROM eval_run r
		LEFT JOIN eval_metric m ON m.run_id = r.id AND m.name = 'avg_diff'
		ORDER BY r.id DESC
		LIMIT ?
	`
)

// EvalRun is one recorded evaluation: what was evaluated and the
// metrics it produced.
type EvalRun struct {
	ID       int64              `json:"id" yaml:"id"`
	Created  time.Time          `json:"created" yaml:"created"`
	GoldPath string             `json:"gold_path,omitempty" yaml:"goldPath,omitempty"`
	Model    string             `json:"model,omitempty" yaml:"model,omitempty"`
	Labels   []string           `json:"labels,omitempty" yaml:"labels,omitempty"`
	Examples int                `json:"examples" yaml:"examples"`
	Metrics  map[string]float64 `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// EvalRunListItem is the run summary returned by ListRuns.
type EvalRunListItem struct {
	ID       int64     `json:"id" yaml:"id"`
	Created  time.Time `json:"created" yaml:"created"`
	GoldPath string    `json:"gold_path,omitempty" yaml:"goldPath,omitempty"`
	Model    string    `json:"model,omitempty" yaml:"model,omitempty"`
	Labels   []string  `json:"labels,omitempty" yaml:"labels,omitempty"`
	Examples int       `json:"examples" yaml:"examples"`
	AvgDiff  float64   `json:"avg_diff" yaml:"avgDiff"`
}

// SaveRun records a completed evaluation and its metrics, returning
// the new run id.
func SaveRun(db *sql.DB, r *EvalRun) (int64, error) {
	if db == nil {
		return 0, errDBNotInitialized
	}
	if r == nil {
		return 0, errors.New("run is required")
	}

	created := r.Created
	if created.IsZero() {
		created = time.Now().UTC()
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin transaction")
	}

	res, err := tx.Exec(insertRunSQL,
		created.Format(time.RFC3339),
		r.GoldPath,
		r.Model,
		strings.Join(r.Labels, ","),
		r.Examples,
	)
	if err != nil {
		tx.Rollback()
		return 0, errors.Wrap(err, "failed to insert run")
	}

	id, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, errors.Wrap(err, "failed to get run id")
	}

	for name, value := range r.Metrics {
		if _, err := tx.Exec(insertMetricSQL, id, name, value); err != nil {
			tx.Rollback()
			return 0, errors.Wrapf(err, "failed to insert metric: %s", name)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit transaction")
	}

	return id, nil
}

// GetRun returns a single run with all of its metrics.
func GetRun(db *sql.DB, id int64) (*EvalRun, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	var r EvalRun
	var created, labels string
	err := db.QueryRow(selectRunSQL, id).Scan(
		&r.ID,
		&created,
		&r.GoldPath,
		&r.Model,
		&labels,
		&r.Examples,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Errorf("run not found: %d", id)
		}
		return nil, errors.Wrapf(err, "failed to query run: %d", id)
	}

	r.Created, err = time.Parse(time.RFC3339, created)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid created time on run %d: %s", id, created)
	}
	if labels != "" {
		r.Labels = strings.Split(labels, ",")
	}

	rows, err := db.Query(selectRunMetricsSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query metrics for run: %d", id)
	}
	defer rows.Close()

	r.Metrics = make(map[string]float64)
	for rows.Next() {
		var name string
		var value float64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, errors.Wrap(err, "failed to scan metric row")
		}
		r.Metrics[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating metric rows")
	}

	return &r, nil
}

// ListRuns returns up to limit most recent run summaries.
func ListRuns(db *sql.DB, limit int) ([]*EvalRunListItem, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	if limit < 1 {
		return nil, errors.New("limit must be positive")
	}

	rows, err := db.Query(listRunsSQL, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query runs")
	}
	defer rows.Close()

	list := make([]*EvalRunListItem, 0)
	for rows.Next() {
		var it EvalRunListItem
		var created, labels string
		if err := rows.Scan(&it.ID, &created, &it.GoldPath, &it.Model, &labels, &it.Examples, &it.AvgDiff); err != nil {
			return nil, errors.Wrap(err, "failed to scan run row")
		}
		it.Created, err = time.Parse(time.RFC3339, created)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid created time on run %d: %s", it.ID, created)
		}
		if labels != "" {
			it.Labels = strings.Split(labels, ",")
		}
		list = append(list, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating run rows")
	}

	return list, nil
}
