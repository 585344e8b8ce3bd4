// Package journal persists optimization traces in SQLite so runs can be
// inspected, compared and resumed across processes. Each run owns one
// row in the runs table and one observations row per trace entry; Append
// upserts on (run, index), so re-recording a resumed run is idempotent.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sar2901/scikit-optimize/pkg/errors"
	"github.com/sar2901/scikit-optimize/pkg/logging"
	"github.com/sar2901/scikit-optimize/pkg/space"
)

// Journal is a SQLite-backed store of optimization runs. It is safe for
// concurrent use.
type Journal struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string

	initialized sync.Once
}

// RunInfo summarizes one stored run.
type RunInfo struct {
	ID           string
	Seed         int64
	Observations int
	StartedAt    time.Time
}

// Open opens or creates the journal database at path. Use ":memory:"
// for an ephemeral journal.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to open journal database"),
			errors.Fields{"path": path},
		)
	}

	j := &Journal{
		db:   db,
		path: path,
	}
	if err := j.ensureInitialized(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Journal) ensureInitialized() error {
	var initErr error
	j.initialized.Do(func() {
		// WAL keeps readers unblocked while a run is appending
		if _, err := j.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			initErr = errors.Wrap(err, errors.Unknown, "failed to enable WAL mode")
			return
		}

		query := `
        CREATE TABLE IF NOT EXISTS runs (
            id TEXT PRIMARY KEY,
            seed INTEGER NOT NULL,
            dimensions TEXT NOT NULL,
            started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        );

        CREATE TABLE IF NOT EXISTS observations (
            run_id TEXT NOT NULL REFERENCES runs(id),
            idx INTEGER NOT NULL,
            phase TEXT NOT NULL,
            point TEXT NOT NULL,
            value REAL NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (run_id, idx)
        );

        CREATE INDEX IF NOT EXISTS idx_runs_started_at
        ON runs(started_at);
        `

		if _, err := j.db.Exec(query); err != nil {
			initErr = errors.WithFields(
				errors.Wrap(err, errors.Unknown, "failed to initialize journal schema"),
				errors.Fields{"query": query},
			)
			return
		}
	})
	return initErr
}

// CreateRun registers a run before its observations arrive. Registering
// the same run twice refreshes its seed and dimension list.
func (j *Journal) CreateRun(runID string, seed int64, sp *space.Space) error {
	if err := j.ensureInitialized(); err != nil {
		return err
	}
	if runID == "" {
		return errors.New(errors.InvalidConfiguration, "run ID is empty")
	}

	dims := []string{}
	if sp != nil {
		dims = sp.Names()
	}
	dimsJSON, err := json.Marshal(dims)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to marshal dimension names")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	query := `
    INSERT INTO runs (id, seed, dimensions, updated_at)
    VALUES (?, ?, ?, CURRENT_TIMESTAMP)
    ON CONFLICT(id) DO UPDATE SET
        seed = excluded.seed,
        dimensions = excluded.dimensions,
        updated_at = CURRENT_TIMESTAMP
    `

	if _, err := j.db.Exec(query, runID, seed, string(dimsJSON)); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to register run"),
			errors.Fields{"run_id": runID},
		)
	}
	return nil
}

// Append upserts one observation at trace index idx. Re-appending an
// index overwrites it, which makes recording resumed runs idempotent.
func (j *Journal) Append(runID string, idx int, phase string, p space.Point, y float64) error {
	if err := j.ensureInitialized(); err != nil {
		return err
	}

	pointJSON, err := json.Marshal(p)
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to marshal point"),
			errors.Fields{"run_id": runID, "idx": idx},
		)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	tx, err := j.db.Begin()
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to begin transaction"),
			errors.Fields{"run_id": runID},
		)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			logging.GetLogger().Error(context.Background(), "failed to rollback transaction: %v", err)
		}
	}()

	query := `
    INSERT INTO observations (run_id, idx, phase, point, value)
    VALUES (?, ?, ?, ?, ?)
    ON CONFLICT(run_id, idx) DO UPDATE SET
        phase = excluded.phase,
        point = excluded.point,
        value = excluded.value
    `

	if _, err := tx.Exec(query, runID, idx, phase, string(pointJSON), y); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to append observation"),
			errors.Fields{"run_id": runID, "idx": idx},
		)
	}
	if _, err := tx.Exec("UPDATE runs SET updated_at = CURRENT_TIMESTAMP WHERE id = ?", runID); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to touch run"),
			errors.Fields{"run_id": runID},
		)
	}

	if err := tx.Commit(); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to commit transaction"),
			errors.Fields{"run_id": runID},
		)
	}
	return nil
}

// LoadRun returns the stored trace in index order, with every point
// restored to its native types against sp.
func (j *Journal) LoadRun(runID string, sp *space.Space) ([]space.Point, []float64, error) {
	if err := j.ensureInitialized(); err != nil {
		return nil, nil, err
	}
	j.mu.RLock()
	defer j.mu.RUnlock()

	var seed int64
	err := j.db.QueryRow("SELECT seed FROM runs WHERE id = ?", runID).Scan(&seed)
	if err == sql.ErrNoRows {
		return nil, nil, errors.WithFields(
			errors.New(errors.ResourceNotFound, "run not found"),
			errors.Fields{"run_id": runID},
		)
	}
	if err != nil {
		return nil, nil, errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to look up run"),
			errors.Fields{"run_id": runID},
		)
	}

	rows, err := j.db.Query(
		"SELECT idx, point, value FROM observations WHERE run_id = ? ORDER BY idx", runID)
	if err != nil {
		return nil, nil, errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to load observations"),
			errors.Fields{"run_id": runID},
		)
	}
	defer rows.Close()

	var points []space.Point
	var values []float64
	for rows.Next() {
		var idx int
		var pointJSON string
		var value float64
		if err := rows.Scan(&idx, &pointJSON, &value); err != nil {
			return nil, nil, errors.Wrap(err, errors.Unknown, "failed to scan observation")
		}

		var raw []interface{}
		if err := json.Unmarshal([]byte(pointJSON), &raw); err != nil {
			return nil, nil, errors.WithFields(
				errors.Wrap(err, errors.InvalidConfiguration, "corrupt journal entry"),
				errors.Fields{"run_id": runID, "idx": idx},
			)
		}
		p, err := sp.Coerce(raw)
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.Code(err),
				fmt.Sprintf("journal entry %d does not fit the space", idx))
		}
		points = append(points, p)
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.Wrap(err, errors.Unknown, "error iterating observations")
	}

	return points, values, nil
}

// Best returns the stored observation with the smallest value; ties go
// to the earliest index, matching how a run picks its incumbent.
func (j *Journal) Best(runID string, sp *space.Space) (space.Point, float64, error) {
	if err := j.ensureInitialized(); err != nil {
		return nil, 0, err
	}
	j.mu.RLock()
	defer j.mu.RUnlock()

	var pointJSON string
	var value float64
	query := `
    SELECT point, value FROM observations
    WHERE run_id = ?
    ORDER BY value ASC, idx ASC
    LIMIT 1
    `
	err := j.db.QueryRow(query, runID).Scan(&pointJSON, &value)
	if err == sql.ErrNoRows {
		return nil, 0, errors.WithFields(
			errors.New(errors.ResourceNotFound, "run has no observations"),
			errors.Fields{"run_id": runID},
		)
	}
	if err != nil {
		return nil, 0, errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to query best observation"),
			errors.Fields{"run_id": runID},
		)
	}

	var raw []interface{}
	if err := json.Unmarshal([]byte(pointJSON), &raw); err != nil {
		return nil, 0, errors.Wrap(err, errors.InvalidConfiguration, "corrupt journal entry")
	}
	p, err := sp.Coerce(raw)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.Code(err), "stored point does not fit the space")
	}
	return p, value, nil
}

// Runs lists every stored run with its observation count, oldest first.
func (j *Journal) Runs() ([]RunInfo, error) {
	if err := j.ensureInitialized(); err != nil {
		return nil, err
	}
	j.mu.RLock()
	defer j.mu.RUnlock()

	query := `
    SELECT r.id, r.seed, r.started_at, COUNT(o.run_id)
    FROM runs r
    LEFT JOIN observations o ON o.run_id = r.id
    GROUP BY r.id, r.seed, r.started_at
    ORDER BY r.started_at, r.id
    `
	rows, err := j.db.Query(query)
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to list runs")
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var info RunInfo
		if err := rows.Scan(&info.ID, &info.Seed, &info.StartedAt, &info.Observations); err != nil {
			return nil, errors.Wrap(err, errors.Unknown, "failed to scan run")
		}
		runs = append(runs, info)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "error iterating runs")
	}

	return runs, nil
}

// DeleteRun removes a run and all its observations.
func (j *Journal) DeleteRun(runID string) error {
	if err := j.ensureInitialized(); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	tx, err := j.db.Begin()
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to begin transaction")
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			logging.GetLogger().Error(context.Background(), "failed to rollback transaction: %v", err)
		}
	}()

	if _, err := tx.Exec("DELETE FROM observations WHERE run_id = ?", runID); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to delete observations"),
			errors.Fields{"run_id": runID},
		)
	}
	if _, err := tx.Exec("DELETE FROM runs WHERE id = ?", runID); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.Unknown, "failed to delete run"),
			errors.Fields{"run_id": runID},
		)
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to commit transaction")
	}
	return nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.db.Close(); err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to close journal database")
	}
	return nil
}
