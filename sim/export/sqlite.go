package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jbbrd/DES-for-YB-operations/sim"
	"github.com/jbbrd/DES-for-YB-operations/sim/experiment"
)

// ResultsDB indexes experiment results in a SQLite file so sweeps over
// several scenarios can be compared with plain SQL.
type ResultsDB struct {
	db *sql.DB
}

// ExperimentRow is one indexed experiment.
type ExperimentRow struct {
	ID                   int64
	Name                 string
	Allocation           string
	Sequencer            string
	ArrivalRate          float64
	DepartureRate        float64
	Replications         int
	UtilizationMean      float64
	UtilizationHalfWidth float64
	LeadTimeMean         float64
	RequiredReplications int
	RecordedAt           string
}

// OpenResultsDB opens (creating if needed) the results database at path.
func OpenResultsDB(path string) (*ResultsDB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &ResultsDB{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS experiments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			allocation TEXT NOT NULL,
			sequencer TEXT NOT NULL,
			arrival_rate REAL NOT NULL,
			departure_rate REAL NOT NULL,
			replications INTEGER NOT NULL,
			utilization_mean REAL NOT NULL,
			utilization_half_width REAL,
			lead_time_mean REAL NOT NULL,
			lead_time_half_width REAL,
			required_replications INTEGER NOT NULL,
			config_json TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS replications (
			experiment_id INTEGER NOT NULL REFERENCES experiments(id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			utilization REAL NOT NULL,
			archived INTEGER NOT NULL,
			discarded INTEGER NOT NULL,
			mean_waiting_h REAL NOT NULL,
			mean_dwelling_h REAL NOT NULL,
			mean_lead_time_h REAL NOT NULL,
			p95_lead_time_h REAL NOT NULL,
			mean_occupancy REAL NOT NULL,
			crane_moves INTEGER NOT NULL,
			PRIMARY KEY (experiment_id, idx)
		);`,
		`CREATE TABLE IF NOT EXISTS batches (
			experiment_id INTEGER NOT NULL REFERENCES experiments(id) ON DELETE CASCADE,
			replication INTEGER NOT NULL,
			batch INTEGER NOT NULL,
			utilization REAL NOT NULL,
			PRIMARY KEY (experiment_id, replication, batch)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_experiments_name ON experiments(name);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (r *ResultsDB) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// finite maps an infinite half-width to NULL.
func finite(v float64) any {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return v
}

// RecordExperiment stores res and its replications in one transaction and
// returns the new experiment id.
func (r *ResultsDB) RecordExperiment(ctx context.Context, name string, cfg sim.Config, res *experiment.Result) (id int64, err error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return 0, err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	out, err := tx.ExecContext(ctx, `INSERT INTO experiments
		(name, allocation, sequencer, arrival_rate, departure_rate, replications,
		 utilization_mean, utilization_half_width, lead_time_mean, lead_time_half_width,
		 required_replications, config_json, recorded_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		name, cfg.Policy.Allocation, cfg.Policy.Sequencer, cfg.Traffic.ArrivalRate, cfg.Traffic.DepartureRate,
		len(res.Replications), res.Utilization.Mean, finite(res.Utilization.HalfWidth),
		res.LeadTime.Mean, finite(res.LeadTime.HalfWidth), res.Required,
		string(cfgJSON), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	if id, err = out.LastInsertId(); err != nil {
		return 0, err
	}

	for _, rep := range res.Replications {
		s := rep.Summary
		if _, err = tx.ExecContext(ctx, `INSERT INTO replications
			(experiment_id, idx, seed, utilization, archived, discarded, mean_waiting_h,
			 mean_dwelling_h, mean_lead_time_h, p95_lead_time_h, mean_occupancy, crane_moves)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
			id, rep.Index, rep.Seed, rep.Utilization, s.Archived, s.Discarded, s.MeanWaiting,
			s.MeanDwelling, s.MeanLeadTime, s.P95LeadTime, s.MeanOccupancy, s.CraneMoves); err != nil {
			return 0, err
		}
		for b, u := range rep.Batches {
			if _, err = tx.ExecContext(ctx, `INSERT INTO batches (experiment_id, replication, batch, utilization)
				VALUES (?,?,?,?)`, id, rep.Index, b, u); err != nil {
				return 0, err
			}
		}
	}
	return id, tx.Commit()
}

// Experiments lists the indexed experiments, newest first.
func (r *ResultsDB) Experiments(ctx context.Context) ([]ExperimentRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, allocation, sequencer, arrival_rate,
		departure_rate, replications, utilization_mean, COALESCE(utilization_half_width, -1),
		lead_time_mean, required_replications, recorded_at
		FROM experiments ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExperimentRow
	for rows.Next() {
		var e ExperimentRow
		if err := rows.Scan(&e.ID, &e.Name, &e.Allocation, &e.Sequencer, &e.ArrivalRate,
			&e.DepartureRate, &e.Replications, &e.UtilizationMean, &e.UtilizationHalfWidth,
			&e.LeadTimeMean, &e.RequiredReplications, &e.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
