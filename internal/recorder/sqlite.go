package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/phuslu/log"
	_ "modernc.org/sqlite"

	"ContractPulse/internal/model"
)

// SQLiteRecorder persists analysis history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while runs are being written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analysis_runs (
			run_id                 TEXT PRIMARY KEY,
			symbol                 TEXT NOT NULL,
			recipient              TEXT,
			started_at             INTEGER NOT NULL,
			finished_at            INTEGER,
			range_from             TEXT,
			range_to               TEXT,
			pre_days               INTEGER,
			post_days              INTEGER,
			window_policy          TEXT,
			samples                INTEGER,
			events                 INTEGER,
			skipped                INTEGER,
			mean_price_change_pct  REAL,
			mean_volume_change_pct REAL,
			valid_price_count      INTEGER,
			valid_volume_count     INTEGER,
			insufficient           INTEGER NOT NULL DEFAULT 0,
			narrative              TEXT,
			warnings               TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_symbol_started ON analysis_runs(symbol, started_at)`,

		`CREATE TABLE IF NOT EXISTS impact_results (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id            TEXT NOT NULL REFERENCES analysis_runs(run_id),
			seq               INTEGER NOT NULL,
			event_date        TEXT NOT NULL,
			label             TEXT,
			award_id          TEXT,
			agency            TEXT,
			amount            REAL,
			pre_avg_price     REAL,
			post_avg_price    REAL,
			price_change_pct  REAL,
			pre_avg_volume    REAL,
			post_avg_volume   REAL,
			volume_change_pct REAL,
			pre_samples       INTEGER,
			post_samples      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_impact_run ON impact_results(run_id, seq)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordAnalysis stores the run and its per-event results in one transaction.
// Recording the same run ID again replaces the earlier rows.
func (r *SQLiteRecorder) RecordAnalysis(a *model.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, rows := toRows(a)

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM impact_results WHERE run_id = ?`, run.RunID); err != nil {
		return fmt.Errorf("delete previous impacts: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM analysis_runs WHERE run_id = ?`, run.RunID); err != nil {
		return fmt.Errorf("delete previous run: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO analysis_runs
		(run_id, symbol, recipient, started_at, finished_at, range_from, range_to,
		 pre_days, post_days, window_policy, samples, events, skipped,
		 mean_price_change_pct, mean_volume_change_pct, valid_price_count, valid_volume_count,
		 insufficient, narrative, warnings)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		run.RunID, run.Symbol, run.Recipient, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(),
		run.RangeFrom, run.RangeTo, run.PreDays, run.PostDays, run.WindowPolicy,
		run.Samples, run.Events, run.Skipped,
		run.MeanPriceChangePct, run.MeanVolumeChangePct, run.ValidPriceCount, run.ValidVolumeCount,
		run.Insufficient, run.Narrative, run.Warnings,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO impact_results
		(run_id, seq, event_date, label, award_id, agency, amount,
		 pre_avg_price, post_avg_price, price_change_pct,
		 pre_avg_volume, post_avg_volume, volume_change_pct,
		 pre_samples, post_samples)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare impact insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(row.RunID, row.Seq, row.EventDate, row.Label, row.AwardID, row.Agency, row.Amount,
			row.PreAvgPrice, row.PostAvgPrice, row.PriceChangePct,
			row.PreAvgVolume, row.PostAvgVolume, row.VolumeChangePct,
			row.PreSamples, row.PostSamples,
		); err != nil {
			return fmt.Errorf("insert impact %d: %w", row.Seq, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecentRuns(symbol string, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT run_id, symbol, recipient, started_at, finished_at, samples, events, skipped,
		mean_price_change_pct, mean_volume_change_pct, valid_price_count, insufficient
		FROM analysis_runs`
	args := []any{}
	if symbol != "" {
		query += ` WHERE symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY started_at DESC, run_id LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var run AnalysisRun
		var started, finished int64
		if err := rows.Scan(&run.RunID, &run.Symbol, &run.Recipient, &started, &finished,
			&run.Samples, &run.Events, &run.Skipped,
			&run.MeanPriceChangePct, &run.MeanVolumeChangePct, &run.ValidPriceCount, &run.Insufficient,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = time.UnixMilli(started).UTC()
		run.FinishedAt = time.UnixMilli(finished).UTC()
		out = append(out, run.summary())
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
