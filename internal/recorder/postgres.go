package recorder

import (
	"fmt"
	"time"

	"github.com/phuslu/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ContractPulse/internal/model"
)

// PostgresRecorder persists analysis history to PostgreSQL through gorm.
type PostgresRecorder struct {
	db *gorm.DB
}

// NewPostgresRecorder connects to dsn and migrates the schema.
func NewPostgresRecorder(dsn string) (*PostgresRecorder, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := db.AutoMigrate(&AnalysisRun{}, &ImpactRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Msg("postgres recorder connected and migrated")
	return &PostgresRecorder{db: db}, nil
}

// RecordAnalysis stores the run and its per-event results in one transaction.
// Recording the same run ID again replaces the earlier rows.
func (r *PostgresRecorder) RecordAnalysis(a *model.Analysis) error {
	run, rows := toRows(a)
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", run.RunID).Delete(&ImpactRow{}).Error; err != nil {
			return fmt.Errorf("delete previous impacts: %w", err)
		}
		if err := tx.Where("run_id = ?", run.RunID).Delete(&AnalysisRun{}).Error; err != nil {
			return fmt.Errorf("delete previous run: %w", err)
		}
		if err := tx.Create(&run).Error; err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, 200).Error; err != nil {
			return fmt.Errorf("insert impacts: %w", err)
		}
		return nil
	})
}

func (r *PostgresRecorder) RecentRuns(symbol string, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	q := r.db.Model(&AnalysisRun{}).Order("started_at DESC, run_id").Limit(limit)
	if symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	var runs []AnalysisRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	out := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		out = append(out, run.summary())
	}
	return out, nil
}

func (r *PostgresRecorder) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	log.Info().Msg("closing postgres recorder")
	return sqlDB.Close()
}
