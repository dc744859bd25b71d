package recorder

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/guregu/null/v6"

	"ContractPulse/internal/model"
)

// RunSummary is one recorded analysis run.
type RunSummary struct {
	RunID               string
	Symbol              string
	Recipient           string
	StartedAt           time.Time
	FinishedAt          time.Time
	Samples             int
	Events              int
	Skipped             int
	MeanPriceChangePct  null.Float
	MeanVolumeChangePct null.Float
	ValidPriceCount     int
	Insufficient        bool
}

// Recorder persists analysis history.
type Recorder interface {
	RecordAnalysis(a *model.Analysis) error
	// RecentRuns lists runs newest first; an empty symbol matches every symbol.
	RecentRuns(symbol string, limit int) ([]RunSummary, error)
	Close() error
}

// AnalysisRun is the analysis_runs row.
type AnalysisRun struct {
	RunID               string     `gorm:"primaryKey;size:36"`
	Symbol              string     `gorm:"index:idx_runs_symbol_started;size:20"`
	Recipient           string     `gorm:"size:255"`
	StartedAt           time.Time  `gorm:"index:idx_runs_symbol_started"`
	FinishedAt          time.Time
	RangeFrom           string     `gorm:"size:10"`
	RangeTo             string     `gorm:"size:10"`
	PreDays             int
	PostDays            int
	WindowPolicy        string     `gorm:"size:16"`
	Samples             int
	Events              int
	Skipped             int
	MeanPriceChangePct  null.Float `gorm:"type:double precision"`
	MeanVolumeChangePct null.Float `gorm:"type:double precision"`
	ValidPriceCount     int
	ValidVolumeCount    int
	Insufficient        bool
	Narrative           string
	Warnings            string
}

func (AnalysisRun) TableName() string { return "analysis_runs" }

// ImpactRow is one impact_results row. Unmeasured fields are stored as NULL.
type ImpactRow struct {
	ID              uint       `gorm:"primaryKey"`
	RunID           string     `gorm:"index;size:36"`
	Seq             int
	EventDate       string     `gorm:"size:10"`
	Label           string
	AwardID         string     `gorm:"size:64"`
	Agency          string
	Amount          null.Float `gorm:"type:double precision"`
	PreAvgPrice     null.Float `gorm:"type:double precision"`
	PostAvgPrice    null.Float `gorm:"type:double precision"`
	PriceChangePct  null.Float `gorm:"type:double precision"`
	PreAvgVolume    null.Float `gorm:"type:double precision"`
	PostAvgVolume   null.Float `gorm:"type:double precision"`
	VolumeChangePct null.Float `gorm:"type:double precision"`
	PreSamples      int
	PostSamples     int
}

func (ImpactRow) TableName() string { return "impact_results" }

func toRows(a *model.Analysis) (AnalysisRun, []ImpactRow) {
	run := AnalysisRun{
		RunID:        a.RunID,
		Symbol:       a.Symbol,
		Recipient:    a.Recipient,
		StartedAt:    a.StartedAt.UTC(),
		FinishedAt:   a.FinishedAt.UTC(),
		PreDays:      a.PreDays,
		PostDays:     a.PostDays,
		WindowPolicy: a.Policy,
		Samples:      a.Samples,
		Events:       a.Events,
		Skipped:      a.Skipped,
		Insufficient: a.Insufficient(),
		Narrative:    a.Narrative,
	}
	if !a.Range.From.IsZero() {
		run.RangeFrom = a.Range.From.Format(model.DateLayout)
	}
	if !a.Range.To.IsZero() {
		run.RangeTo = a.Range.To.Format(model.DateLayout)
	}
	if len(a.Warnings) > 0 {
		if b, err := json.Marshal(a.Warnings); err == nil {
			run.Warnings = string(b)
		}
	}
	if a.Report == nil {
		return run, nil
	}

	r := a.Report
	run.MeanPriceChangePct = r.MeanPriceChangePct
	run.MeanVolumeChangePct = r.MeanVolumeChangePct
	run.ValidPriceCount = r.ValidPriceCount
	run.ValidVolumeCount = r.ValidVolumeCount

	rows := make([]ImpactRow, 0, len(r.PerEvent))
	for i, e := range r.PerEvent {
		rows = append(rows, ImpactRow{
			RunID:           a.RunID,
			Seq:             i,
			EventDate:       e.Event.Date.Format(model.DateLayout),
			Label:           e.Event.Label,
			AwardID:         e.Event.AwardID,
			Agency:          e.Event.Agency,
			Amount:          e.Event.Amount,
			PreAvgPrice:     e.PreAvgPrice,
			PostAvgPrice:    e.PostAvgPrice,
			PriceChangePct:  e.PriceChangePct,
			PreAvgVolume:    e.PreAvgVolume,
			PostAvgVolume:   e.PostAvgVolume,
			VolumeChangePct: e.VolumeChangePct,
			PreSamples:      e.PreSamples,
			PostSamples:     e.PostSamples,
		})
	}
	return run, rows
}

func (r AnalysisRun) summary() RunSummary {
	return RunSummary{
		RunID:               r.RunID,
		Symbol:              r.Symbol,
		Recipient:           r.Recipient,
		StartedAt:           r.StartedAt,
		FinishedAt:          r.FinishedAt,
		Samples:             r.Samples,
		Events:              r.Events,
		Skipped:             r.Skipped,
		MeanPriceChangePct:  r.MeanPriceChangePct,
		MeanVolumeChangePct: r.MeanVolumeChangePct,
		ValidPriceCount:     r.ValidPriceCount,
		Insufficient:        r.Insufficient,
	}
}

// Open returns the recorder for driver: sqlite, postgres, or none.
func Open(driver, sqlitePath, postgresDSN string) (Recorder, error) {
	switch driver {
	case "", "none":
		return NewNoopRecorder(), nil
	case "sqlite":
		return NewSQLiteRecorder(sqlitePath)
	case "postgres":
		return NewPostgresRecorder(postgresDSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}
