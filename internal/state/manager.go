// Package state keeps the last-run summary of every watched symbol on disk.
package state

import (
	"sync"
	"time"

	"github.com/phuslu/log"

	"ContractPulse/internal/model"
)

// Manager guards the watch state and persists it after every change.
type Manager struct {
	mu       sync.Mutex
	state    *model.WatchState
	filePath string
}

// NewManager creates a Manager, loading existing state from disk.
func NewManager(filePath string) (*Manager, error) {
	st, err := LoadState(filePath)
	if err != nil {
		return nil, err
	}
	return &Manager{state: st, filePath: filePath}, nil
}

// GetState returns a deep copy of the current state.
func (m *Manager) GetState() model.WatchState {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := model.WatchState{
		Symbols:   make(map[string]*model.SymbolState, len(m.state.Symbols)),
		UpdatedAt: m.state.UpdatedAt,
	}
	for k, v := range m.state.Symbols {
		c := *v
		out.Symbols[k] = &c
	}
	return out
}

// Symbol returns the state of one symbol.
func (m *Manager) Symbol(symbol string) (model.SymbolState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.state.Symbols[symbol]
	if !ok {
		return model.SymbolState{}, false
	}
	return *s, true
}

// RecordAnalysis stores the summary of a finished analysis and resets the
// failure counter.
func (m *Manager) RecordAnalysis(a *model.Analysis) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.entry(a.Symbol)
	s.Recipient = a.Recipient
	s.LastRunID = a.RunID
	s.LastRunAt = a.FinishedAt
	if s.LastRunAt.IsZero() {
		s.LastRunAt = time.Now()
	}
	s.Events = a.Events
	s.Insufficient = a.Insufficient()
	s.ConsecutiveFailures = 0
	if a.Report != nil {
		s.MeanPriceChangePct = a.Report.MeanPriceChangePct
		s.MeanVolumeChangePct = a.Report.MeanVolumeChangePct
	} else {
		s.MeanPriceChangePct.Valid = false
		s.MeanVolumeChangePct.Valid = false
	}

	if err := m.save(); err != nil {
		log.Error().Err(err).Str("symbol", a.Symbol).Msg("failed to save watch state")
	}
}

// RecordFailure increments the failure counter of a symbol and returns it.
func (m *Manager) RecordFailure(symbol, recipient string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.entry(symbol)
	if recipient != "" {
		s.Recipient = recipient
	}
	s.ConsecutiveFailures++

	if err := m.save(); err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("failed to save watch state")
	}
	return s.ConsecutiveFailures
}

func (m *Manager) entry(symbol string) *model.SymbolState {
	s, ok := m.state.Symbols[symbol]
	if !ok {
		s = &model.SymbolState{Symbol: symbol}
		m.state.Symbols[symbol] = s
	}
	return s
}

func (m *Manager) save() error {
	return SaveState(m.filePath, m.state)
}
