package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"

	"ContractPulse/internal/collector"
	"ContractPulse/internal/metrics"
	"ContractPulse/internal/model"
	"ContractPulse/internal/narrator"
	"ContractPulse/internal/notifier"
	"ContractPulse/internal/recorder"
	"ContractPulse/internal/state"
)

// Analyzer runs one analysis. *collector.Collector implements it.
type Analyzer interface {
	Collect(ctx context.Context, req collector.Request) (*model.Analysis, error)
}

// Sender delivers formatted reports. *notifier.TelegramNotifier implements it.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Deps are the collaborators of a Scheduler. Narrator, Notifier and Metrics may be nil.
type Deps struct {
	Analyzer  Analyzer
	Narrator  narrator.Narrator
	Notifier  Sender
	Recorder  recorder.Recorder
	State     *state.Manager
	Metrics   *metrics.Manager
	Watchlist []notifier.WatchItem
	TopN      int
	Retries   int
}

// Scheduler runs the watchlist analysis on a cron schedule and answers chat commands.
type Scheduler struct {
	Deps
	Cron *cron.Cron
	Ctx  context.Context

	entry   cron.EntryID
	running sync.Mutex
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, d Deps) *Scheduler {
	if d.Recorder == nil {
		d.Recorder = recorder.NewNoopRecorder()
	}
	if d.TopN <= 0 {
		d.TopN = 5
	}
	if d.Retries <= 0 {
		d.Retries = 3
	}
	return &Scheduler{
		Deps: d,
		Cron: cron.New(cron.WithSeconds()),
		Ctx:  ctx,
	}
}

// Register schedules the watchlist analysis.
func (s *Scheduler) Register(analysisCron string) error {
	id, err := s.Cron.AddFunc(analysisCron, s.analysisTask)
	if err != nil {
		return fmt.Errorf("register analysis task: %w", err)
	}
	s.entry = id
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("symbols", len(s.Watchlist)).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// NextRun returns the next scheduled analysis, or the zero time when none is registered.
func (s *Scheduler) NextRun() time.Time {
	if s.entry == 0 {
		return time.Time{}
	}
	return s.Cron.Entry(s.entry).Next
}

// RunNow executes the watchlist analysis immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.analysisTask()
}

func (s *Scheduler) analysisTask() {
	if !s.running.TryLock() {
		log.Warn().Msg("previous analysis still running, skipping")
		return
	}
	defer s.running.Unlock()

	log.Info().Int("symbols", len(s.Watchlist)).Msg("running watchlist analysis")
	for _, item := range s.Watchlist {
		if s.Ctx.Err() != nil {
			return
		}
		a, err := s.Analyze(item.Symbol, item.Recipient)
		if err != nil {
			s.trySend(fmt.Sprintf("❌ %s analysis failed: %v", item.Symbol, err))
			continue
		}
		s.trySend(notifier.FormatImpactReport(a, s.TopN))
	}
}

// Analyze runs, narrates, records and stores one analysis.
func (s *Scheduler) Analyze(symbol, recipient string) (*model.Analysis, error) {
	return s.analyze(collector.Request{Symbol: symbol, Recipient: recipient})
}

func (s *Scheduler) analyze(req collector.Request) (*model.Analysis, error) {
	a, err := s.Analyzer.Collect(s.Ctx, req)
	if err != nil {
		log.Error().Err(err).Str("symbol", req.Symbol).Msg("analysis failed")
		s.Metrics.RecordFailure()
		if s.State != nil {
			s.State.RecordFailure(strings.ToUpper(req.Symbol), req.Recipient)
		}
		return nil, err
	}

	if s.Narrator != nil && !a.Insufficient() {
		text, err := s.Narrator.Narrate(s.Ctx, a)
		if err != nil {
			log.Warn().Err(err).Str("narrator", s.Narrator.Name()).Str("symbol", a.Symbol).Msg("narration failed")
			a.Warn("commentary unavailable: " + err.Error())
		} else {
			a.Narrative = text
		}
	}

	if err := s.Recorder.RecordAnalysis(a); err != nil {
		log.Error().Err(err).Str("run_id", a.RunID).Msg("record analysis")
	}
	if s.State != nil {
		s.State.RecordAnalysis(a)
	}
	return a, nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	args := fields[1:]

	switch cmd {
	case "/analyze":
		if len(args) == 0 {
			return "Usage: /analyze SYMBOL [recipient name]"
		}
		symbol := strings.ToUpper(args[0])
		recipient := strings.Join(args[1:], " ")
		if recipient == "" {
			recipient = s.recipientFor(symbol)
		}
		if recipient == "" {
			return fmt.Sprintf("%s is not on the watchlist; use /analyze %s <recipient name>", symbol, symbol)
		}
		// on-demand runs always fetch fresh bars
		a, err := s.analyze(collector.Request{Symbol: symbol, Recipient: recipient, Refresh: true})
		if err != nil {
			return fmt.Sprintf("❌ %s analysis failed: %v", symbol, err)
		}
		return notifier.FormatImpactReport(a, s.TopN)
	case "/run":
		go s.RunNow()
		return fmt.Sprintf("Watchlist analysis started for %d symbols.", len(s.Watchlist))
	case "/status":
		if s.State == nil {
			return notifier.FormatStatus(nil)
		}
		st := s.State.GetState()
		return notifier.FormatStatus(&st)
	case "/history":
		if len(args) == 0 {
			return "Usage: /history SYMBOL"
		}
		symbol := strings.ToUpper(args[0])
		runs, err := s.Recorder.RecentRuns(symbol, 5)
		if err != nil {
			return fmt.Sprintf("❌ history unavailable: %v", err)
		}
		return notifier.FormatHistory(symbol, runs)
	case "/watchlist":
		return notifier.FormatWatchlist(s.Watchlist, s.NextRun())
	default:
		return helpText
	}
}

const helpText = `Available commands:
• /analyze SYMBOL [recipient]
• /run
• /status
• /history SYMBOL
• /watchlist`

func (s *Scheduler) recipientFor(symbol string) string {
	for _, it := range s.Watchlist {
		if strings.EqualFold(it.Symbol, symbol) {
			return it.Recipient
		}
	}
	return ""
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		log.Info().Msg("no notifier configured, report not sent")
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, s.Retries); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}
