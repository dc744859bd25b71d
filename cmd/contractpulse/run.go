package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/phuslu/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"ContractPulse/internal/metrics"
	"ContractPulse/internal/notifier"
	"ContractPulse/internal/recorder"
	"ContractPulse/internal/scheduler"
	"ContractPulse/internal/state"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduled watchlist analysis with Telegram commands",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log.Info().Msg("ContractPulse starting...")

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m := metrics.NewManager(metrics.WithRegistry(reg))
		col, err := newCollector(cfg, m)
		if err != nil {
			return err
		}
		log.Info().Str("source", col.Fetcher.Name()).Msg("price source selected")

		nar, err := newNarrator(ctx, cfg)
		if err != nil {
			return fmt.Errorf("init narrator: %w", err)
		}

		rec, err := recorder.Open(cfg.Database.Driver, cfg.Database.SQLitePath, cfg.Database.PostgresDSN)
		if err != nil {
			log.Warn().Err(err).Str("driver", cfg.Database.Driver).Msg("init recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		}
		defer rec.Close()

		st, err := state.NewManager(cfg.State.File)
		if err != nil {
			return fmt.Errorf("init state: %w", err)
		}

		watch := make([]notifier.WatchItem, 0, len(cfg.Watchlist))
		for _, w := range cfg.Watchlist {
			watch = append(watch, notifier.WatchItem{Symbol: w.Symbol, Recipient: w.Recipient})
		}
		deps := scheduler.Deps{
			Analyzer:  col,
			Narrator:  nar,
			Recorder:  rec,
			State:     st,
			Metrics:   m,
			Watchlist: watch,
			TopN:      cfg.Analysis.TopN,
		}

		var tn *notifier.TelegramNotifier
		if cfg.Telegram.Enabled {
			tn, err = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, notifier.WithProxy(cfg.Proxy))
			if err != nil {
				return fmt.Errorf("init telegram: %w", err)
			}
			deps.Notifier = tn
		}

		sched := scheduler.NewScheduler(ctx, deps)
		if err := sched.Register(cfg.Schedule.AnalysisCron); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()

		if tn != nil {
			go tn.StartPolling(ctx, sched.HandleCommand)
			log.Info().Msg("telegram polling started")
		}

		if cfg.Metrics.Enabled {
			srv := metricsServer(cfg.Metrics.Addr, m)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error().Err(err).Msg("metrics server")
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
			log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics endpoint started")
		}

		if cfg.Schedule.RunOnStart {
			log.Info().Msg("run_on_start enabled, analysing watchlist now")
			go sched.RunNow()
		}

		log.Info().Int("symbols", len(watch)).Time("next_run", sched.NextRun()).Msg("ContractPulse is running. Press Ctrl+C to stop.")
		<-ctx.Done()

		log.Info().Msg("shutdown signal received, stopping...")
		return nil
	},
}

func metricsServer(addr string, m *metrics.Manager) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
