package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"ContractPulse/internal/collector"
	"ContractPulse/internal/config"
	"ContractPulse/internal/metrics"
	"ContractPulse/internal/model"
	"ContractPulse/internal/notifier"
	"ContractPulse/internal/recorder"
)

var analyzeFlags struct {
	symbol    string
	recipient string
	from      string
	to        string
	pre       int
	post      int
	narrate   bool
	record    bool
	output    string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one analysis and print the report",
	Example: `  contractpulse analyze --symbol LMT --recipient "Lockheed Martin"
  contractpulse analyze --symbol RTX --from 2023-01-01 --to 2023-12-31 --pre 10 --post 30 -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		req, err := analyzeRequest(cfg)
		if errors.Is(err, errNoRecipient) {
			req.Recipient, err = lookupRecipient(ctx, newTiingoClient(cfg), req.Symbol)
		}
		if err != nil {
			return err
		}

		col, err := newCollector(cfg, metrics.NewManager())
		if err != nil {
			return err
		}
		a, err := col.Collect(ctx, req)
		if err != nil {
			return err
		}

		if analyzeFlags.narrate && !a.Insufficient() {
			nar, err := newNarrator(ctx, cfg)
			if err != nil {
				return err
			}
			if a.Narrative, err = nar.Narrate(ctx, a); err != nil {
				log.Warn().Err(err).Msg("narration failed")
				a.Warn("commentary unavailable: " + err.Error())
			}
		}

		if analyzeFlags.record {
			rec, err := recorder.Open(cfg.Database.Driver, cfg.Database.SQLitePath, cfg.Database.PostgresDSN)
			if err != nil {
				return err
			}
			defer rec.Close()
			if err := rec.RecordAnalysis(a); err != nil {
				return fmt.Errorf("record analysis: %w", err)
			}
		}

		return printAnalysis(a, cfg.Analysis.TopN)
	},
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeFlags.symbol, "symbol", "s", "", "stock ticker (required)")
	f.StringVarP(&analyzeFlags.recipient, "recipient", "r", "", "award recipient name (defaults to the watchlist entry)")
	f.StringVar(&analyzeFlags.from, "from", "", "start of the award period, YYYY-MM-DD")
	f.StringVar(&analyzeFlags.to, "to", "", "end of the award period, YYYY-MM-DD (default today)")
	f.IntVar(&analyzeFlags.pre, "pre", 0, "pre-event window length (default from config)")
	f.IntVar(&analyzeFlags.post, "post", 0, "post-event window length (default from config)")
	f.BoolVar(&analyzeFlags.narrate, "narrate", false, "add commentary from the configured narrator")
	f.BoolVar(&analyzeFlags.record, "record", false, "store the run in the configured database")
	f.StringVarP(&analyzeFlags.output, "output", "o", "text", "output format: text or json")
	_ = analyzeCmd.MarkFlagRequired("symbol")
}

var errNoRecipient = errors.New("not on the watchlist; pass --recipient")

// analyzeRequest builds the request from the flags. When the recipient can't be
// taken from the flags or the watchlist it returns the request with errNoRecipient.
func analyzeRequest(cfg *config.Config) (collector.Request, error) {
	req := collector.Request{
		Symbol:    strings.ToUpper(strings.TrimSpace(analyzeFlags.symbol)),
		Recipient: analyzeFlags.recipient,
		PreDays:   analyzeFlags.pre,
		PostDays:  analyzeFlags.post,
	}
	if req.Recipient == "" {
		for _, w := range cfg.Watchlist {
			if strings.EqualFold(w.Symbol, req.Symbol) {
				req.Recipient = w.Recipient
			}
		}
	}
	if analyzeFlags.pre < 0 || analyzeFlags.post < 0 {
		return req, fmt.Errorf("--pre and --post must not be negative")
	}

	var err error
	if req.From, err = parseDate("from", analyzeFlags.from); err != nil {
		return req, err
	}
	if req.To, err = parseDate("to", analyzeFlags.to); err != nil {
		return req, err
	}
	if req.Recipient == "" {
		return req, fmt.Errorf("%s is %w", req.Symbol, errNoRecipient)
	}
	return req, nil
}

func parseDate(flag, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: expected YYYY-MM-DD, got %q", flag, s)
	}
	return t, nil
}

func printAnalysis(a *model.Analysis, topN int) error {
	switch analyzeFlags.output {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(a)
	case "text", "":
		fmt.Fprint(os.Stdout, notifier.PlainText(notifier.FormatImpactReport(a, topN)))
		return nil
	default:
		return fmt.Errorf("unknown output format %q", analyzeFlags.output)
	}
}
