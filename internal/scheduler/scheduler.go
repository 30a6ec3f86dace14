package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"SMCSentinel/internal/analyzer"
	"SMCSentinel/internal/collector"
	"SMCSentinel/internal/metrics"
	"SMCSentinel/internal/model"
	"SMCSentinel/internal/notifier"
	"SMCSentinel/internal/recorder"
	"SMCSentinel/internal/tracker"
)

const defaultHistoryLimit = 10

// Settings are the analysis parameters the scheduler runs with.
type Settings struct {
	Symbols  []string
	Analysis model.AnalysisConfig
	Workers  int
	// NotifyOnChangeOnly suppresses scheduled reports whose bias direction
	// did not change since the previous run. Needs a Tracker.
	NotifyOnChangeOnly bool
}

// Scheduler runs the periodic analysis and answers chat commands.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Notifier  notifier.Notifier
	Recorder  recorder.Recorder
	Metrics   *metrics.MetricsRegistry
	Tracker   *tracker.Tracker // optional
	Settings  Settings
	Ctx       context.Context

	logger zerolog.Logger
}

// NewScheduler creates a new Scheduler. m may be nil.
func NewScheduler(ctx context.Context, col *collector.Collector, n notifier.Notifier, rec recorder.Recorder,
	m *metrics.MetricsRegistry, settings Settings) *Scheduler {
	if settings.Workers < 1 {
		settings.Workers = 1
	}
	return &Scheduler{
		Cron: cron.New(cron.WithSeconds(), cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		Collector: col,
		Notifier:  n,
		Recorder:  rec,
		Metrics:   m,
		Settings:  settings,
		Ctx:       ctx,
		logger:    log.With().Str("component", "scheduler").Logger(),
	}
}

// RegisterAll registers the analysis task.
func (s *Scheduler) RegisterAll(analysisCron string) error {
	if _, err := s.Cron.AddFunc(analysisCron, s.analysisTask); err != nil {
		return fmt.Errorf("register analysis task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info().Strs("symbols", s.Settings.Symbols).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
}

// RunNow executes the analysis task immediately (for manual trigger / run on start).
func (s *Scheduler) RunNow() {
	s.analysisTask()
}

func (s *Scheduler) analysisTask() {
	s.logger.Info().Int("symbols", len(s.Settings.Symbols)).Msg("running analysis task")
	results, err := s.AnalyzeSymbols(s.Ctx, s.Settings.Symbols)
	if err != nil {
		s.logger.Error().Err(err).Msg("analysis task")
		s.trySend(s.Ctx, fmt.Sprintf("❌ analysis failed: %v", err))
		return
	}
	for _, a := range results {
		report := notifier.FormatBiasReport(a)
		if s.Tracker != nil {
			change := s.Tracker.Observe(a)
			if s.Settings.NotifyOnChangeOnly && change.Previous != "" && !change.Flipped {
				s.logger.Debug().Str("symbol", a.Symbol).Int("streak", change.Streak).Msg("bias unchanged, report skipped")
				continue
			}
			report += notifier.FormatChange(change)
		}
		s.trySend(s.Ctx, report)
	}
}

// AnalyzeSymbols collects, analyzes and records every symbol. Results keep
// the order of symbols.
func (s *Scheduler) AnalyzeSymbols(ctx context.Context, symbols []string) ([]*model.Analysis, error) {
	ctx = s.logger.WithContext(ctx)
	inputs := make([]analyzer.Input, len(symbols))
	collectFailures := make([][]model.TimeframeFailure, len(symbols))

	timer := s.startTimer("collect")
	g := new(errgroup.Group)
	g.SetLimit(s.Settings.Workers)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			series, failures := s.Collector.Collect(ctx, sym)
			inputs[i] = analyzer.Input{Symbol: sym, Series: series}
			collectFailures[i] = failures
			return nil
		})
	}
	_ = g.Wait()
	timer.stop(ctx.Err())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timer = s.startTimer("analyze")
	results, err := analyzer.AnalyzeMany(ctx, inputs, s.Settings.Analysis, s.Settings.Workers)
	timer.stop(err)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for i, a := range results {
		a.RunID = uuid.NewString()
		a.Failures = append(collectFailures[i], a.Failures...)
		if a.AnalyzedAt.IsZero() {
			a.AnalyzedAt = now
		}
		s.logger.Info().
			Str("run_id", a.RunID).
			Str("symbol", a.Symbol).
			Str("direction", string(a.Bias.Direction)).
			Float64("confidence", a.Bias.Confidence).
			Str("level", string(a.Bias.ConfidenceLevel)).
			Int("failures", len(a.Failures)).
			Msg("bias computed")

		if s.Metrics != nil {
			s.Metrics.ObserveAnalysis(a)
		}
		timer = s.startTimer("record")
		err := recorder.RecordAnalysis(ctx, s.Recorder, a)
		timer.stop(err)
		if err != nil {
			s.logger.Error().Err(err).Str("symbol", a.Symbol).Msg("record analysis")
		}
	}
	return results, nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	cmd := strings.ToLower(fields[0])
	if at := strings.IndexByte(cmd, '@'); at > 0 {
		cmd = cmd[:at] // "/bias@my_bot"
	}
	args := fields[1:]

	switch cmd {
	case "/bias":
		symbols := s.Settings.Symbols
		if len(args) > 0 {
			symbols = []string{strings.ToUpper(args[0])}
		}
		results, err := s.AnalyzeSymbols(ctx, symbols)
		if err != nil {
			return fmt.Sprintf("❌ analysis failed: %v", err)
		}
		reports := make([]string, len(results))
		for i, a := range results {
			reports[i] = notifier.FormatBiasReport(a)
		}
		return strings.Join(reports, "\n\n")
	case "/history":
		if len(args) == 0 {
			return "usage: /history SYMBOL [limit]"
		}
		limit := defaultHistoryLimit
		if len(args) > 1 {
			if n, err := strconv.Atoi(args[1]); err == nil && n > 0 {
				limit = n
			}
		}
		symbol := strings.ToUpper(args[0])
		records, err := s.Recorder.RecentBias(ctx, symbol, limit)
		if err != nil {
			s.logger.Error().Err(err).Str("symbol", symbol).Msg("load history")
			return "❌ could not load history"
		}
		return notifier.FormatHistory(symbol, records)
	case "/symbols":
		return "Tracked symbols: " + strings.Join(s.Settings.Symbols, ", ")
	default:
		return helpText
	}
}

const helpText = "Available commands:\n" +
	"• /bias [SYMBOL] - analyze now\n" +
	"• /history SYMBOL [limit] - recent biases\n" +
	"• /symbols - tracked symbols"

func (s *Scheduler) trySend(ctx context.Context, text string) {
	timer := s.startTimer("notify")
	err := s.Notifier.Send(ctx, text)
	timer.stop(err)
	if err != nil {
		s.logger.Error().Err(err).Msg("send notification")
	}
}

// stepTimer tolerates a nil metrics registry.
type stepTimer struct{ t *metrics.StepTimer }

func (s *Scheduler) startTimer(step string) stepTimer {
	if s.Metrics == nil {
		return stepTimer{}
	}
	return stepTimer{t: s.Metrics.StartStepTimer(step)}
}

func (st stepTimer) stop(err error) {
	if st.t != nil {
		st.t.Stop(err)
	}
}
