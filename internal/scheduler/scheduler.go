package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"BreakoutScanner/internal/model"
	"BreakoutScanner/internal/notifier"
	"BreakoutScanner/internal/scanner"
	"BreakoutScanner/internal/session"
)

// Refresher forces a daily bar refresh for a batch of tickers.
type Refresher interface {
	Refresh(ctx context.Context, tickers []string) (map[string]*model.PriceSeries, error)
}

// Ranker runs one scan pass.
type Ranker interface {
	Run(ctx context.Context, tickers []string) ([]scanner.Row, error)
}

// RiskAnalyzer sizes a position.
type RiskAnalyzer interface {
	Analyze(ctx context.Context, ticker string, riskDollars float64) (*model.RiskResult, error)
}

// Sender delivers a formatted report.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

const sendRetries = 3

// Scheduler runs the daily refresh + scan and answers chat commands.
type Scheduler struct {
	Cron        *cron.Cron
	refresher   Refresher
	ranker      Ranker
	risk        RiskAnalyzer
	sender      Sender
	tickers     []string
	riskDollars float64
	clock       session.Clock
	logger      *zap.Logger
	ctx         context.Context
}

// Deps groups the collaborators of a Scheduler.
type Deps struct {
	Refresher   Refresher
	Ranker      Ranker
	Risk        RiskAnalyzer
	Sender      Sender
	Tickers     []string
	RiskDollars float64
	Clock       session.Clock
	Logger      *zap.Logger
}

// NewScheduler creates a new Scheduler. ctx bounds every job it runs.
func NewScheduler(ctx context.Context, d Deps) *Scheduler {
	clock := d.Clock
	if clock == nil {
		clock = session.SystemClock
	}
	return &Scheduler{
		Cron:        cron.New(cron.WithSeconds(), cron.WithLocation(clock().Location())),
		refresher:   d.Refresher,
		ranker:      d.Ranker,
		risk:        d.Risk,
		sender:      d.Sender,
		tickers:     d.Tickers,
		riskDollars: d.RiskDollars,
		clock:       clock,
		logger:      d.Logger,
		ctx:         ctx,
	}
}

// RegisterAll registers the daily refresh + scan job.
func (s *Scheduler) RegisterAll(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.dailyTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunDailyNow executes the daily task immediately.
func (s *Scheduler) RunDailyNow() {
	s.dailyTask()
}

func (s *Scheduler) dailyTask() {
	s.logger.Info("running daily refresh", zap.Int("tickers", len(s.tickers)))
	if _, err := s.refresher.Refresh(s.ctx, s.tickers); err != nil {
		s.logger.Error("daily refresh failed", zap.Error(err))
		s.trySend(notifier.FormatError("daily refresh", err))
		return
	}
	rows, err := s.ranker.Run(s.ctx, s.tickers)
	if err != nil {
		s.logger.Error("daily scan failed", zap.Error(err))
		s.trySend(notifier.FormatError("daily scan", err))
		return
	}
	s.trySend(notifier.FormatScanReport(rows, s.clock()))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	switch strings.ToLower(fields[0]) {
	case "/scan":
		rows, err := s.ranker.Run(ctx, s.tickers)
		if err != nil {
			return notifier.FormatError("scan", err)
		}
		return notifier.FormatScanReport(rows, s.clock())
	case "/risk":
		return s.handleRisk(ctx, fields[1:])
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) handleRisk(ctx context.Context, args []string) string {
	if len(args) == 0 || len(args) > 2 {
		return "Usage: /risk TICKER [DOLLARS]"
	}
	ticker := strings.ToUpper(args[0])
	dollars := s.riskDollars
	if len(args) == 2 {
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Sprintf("Invalid dollar amount %q", args[1])
		}
		dollars = v
	}
	res, err := s.risk.Analyze(ctx, ticker, dollars)
	if err != nil {
		return notifier.FormatError("risk "+ticker, err)
	}
	return notifier.FormatRiskReport(res)
}

func (s *Scheduler) trySend(text string) {
	if err := s.sender.SendWithRetry(s.ctx, text, sendRetries); err != nil {
		s.logger.Error("send notification failed", zap.Error(err))
	}
}
