package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"BreakoutScanner/internal/config"
	"BreakoutScanner/internal/model"
	"BreakoutScanner/internal/notifier"
	"BreakoutScanner/internal/report"
	"BreakoutScanner/internal/scheduler"
	"BreakoutScanner/internal/session"
)

type rootFlags struct {
	configPath string
	allowStale bool
	plain      bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "scanner",
		Short:         "Daily breakout scanner and position sizer",
		Long:          "Ranks a ticker list by SMA trend score, flags consolidation breakouts and sizes positions from a dollar risk.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", config.PathFromEnv(), "configuration file path")
	root.PersistentFlags().BoolVar(&flags.allowStale, "allow-stale", false, "use stored bars when the refresh fails")
	root.PersistentFlags().BoolVar(&flags.plain, "plain", false, "disable colored output")

	root.AddCommand(newScanCmd(flags))
	root.AddCommand(newRiskCmd(flags))
	root.AddCommand(newRefreshCmd(flags))
	root.AddCommand(newSMACmd(flags))
	root.AddCommand(newServeCmd(flags))
	return root
}

func newScanCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Score and rank the configured tickers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{
				configPath: flags.configPath,
				allowStale: flags.allowStale,
				progress: func(done, total int) {
					fmt.Fprintf(cmd.ErrOrStderr(), "\rloading %d/%d", done, total)
					if done == total {
						fmt.Fprintln(cmd.ErrOrStderr())
					}
				},
			})
			if err != nil {
				return err
			}
			defer a.Close()

			a.checkConnection(ctx)
			rows, err := a.scanner.Run(ctx, a.tickers)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.Scan(rows, !flags.plain))
			return nil
		},
	}
}

func newRiskCmd(flags *rootFlags) *cobra.Command {
	var candle float64
	cmd := &cobra.Command{
		Use:   "risk TICKER [DOLLARS]",
		Short: "Size a position from a dollar risk",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{configPath: flags.configPath, allowStale: flags.allowStale})
			if err != nil {
				return err
			}
			defer a.Close()

			ticker := strings.ToUpper(args[0])
			dollars := a.cfg.Analysis.RiskDollars
			if len(args) == 2 {
				if dollars, err = strconv.ParseFloat(args[1], 64); err != nil {
					return fmt.Errorf("invalid dollar amount %q: %w", args[1], err)
				}
			}

			var res *model.RiskResult
			if cmd.Flags().Changed("candle") {
				res, err = a.analyzer.AnalyzeWithCandle(ctx, ticker, dollars, candle)
			} else {
				res, err = a.analyzer.Analyze(ctx, ticker, dollars)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, report.RiskHeader(res))
			if notice := report.SourceNotice(res); notice != "" {
				fmt.Fprintln(out, notice)
			}
			fmt.Fprintln(out, report.Risk(res, !flags.plain))
			return nil
		},
	}
	cmd.Flags().Float64Var(&candle, "candle", 0, "use this signed risk candle instead of the gap / first candle")
	return cmd
}

func newRefreshCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch and store daily bars for every configured ticker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{configPath: flags.configPath})
			if err != nil {
				return err
			}
			defer a.Close()

			series, err := a.cache.Refresh(ctx, a.tickers)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "refreshed %d tickers into %s\n", len(series), a.store.Name())
			return nil
		},
	}
}

func newSMACmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sma TICKER",
		Short: "List SMA 20/50/100/200 and the last day change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{configPath: flags.configPath, allowStale: flags.allowStale})
			if err != nil {
				return err
			}
			defer a.Close()

			d, err := a.scanner.Detail(ctx, strings.ToUpper(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.Detail(d, !flags.plain))
			return nil
		},
	}
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	var runOnStart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduled refresh + scan and answer Telegram commands",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := newApp(ctx, appOptions{configPath: flags.configPath, allowStale: flags.allowStale})
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.cfg.ValidateTelegram(); err != nil {
				return fmt.Errorf("config validation: %w", err)
			}

			tn := notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.DataSource.Proxy, a.log)
			sched := scheduler.NewScheduler(ctx, scheduler.Deps{
				Refresher:   a.cache,
				Ranker:      a.scanner,
				Risk:        a.analyzer,
				Sender:      tn,
				Tickers:     a.tickers,
				RiskDollars: a.cfg.Analysis.RiskDollars,
				Clock:       session.SystemClock,
				Logger:      a.log,
			})
			if err := sched.RegisterAll(a.cfg.Schedule.RefreshCron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			go tn.StartPolling(ctx, sched.HandleCommand)
			a.log.Info("telegram polling started")

			if runOnStart || os.Getenv("RUN_ON_START") == "true" {
				a.log.Info("running daily task on start")
				go sched.RunDailyNow()
			}

			a.log.Info("scanner is running", zap.String("cron", a.cfg.Schedule.RefreshCron), zap.Int("tickers", len(a.tickers)))
			<-ctx.Done()
			a.log.Info("shutdown signal received, stopping")
			return nil
		},
	}
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "run the refresh + scan immediately")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "scanner: %v\n", err)
		stop()
		os.Exit(1)
	}
}
