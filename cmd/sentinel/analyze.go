package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"SMCSentinel/internal/model"
	"SMCSentinel/internal/notifier"
	"SMCSentinel/internal/recorder"
	"SMCSentinel/internal/scheduler"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [SYMBOL...]",
		Short: "Analyze symbols once and print the bias reports",
		RunE:  runAnalyze,
	}
	cmd.Flags().Bool("send", false, "Also deliver the reports through the configured notifier")
	cmd.Flags().Bool("record", false, "Store the results in the bias history")
	cmd.Flags().StringSlice("timeframes", nil, "Override the configured timeframes (e.g. D1,H4,H1)")
	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	symbols := cfg.Symbols
	if len(args) > 0 {
		symbols = make([]string, len(args))
		for i, a := range args {
			symbols[i] = strings.ToUpper(a)
		}
	}
	if tfs, _ := cmd.Flags().GetStringSlice("timeframes"); len(tfs) > 0 {
		cfg.Timeframes = cfg.Timeframes[:0]
		for _, s := range tfs {
			tf, err := model.ParseTimeframe(s)
			if err != nil {
				return err
			}
			cfg.Timeframes = append(cfg.Timeframes, tf)
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	col := newCollector(cfg)

	record, _ := cmd.Flags().GetBool("record")
	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if record {
		rec = newRecorder(cfg)
	}
	defer rec.Close()

	var n notifier.Notifier = notifier.NewLogNotifier()
	send, _ := cmd.Flags().GetBool("send")
	if send {
		if n, _, err = newNotifier(cfg); err != nil {
			return err
		}
	}

	sched := scheduler.NewScheduler(ctx, col, n, rec, nil, scheduler.Settings{
		Symbols:  symbols,
		Analysis: cfg.Analysis,
		Workers:  cfg.Workers,
	})
	results, err := sched.AnalyzeSymbols(ctx, symbols)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, a := range results {
		report := notifier.FormatBiasReport(a)
		fmt.Fprintln(out, report)
		if send {
			if err := n.Send(ctx, report); err != nil {
				return err
			}
		}
	}
	return nil
}
