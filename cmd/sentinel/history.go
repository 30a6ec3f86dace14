package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"SMCSentinel/internal/notifier"
	"SMCSentinel/internal/recorder"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history SYMBOL",
		Short: "Print the stored bias history of a symbol",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistory,
	}
	cmd.Flags().IntP("limit", "n", 10, "Number of records to show")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rec, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
	if err != nil {
		return err
	}
	defer rec.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	symbol := strings.ToUpper(args[0])
	records, err := rec.RecentBias(cmd.Context(), symbol, limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), notifier.FormatHistory(symbol, records))
	return nil
}
