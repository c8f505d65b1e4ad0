package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"trade-journal/internal/analytics"
	"trade-journal/internal/functions"
	"trade-journal/internal/journal"
)

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import trades from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			out := cmd.OutOrStdout()
			report, err := app.Service.ImportCSV(cmd.Context(), app.User(), f)
			if report != nil {
				printImportReport(out, report)
			}
			return err
		},
	}
}

func printImportReport(w io.Writer, r *journal.ImportReport) {
	fmt.Fprintf(w, "Imported: %d  Failed: %d  Skipped (missing symbol/entry_price): %d\n", r.Imported, r.Failed, r.Dropped)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  line %d (%s): %s\n", e.Line, e.Trade.Symbol, e.Message)
	}
	if r.DateFormatHint != "" {
		fmt.Fprintf(w, "Hint: %s\n", r.DateFormatHint)
	}
}

// outputFile opens path for writing, or returns stdout when path is empty.
func outputFile(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func newExportCmd(app *App) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all trades as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, closeFn, err := outputFile(cmd, path)
			if err != nil {
				return err
			}
			if err := app.Service.ExportCSV(cmd.Context(), app.User(), w); err != nil {
				_ = closeFn()
				return err
			}
			return closeFn()
		},
	}
	cmd.Flags().StringVarP(&path, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func newTemplateCmd(app *App) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write a blank CSV import template",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, closeFn, err := outputFile(cmd, path)
			if err != nil {
				return err
			}
			if err := app.Service.WriteTemplate(w); err != nil {
				_ = closeFn()
				return err
			}
			return closeFn()
		},
	}
	cmd.Flags().StringVarP(&path, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func newStatsCmd(app *App) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show journal performance metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := app.Service.Statistics(cmd.Context(), app.User())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			printSummary(out, summary)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func printSummary(w io.Writer, s analytics.Summary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Trades\t%d (%d completed)\n", s.TotalTrades, s.CompletedTrades)
	fmt.Fprintf(tw, "Total P&L\t%.2f\n", s.TotalPnL)
	fmt.Fprintf(tw, "Profit / Loss\t%.2f / %.2f\n", s.TotalProfit, s.TotalLoss)
	fmt.Fprintf(tw, "Win rate\t%.1f%%\n", s.WinRate*100)
	fmt.Fprintf(tw, "Profit factor\t%.2f\n", s.ProfitFactor)
	fmt.Fprintf(tw, "Expectancy\t%.2f\n", s.Expectancy)
	fmt.Fprintf(tw, "Sharpe ratio\t%.2f\n", s.SharpeRatio)
	fmt.Fprintf(tw, "Max drawdown\t%.2f%%\n", s.MaxDrawdown)
	fmt.Fprintf(tw, "Longest streaks\t%d wins / %d losses\n", s.LongestWinStreak, s.LongestLossStreak)
	fmt.Fprintf(tw, "Avg R:R\t%.2f planned / %.2f actual\n", s.RiskReward.Planned, s.RiskReward.Actual)
	fmt.Fprintf(tw, "Consistency\t%s\n", s.ConsistencyScore)
	_ = tw.Flush()
}

func newAnalyzeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Request AI commentary on recent trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := app.Service.Analyze(cmd.Context(), app.User())
			if errors.Is(err, journal.ErrNoSubscription) {
				return fmt.Errorf("%w: run `journal activate` first", err)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, report.Analysis)
			fmt.Fprintf(out, "\n(%d trades analyzed, %d credits left)\n", report.TradeCount, report.CreditsRemaining)
			return nil
		},
	}
}

func newActivateCmd(app *App) *cobra.Command {
	var req functions.ActivationRequest
	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Activate a subscription after payment",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.UserID = app.User()
			sub, err := app.Service.ActivateSubscription(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Plan %q active with %d credits\n", sub.Plan, sub.Credits)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Plan, "plan", "basic", "plan name")
	cmd.Flags().StringVar(&req.PaymentRef, "payment-id", "", "payment reference from checkout")
	cmd.Flags().StringVar(&req.Signature, "signature", "", "payment signature")
	_ = cmd.MarkFlagRequired("payment-id")
	return cmd
}
