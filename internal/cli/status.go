package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show state-directory contents and recent run history",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	app := newApp()
	defer app.Close()

	names, err := app.Store().List("*.json")
	if err != nil {
		slog.Error("Failed to list state directory", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "STATE FILE")
	for _, name := range names {
		_, _ = fmt.Fprintln(w, name)
	}
	_ = w.Flush()

	ledger := app.Ledger()
	if ledger == nil {
		return
	}

	records, err := ledger.List(context.Background(), 20)
	if err != nil {
		slog.Error("Failed to query run ledger", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "RUN\tGEN\tPHASE\tPROCESSED\tACCEPTED\tSTARTED")
	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%d\t%s\n",
			r.RunID, r.Generation, r.Phase, r.Processed, r.Accepted,
			r.StartedAt.Format("2006-01-02 15:04:05"))
	}
	_ = w.Flush()
}
