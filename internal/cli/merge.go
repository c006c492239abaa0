package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vietddude/sifter/internal/scan/merge"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <run-id>",
	Short: "Merge leftover generation checkpoints for a run into its final output",
	Long: `Checkpoints of healed generations are never cleaned up automatically;
merge unions them into the run's final output file and deletes them.`,
	Args: cobra.ExactArgs(1),
	Run:  runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) {
	app := newApp()
	defer app.Close()

	merged, finalPath, err := merge.New(app.Store()).Merge(args[0])
	if err != nil {
		slog.Error("Merge failed", "run", args[0], "error", err)
		os.Exit(1)
	}

	slog.Info("Merge completed", "run", args[0], "items", len(merged), "final", finalPath)
}
