package cli

import (
	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the batch-oriented pipeline over a fresh work list",
	Run:   runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) {
	app := newApp()
	defer app.Close()

	ctx, cancel := signalContext()
	defer cancel()
	app.StartHealthServer(ctx)

	report, err := app.RunBatch(ctx)
	finishRun(report, err)
}
