package cli

import (
	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <state-file>",
	Short: "Resume a healed run from a heal-state file",
	Args:  cobra.ExactArgs(1),
	Run:   runResume,
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) {
	app := newApp()
	defer app.Close()

	ctx, cancel := signalContext()
	defer cancel()
	app.StartHealthServer(ctx)

	report, err := app.Resume(ctx, args[0])
	finishRun(report, err)
}
