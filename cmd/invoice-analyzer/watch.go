package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-analyzer/internal/common"
	"github.com/joseph-ayodele/invoice-analyzer/internal/core"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run once, then re-run whenever new PDFs land in the working folder",
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx, cfg, logger, appOptions{download: true, preflight: true, in: cmd.InOrStdin(), out: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer a.close()
	cmd.Printf("Watching %s (Ctrl+C to stop)\n", cfg.Pipeline.WorkingFolder)
	return a.processor.Watch(ctx, cfg.Pipeline.WatchDebounce, func(rep *core.RunReport, err error) {
		switch {
		case errors.Is(err, common.ErrNoDocuments):
			cmd.Printf("No PDF files found in %s\n", cfg.Pipeline.WorkingFolder)
		case err != nil:
			logger.Error("watch.run.failed", "error", err)
			printReport(cmd, rep)
		default:
			printReport(cmd, rep)
		}
	})
}
