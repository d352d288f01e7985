package main

import (
	"errors"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Only download PDF attachments into the working folder",
	RunE:  runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, _ []string) error {
	if !cfg.Pipeline.DownloadInvoices {
		return errors.New("download_invoices is disabled")
	}
	ctx := cmd.Context()
	a, err := buildApp(ctx, cfg, logger, appOptions{download: true, in: cmd.InOrStdin(), out: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer a.close()

	stats, err := a.processor.Fetch(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Found %d message(s): %d downloaded, %d already present, %d without PDF, %d failed\n",
		stats.Found, stats.Downloaded, stats.Skipped, stats.NoPDF, stats.Failed)
	return nil
}
