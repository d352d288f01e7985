package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-analyzer/internal/common"
	"github.com/joseph-ayodele/invoice-analyzer/internal/core"
)

var skipPreflight bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Download, process and summarize the receipts once",
	Long: `Checks the AI service, downloads new PDF attachments (unless
download_invoices is off), processes every PDF in the working folder and
writes the report.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "do not check the AI service before processing")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx, cfg, logger, appOptions{
		download:  true,
		preflight: !skipPreflight,
		in:        cmd.InOrStdin(),
		out:       cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer a.close()

	rep, err := a.processor.Run(ctx)
	if errors.Is(err, common.ErrNoDocuments) {
		cmd.Printf("No PDF files found in %s\n", cfg.Pipeline.WorkingFolder)
		return nil
	}
	printReport(cmd, rep)
	return err
}

func printReport(cmd *cobra.Command, rep *core.RunReport) {
	if rep == nil {
		return
	}
	if rep.Download != nil {
		cmd.Printf("Downloaded %d new invoice(s) (%d already present)\n", rep.Download.Downloaded, rep.Download.Skipped)
	}
	st := rep.Output.Summary.Stats
	cmd.Printf("Processed %d/%d document(s), %d item(s), %d AI call(s)\n", st.Processed, st.Documents, st.Items, st.AICalls)
	if rep.Output.NarrativeErr != nil {
		cmd.Println(rep.Output.Narrative)
	}
	if rep.ReportLocation == "" {
		return
	}
	cmd.Printf("Report written to %s\n", rep.ReportLocation)
	if cfg.Report.Open {
		if err := openInBrowser(rep.ReportLocation); err != nil {
			logger.Warn("report.open.failed", "path", rep.ReportLocation, "error", err)
		}
	}
}
