package main

import (
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the AI service is running and the model is installed",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	ai, err := newAIClient(cfg, logger)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if !ai.IsRunning(ctx) {
		cmd.Printf("AI service (%s) at %s is not running\n", cfg.AI.Provider, cfg.AI.BaseURL)
		return errServiceDown
	}
	ok, err := ai.ModelExists(ctx)
	if err != nil {
		return err
	}
	if !ok {
		cmd.Printf("Model %s is not installed\n", cfg.AI.Model)
		return errServiceDown
	}
	cmd.Printf("AI service OK: %s %s\n", cfg.AI.Provider, cfg.AI.Model)
	return nil
}
