package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-analyzer/internal/common"
)

var (
	configFile string
	envFile    string

	// set by PersistentPreRunE
	cfg    *common.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "invoice-analyzer",
	Short: "Summarize supermarket receipts by month, category and provider",
	Long: `Downloads PDF receipts from Gmail, extracts their line items, classifies
each item by keyword rules with an AI fallback, aggregates the totals and
writes an HTML report with an AI-written executive summary.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadRuntime,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default ./invoice-analyzer.{json,yaml,toml})")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func loadRuntime(cmd *cobra.Command, _ []string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	c, err := common.LoadConfig(configFile)
	if err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c
	logger = newLogger(c.Log, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	logger.Debug("config loaded", "config", c.String())
	return nil
}

func newLogger(lc common.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(lc.Level)}
	if strings.EqualFold(lc.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var errServiceDown = common.NewAppError("AI_UNAVAILABLE", "preflight failed", common.ErrServiceUnavailable)
