// Command csvstd maps, validates and standardizes CSV files against a
// template definition without running the server.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csvstandard/internal/config"
	"github.com/JonMunkholm/csvstandard/internal/logging"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	logLevel  string
	logFormat string
	charset   string
}

// logger writes to the command's stderr so stdout carries only results.
func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	return logging.New(cmd.ErrOrStderr(), o.logLevel, o.logFormat)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "csvstd",
		Short: "Standardize CSV files against a template",
		Long: "csvstd maps the columns of arbitrary CSV files onto a template's fields, " +
			"validates every row and writes canonical CSV or Parquet output.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", envOr("LOG_FORMAT", "text"), "Log format: text or json")
	cmd.PersistentFlags().StringVar(&opts.charset, "charset", "", "Character set of the input files (default UTF-8)")

	cmd.AddCommand(
		newSuggestCmd(opts),
		newValidateCmd(opts),
		newStandardizeCmd(opts),
	)
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// Load .env file if it exists
	if _, err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
