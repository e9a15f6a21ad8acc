package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"aadhaarcli/internal/config"
	"aadhaarcli/internal/infrastructure"
)

// cli holds the state shared by every subcommand once the root pre-run
// has loaded the configuration
type cli struct {
	cfgFile  string
	logLevel string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   config.AppName,
		Short: "Aadhaar enrollment integrity analytics",
		Long: `aadhaarcli loads the enrollment, demographic update and biometric update
datasets, flags anomalous enrollment records, cross-checks the three
sources per district and writes the results as CSV, XLSX and JSON.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.initConfig,
	}

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default: ./aadhaarcli.yaml or ./config.yaml)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	root.AddCommand(analyzeCmd(c))
	root.AddCommand(summaryCmd(c))
	root.AddCommand(runsCmd(c))
	root.AddCommand(versionCmd())

	return root
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := newRootCmd().ExecuteContext(ctx)
	cancel()
	_ = infrastructure.CloseLogFile()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (c *cli) initConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.cfgFile)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Logging.Level = strings.ToLower(c.logLevel)
	}
	c.cfg = cfg

	// Console logs go to stderr so tables on stdout stay clean
	if cfg.Logging.Output == "console" {
		c.logger = infrastructure.NewLogger(cmd.ErrOrStderr(), cfg.Logging.Level)
		slog.SetDefault(c.logger)
		return nil
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	c.logger = logger
	return nil
}
