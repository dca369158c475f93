package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"euvdalert/internal/config"
	"euvdalert/internal/lock"
	"euvdalert/internal/telemetry"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Exit statuses.
const (
	ExitFailure        = 1
	ExitLockContention = 3
)

var exit = os.Exit
var cfgFile string

var (
	cfg      *config.Config
	logger   *slog.Logger
	closeLog = func() error { return nil }
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "euvdalert",
	Short: "EUVD vulnerability feed ingestion and vendor alerts",
	Long: `euvdalert keeps a local snapshot of the ENISA EU Vulnerability Database feed,
filters it with vendor and product keyword rules and sends daily digests,
urgent alerts and monthly summaries to Slack or Discord.`,
	SilenceErrors:      true,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, lock.ErrContention) {
		return ExitLockContention
	}
	return ExitFailure
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().Bool("log", false, "Also write logs to the configured log_file")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	initFetchCmd(rootCmd)
	initNotifyCmd(rootCmd)
	initVendorsCmd(rootCmd)
	initHistoryCmd(rootCmd)
}

// setup loads and validates the configuration and installs the logger.
func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := config.Validate(loaded); err != nil {
		return err
	}
	cfg = loaded

	logFile := ""
	if withLog, _ := cmd.Flags().GetBool("log"); withLog {
		logFile = cfg.LogFile
		if logFile == "" {
			fmt.Fprintln(cmd.ErrOrStderr(), "Warning: --log given but log_file is not configured")
		}
	}
	closeLog = telemetry.InitLogger(cfg.Debug, logFile)
	logger = slog.Default()
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	return closeLog()
}
