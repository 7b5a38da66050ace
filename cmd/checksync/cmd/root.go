package cmd

import (
	"fmt"
	"os"
	"strings"

	"wms-sap-sync/cmd/checksync/config"
	"wms-sap-sync/pkg/errors"
	"wms-sap-sync/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	verbose   bool
	configErr error
	version   = "dev"
	commit    = "unknown"
	date      = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "checksync",
	Short: "WMS vs SAP stock sync check",
	Long: `Checksync compares warehouse (WMS) stock with SAP stock and writes a
workbook with two sheets: NO_PO, stock per material, and WITH_PO, blocked
stock per item and purchase order.

Examples:
  checksync reconcile
  checksync reconcile --wms-file WMS.xlsx --sap-file SAP.xlsx --po-file 036.xls
  checksync reconcile --output-format json --output-file check.json
  checksync runs --history-db runs.db
  checksync serve --history-db runs.db --addr :8080`,
	Version:           getVersionString(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

// Execute runs the command tree and returns the process exit code
func Execute() int {
	err := rootCmd.Execute()
	return NewCLIErrorHandler(os.Stderr).HandleError(err)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text, json")

	// History flags are shared by reconcile, runs and serve
	rootCmd.PersistentFlags().String(config.KeyHistoryDB, "", "run history database (SQLite file or PostgreSQL DSN)")
	rootCmd.PersistentFlags().String(config.KeyHistoryDriver, "sqlite", "run history driver: sqlite, postgres")

	viper.BindPFlag(config.KeyVerbose, rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag(config.KeyLogFormat, rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag(config.KeyHistoryDB, rootCmd.PersistentFlags().Lookup(config.KeyHistoryDB))
	viper.BindPFlag(config.KeyHistoryDriver, rootCmd.PersistentFlags().Lookup(config.KeyHistoryDriver))
}

// initConfig reads the .env file, the config file and CHECKSYNC_* variables.
func initConfig() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		configErr = errors.ConfigurationError(errors.CodeInvalidConfig, ".env", ".env", err)
		return
	}

	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			configErr = errors.ConfigurationError(errors.CodeInvalidConfig, "config", cfgFile, err)
			return
		}
	}

	viper.SetEnvPrefix("CHECKSYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// setupLogging installs the global logger once configuration is known
func setupLogging(cmd *cobra.Command, args []string) error {
	if configErr != nil {
		return configErr
	}

	logConfig, err := config.CreateLoggerConfig(viper.GetViper())
	if err != nil {
		return err
	}
	log, err := logger.NewLogger(logConfig)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, config.KeyLogLevel, logConfig.Level, err)
	}
	logger.SetGlobalLogger(log)

	if cfgFile != "" {
		log.WithField("config", viper.ConfigFileUsed()).Debug("Using config file")
	}
	return nil
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "checksync %s\n", getVersionString())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
