// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the marginalia CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/marginalia/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// appLog is configured from --log-level and --log-format before any command runs.
var appLog = logger.Discard()

// rootCmd is the base command for the marginalia CLI.
var rootCmd = &cobra.Command{
	Use:   "marginalia",
	Short: "Render reading annotations through user templates",
	Long: `marginalia exports highlights, notes and tags from a reading library into
plain text files. Records are normalized, filtered by query, rendered through
user-authored templates and written into a chosen directory layout.

Use "render" to produce files and "templates" to inspect a templates directory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		appLog = logger.New(logger.Config{
			Writer: os.Stderr,
			Format: viper.GetString("log.format"),
			Level:  logger.ParseLevel(viper.GetString("log.level")),
		})
		slog.SetDefault(appLog)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./marginalia.yaml or ~/.config/marginalia/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", logger.FormatPretty, "log format: pretty or json")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("marginalia")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "marginalia"))
		}
	}

	viper.SetEnvPrefix("MARGINALIA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
