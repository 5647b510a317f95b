// Package cmd implements the soulrec command tree.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"soulrec/internal/config"
	"soulrec/internal/nicotine"
)

var (
	cfg     *config.Config
	logger  *slog.Logger
	cfgPath string

	rootCmd = &cobra.Command{
		Use:           "soulrec",
		Short:         "Download music recommendations over Soulseek",
		Long:          "soulrec fetches recommendation playlists from Last.fm and ListenBrainz\nand downloads their tracks through a Nicotine++ web API backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if cfgPath != "" {
				cfg, err = config.Load(cfgPath)
			} else {
				cfg, err = config.Load()
			}
			if err != nil {
				return err
			}
			logger = newLogger(cfg.LogLevel, cfg.LogFormat)
			slog.SetDefault(logger)
			return nil
		},
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file")
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func backendClient() *nicotine.Client {
	return nicotine.NewClient(
		cfg.Backend.URL,
		time.Duration(cfg.Backend.TimeoutSeconds)*time.Second,
		logger,
	)
}
