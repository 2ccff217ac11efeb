package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hmalhotra-labs/mindloop-audio/config"
	"github.com/hmalhotra-labs/mindloop-audio/internal/logger"
)

var (
	cfgPaths []string
	cfg      config.Config
)

var rootCmd = &cobra.Command{
	Use:   "mindloop-audio",
	Short: "Ambient sound engine: mix, cache and download looping sounds",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPaths...)
		if err != nil {
			return err
		}
		logger.Init(logger.Config{
			Level:      logger.Level(cfg.Log.Level),
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
			Console:    cfg.Log.Console,
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&cfgPaths, "config", "c",
		nil, "config file (TOML); repeatable, later files win")
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
