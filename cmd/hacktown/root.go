package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"hacktown/internal/config"
	appLog "hacktown/internal/log"
)

const version = "0.1.0"

type rootFlags struct {
	configPath string
	debug      bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:           "hacktown",
		Short:         "Browse the Hacktown programme and build a personal agenda",
		Long:          "hacktown scrapes the published Hacktown programme spreadsheet, serves a filterable schedule browser and keeps a personal agenda per browser session.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config file (default: <user config dir>/hacktown/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	serve := newServeCmd(flags)
	rootCmd.AddCommand(
		serve,
		newDumpCmd(flags),
		newVersionCmd(),
	)
	// Running the bare binary serves.
	rootCmd.RunE = serve.RunE
	rootCmd.Flags().AddFlagSet(serve.Flags())

	return rootCmd
}

// loadConfig resolves the config path, loads it and applies logging settings.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	path := flags.configPath
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %w", err)
		}
		path = filepath.Join(dir, "hacktown", "config.yaml")
	}

	cfg, err := config.Load(path)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", path)
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := appLog.ParseLevel(cfg.LogLevel)
	if flags.debug {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the hacktown version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "hacktown", version)
			return err
		},
	}
}
