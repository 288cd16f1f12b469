package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockme-app/lockme/internal/client"
	"github.com/lockme-app/lockme/internal/config"
	"github.com/lockme-app/lockme/internal/events"
)

var rootCmd = &cobra.Command{
	Use:   "lockme",
	Short: "Turn files into passphrase-protected containers",
	Long: `LockMe encrypts files into .lockme containers protected by a
passphrase, entirely on this machine. The passphrase is never stored
and cannot be recovered: a lost passphrase means a lost file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initApp()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app != nil {
			_ = app.Close()
		}
	},
}

var (
	cfgPath    string
	logLevel   string
	jsonOutput bool

	cfg    *config.Config
	logger *events.Logger
	app    *client.Client
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "",
		"Config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Machine-readable JSON output")
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		return err
	}
	return nil
}

// initApp loads config and wires the client.
func initApp() error {
	var err error

	cfg, err = config.NewLoader(cfgPath).Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	logger, err = events.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	events.SetDefault(logger)

	app, err = client.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	return nil
}
