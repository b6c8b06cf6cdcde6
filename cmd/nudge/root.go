package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/dukerupert/nudge/internal/config"
	"github.com/dukerupert/nudge/internal/database"
	"github.com/dukerupert/nudge/internal/logging"
)

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "nudge",
		Usage: "Task and event reminder service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   "nudge.yaml",
				Sources: cli.EnvVars("NUDGE_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override the configured log level",
			},
		},
		Commands: []*cli.Command{
			newServeCommand(),
			newSweepCommand(),
			newRemindersCommand(),
			newUsersCommand(),
			newVAPIDKeysCommand(),
		},
	}
}

// loadConfig reads the config named by the root flags and sets up logging.
func loadConfig(cmd *cli.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	return cfg, logging.Setup(cfg.LogLevel, cfg.LogFormat), nil
}

func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}
