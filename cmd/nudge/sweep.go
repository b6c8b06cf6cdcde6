package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/dukerupert/nudge/internal/config"
	"github.com/dukerupert/nudge/internal/email"
	"github.com/dukerupert/nudge/internal/store"
	"github.com/dukerupert/nudge/internal/sweep"
)

func newSweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "Run one reminder email sweep now",
		Commands: []*cli.Command{
			{
				Name:   "tasks",
				Usage:  "Email reminders for tasks due today or within 24 hours",
				Action: runSweep("tasks"),
			},
			{
				Name:   "events",
				Usage:  "Email reminders for events starting within 2 hours",
				Action: runSweep("events"),
			},
		},
	}
}

func newSweeper(cfg *config.Config, db *sql.DB, logger *slog.Logger) *sweep.Sweeper {
	mailer := email.NewClient(email.Config{
		Service: cfg.Email.Service,
		User:    cfg.Email.User,
		Pass:    cfg.Email.Pass,
		From:    cfg.Email.From,
	})
	return sweep.New(store.NewTaskStore(db), store.NewEventStore(db), mailer, sweep.Config{
		TaskSchedule:  cfg.Sweep.TaskSchedule,
		EventSchedule: cfg.Sweep.EventSchedule,
		RatePerSecond: cfg.Sweep.RatePerSecond,
		Location:      cfg.Location(),
		Timeout:       cfg.Sweep.Timeout,
	}, sweep.WithLogger(logger))
}

func runSweep(kind string) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if !cfg.EmailConfigured() {
			return errors.New("email is not configured (set EMAIL_SERVICE, EMAIL_USER and EMAIL_PASS)")
		}

		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		sweeper := newSweeper(cfg, db, logger)

		var res sweep.Result
		if kind == "tasks" {
			res, err = sweeper.SweepTasks(ctx)
		} else {
			res, err = sweeper.SweepEvents(ctx)
		}
		if err != nil {
			return fmt.Errorf("sweep %s: %w", kind, err)
		}

		fmt.Printf("%s: matched %d, sent %d, failed %d\n", kind, res.Matched, res.Sent, res.Failed)
		return nil
	}
}
