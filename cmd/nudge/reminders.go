package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/dukerupert/nudge/internal/store"
)

func newRemindersCommand() *cli.Command {
	return &cli.Command{
		Name:  "reminders",
		Usage: "Maintain reminder delivery state",
		Commands: []*cli.Command{
			{
				Name:  "reset",
				Usage: "Clear the sent flag so the next sweep emails the item again",
				Commands: []*cli.Command{
					{
						Name:      "task",
						ArgsUsage: "<task_id>",
						Action:    runReminderReset("task"),
					},
					{
						Name:      "event",
						ArgsUsage: "<event_id>",
						Action:    runReminderReset("event"),
					},
				},
			},
		},
	}
}

func runReminderReset(kind string) cli.ActionFunc {
	return func(_ context.Context, cmd *cli.Command) error {
		id := cmd.Args().First()
		if id == "" {
			return fmt.Errorf("usage: nudge reminders reset %s <id>", kind)
		}

		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		var changed int64
		if kind == "task" {
			changed, err = store.NewTaskStore(db).ResetReminder(id)
		} else {
			changed, err = store.NewEventStore(db).ResetReminder(id)
		}
		if err != nil {
			return err
		}
		if changed == 0 {
			return fmt.Errorf("%s %s not found", kind, id)
		}

		fmt.Printf("Reminder reset for %s %s.\n", kind, id)
		return nil
	}
}
