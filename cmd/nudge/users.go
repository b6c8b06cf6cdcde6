package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dukerupert/nudge/internal/auth"
	"github.com/dukerupert/nudge/internal/store"
)

func newUsersCommand() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "Manage reminder recipients",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Create a user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "password", Required: true, Sources: cli.EnvVars("NUDGE_USER_PASSWORD")},
				},
				Action: runUsersAdd,
			},
			{
				Name:  "token",
				Usage: "Print a signed API token for a user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
				},
				Action: runUsersToken,
			},
		},
	}
}

func runUsersAdd(_ context.Context, cmd *cli.Command) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	email := strings.ToLower(strings.TrimSpace(cmd.String("email")))
	u, err := store.NewUserStore(db).Create(email, strings.TrimSpace(cmd.String("name")), cmd.String("password"))
	if err != nil {
		return err
	}

	fmt.Printf("Created user %d <%s>.\n", u.ID, u.Email)
	return nil
}

func runUsersToken(_ context.Context, cmd *cli.Command) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		return errors.New("jwt_secret is required (set NUDGE_JWT_SECRET)")
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	email := strings.ToLower(strings.TrimSpace(cmd.String("email")))
	u, err := store.NewUserStore(db).GetByEmail(email)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("no user with email %s", email)
	}

	token, err := auth.NewVerifier(cfg.JWTSecret).Issue(u.ID, u.Email, cmd.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
