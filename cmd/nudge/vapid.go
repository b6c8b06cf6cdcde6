package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/dukerupert/nudge/internal/push"
)

func newVAPIDKeysCommand() *cli.Command {
	return &cli.Command{
		Name:  "vapid-keys",
		Usage: "Generate a VAPID key pair for Web Push",
		Action: func(_ context.Context, _ *cli.Command) error {
			pub, priv, err := push.GenerateVAPIDKeys()
			if err != nil {
				return err
			}
			fmt.Printf("NUDGE_VAPID_PUBLIC_KEY=%s\n", pub)
			fmt.Printf("NUDGE_VAPID_PRIVATE_KEY=%s\n", priv)
			return nil
		},
	}
}
