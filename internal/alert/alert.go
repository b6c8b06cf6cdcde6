// Package alert delivers interactive reminder alerts to a user's browsers.
package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/nudge/internal/model"
	"github.com/dukerupert/nudge/internal/push"
	"github.com/dukerupert/nudge/internal/websocket"
)

// ErrNotDelivered means no channel accepted the alert.
var ErrNotDelivered = errors.New("alert not delivered")

type Socket interface {
	SendToUser(userID int64, msg websocket.Message) int
}

type Pusher interface {
	Configured() bool
	Send(ctx context.Context, sub *model.PushSubscription, payload push.Payload) error
}

type Subscriptions interface {
	ListByUser(userID int64) ([]model.PushSubscription, error)
	DeleteByEndpoint(endpoint string) error
}

// Dispatcher builds per-user alerters over the shared socket hub and push
// service.
type Dispatcher struct {
	socket Socket
	pusher Pusher
	subs   Subscriptions
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher. pusher may be nil when Web Push is not
// set up.
func NewDispatcher(socket Socket, pusher Pusher, subs Subscriptions, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{socket: socket, pusher: pusher, subs: subs, logger: logger.With("component", "alert")}
}

// ForUser returns the alerter for one user.
func (d *Dispatcher) ForUser(userID int64) *User {
	return &User{d: d, userID: userID}
}

// User delivers alerts to one user.
type User struct {
	d      *Dispatcher
	userID int64
}

// Deliver sends the alert to the user's open sockets. Web Push is used only
// when no socket took it, so an open tab never gets the alert twice. Deliver
// succeeds when at least one channel accepted the alert.
func (u *User) Deliver(ctx context.Context, title, body string) error {
	if n := u.d.socket.SendToUser(u.userID, websocket.NewReminder(title, body)); n > 0 {
		return nil
	}

	if u.d.pusher == nil || !u.d.pusher.Configured() {
		return ErrNotDelivered
	}

	subs, err := u.d.subs.ListByUser(u.userID)
	if err != nil {
		return fmt.Errorf("list push subscriptions: %w", err)
	}

	var lastErr error
	delivered := 0
	for i := range subs {
		sub := &subs[i]
		err := u.d.pusher.Send(ctx, sub, push.Payload{Title: title, Body: body, Tag: "reminder"})
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, push.ErrExpired):
			u.d.logger.Info("removing expired push subscription", "user_id", u.userID, "subscription_id", sub.ID)
			if err := u.d.subs.DeleteByEndpoint(sub.Endpoint); err != nil {
				u.d.logger.Error("delete expired subscription", "error", err)
			}
		default:
			lastErr = err
			u.d.logger.Warn("push send", "user_id", u.userID, "subscription_id", sub.ID, "error", err)
		}
	}

	if delivered > 0 {
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("%w: %v", ErrNotDelivered, lastErr)
	}
	return ErrNotDelivered
}
