// Package sweep emails task and event reminders on a cron schedule. Each
// item is emailed at most once: the store's reminder flag is set only after
// a confirmed send.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/dukerupert/nudge/internal/email"
	"github.com/dukerupert/nudge/internal/store"
)

const (
	DefaultTaskSchedule  = "0 * * * *"
	DefaultEventSchedule = "*/30 * * * *"

	// TaskHorizon is how far past now the task sweep looks.
	TaskHorizon = 24 * time.Hour
	// EventHorizon is how far past now the event sweep looks.
	EventHorizon = 2 * time.Hour

	DefaultTimeout     = 10 * time.Minute
	DefaultSendTimeout = 30 * time.Second
)

type Mailer interface {
	Configured() bool
	Send(ctx context.Context, msg email.Message) error
}

type TaskSource interface {
	ListDueForReminder(from, to time.Time) ([]store.DueTask, error)
	MarkReminderSent(id string) error
}

type EventSource interface {
	ListDueForReminder(from, to time.Time) ([]store.DueEvent, error)
	MarkReminderSent(id string) error
}

type Config struct {
	TaskSchedule  string
	EventSchedule string
	// RatePerSecond caps outgoing mail; zero means unlimited.
	RatePerSecond float64
	Location      *time.Location
	// Timeout bounds one scheduled run; SendTimeout bounds one email.
	Timeout     time.Duration
	SendTimeout time.Duration
}

// Result summarizes one sweep.
type Result struct {
	Matched int
	Sent    int
	Failed  int
}

type Sweeper struct {
	tasks   TaskSource
	events  EventSource
	mailer  Mailer
	cfg     Config
	limiter *rate.Limiter
	now     func() time.Time
	logger  *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

type Option func(*Sweeper)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sweeper) { s.logger = l }
}

func New(tasks TaskSource, events EventSource, mailer Mailer, cfg Config, opts ...Option) *Sweeper {
	if cfg.TaskSchedule == "" {
		cfg.TaskSchedule = DefaultTaskSchedule
	}
	if cfg.EventSchedule == "" {
		cfg.EventSchedule = DefaultEventSchedule
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	s := &Sweeper{
		tasks:   tasks,
		events:  events,
		mailer:  mailer,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "sweep")
	return s
}

// Start schedules both sweeps. When email is not configured nothing is
// scheduled and Start reports false.
func (s *Sweeper) Start() (bool, error) {
	if !s.mailer.Configured() {
		s.logger.Info("email not configured, reminder emails disabled")
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return true, nil
	}

	cl := cronLogger{s.logger}
	c := cron.New(
		cron.WithLocation(s.cfg.Location),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if _, err := c.AddFunc(s.cfg.TaskSchedule, func() { s.runScheduled("tasks", s.SweepTasks) }); err != nil {
		return false, fmt.Errorf("schedule task sweep %q: %w", s.cfg.TaskSchedule, err)
	}
	if _, err := c.AddFunc(s.cfg.EventSchedule, func() { s.runScheduled("events", s.SweepEvents) }); err != nil {
		return false, fmt.Errorf("schedule event sweep %q: %w", s.cfg.EventSchedule, err)
	}

	c.Start()
	s.cron = c
	s.logger.Info("reminder emails scheduled", "tasks", s.cfg.TaskSchedule, "events", s.cfg.EventSchedule)
	return true, nil
}

// Stop removes the schedules and waits for a running sweep, bounded by ctx.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sweeper) scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return 0
	}
	return len(s.cron.Entries())
}

func (s *Sweeper) runScheduled(kind string, sweep func(context.Context) (Result, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	res, err := sweep(ctx)
	if err != nil {
		s.logger.Error("sweep failed", "kind", kind, "error", err)
		return
	}
	s.logger.Info("sweep complete", "kind", kind, "matched", res.Matched, "sent", res.Sent, "failed", res.Failed)
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// SweepTasks emails every open task due between the start of today and 24
// hours from now whose reminder has not been sent.
func (s *Sweeper) SweepTasks(ctx context.Context) (Result, error) {
	now := s.now()
	due, err := s.tasks.ListDueForReminder(startOfDay(now, s.cfg.Location), now.Add(TaskHorizon))
	if err != nil {
		return Result{}, fmt.Errorf("list due tasks: %w", err)
	}

	res := Result{Matched: len(due)}
	for _, d := range due {
		msg, err := taskMessage(d, s.cfg.Location)
		if err != nil {
			s.logger.Error("compose task reminder", "task_id", d.Task.ID, "error", err)
			res.Failed++
			continue
		}
		if !s.deliver(ctx, msg, "task", d.Task.ID) {
			res.Failed++
			continue
		}
		res.Sent++
		if err := s.tasks.MarkReminderSent(d.Task.ID); err != nil {
			s.logger.Error("mark task reminder sent", "task_id", d.Task.ID, "error", err)
		}
	}
	return res, ctx.Err()
}

// SweepEvents emails every event starting within the next two hours whose
// reminder has not been sent.
func (s *Sweeper) SweepEvents(ctx context.Context) (Result, error) {
	now := s.now()
	due, err := s.events.ListDueForReminder(now, now.Add(EventHorizon))
	if err != nil {
		return Result{}, fmt.Errorf("list due events: %w", err)
	}

	res := Result{Matched: len(due)}
	for _, d := range due {
		msg, err := eventMessage(d, s.cfg.Location, now)
		if err != nil {
			s.logger.Error("compose event reminder", "event_id", d.Event.ID, "error", err)
			res.Failed++
			continue
		}
		if !s.deliver(ctx, msg, "event", d.Event.ID) {
			res.Failed++
			continue
		}
		res.Sent++
		if err := s.events.MarkReminderSent(d.Event.ID); err != nil {
			s.logger.Error("mark event reminder sent", "event_id", d.Event.ID, "error", err)
		}
	}
	return res, ctx.Err()
}

// deliver paces and sends one message. A failure is logged and reported so
// the sweep can move on to the next item.
func (s *Sweeper) deliver(ctx context.Context, msg email.Message, kind, id string) bool {
	if err := s.limiter.Wait(ctx); err != nil {
		s.logger.Warn("send reminder", "kind", kind, "id", id, "error", err)
		return false
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()
	if err := s.mailer.Send(sendCtx, msg); err != nil {
		s.logger.Warn("send reminder", "kind", kind, "id", id, "error", err)
		return false
	}
	return true
}

// cronLogger adapts slog to cron's logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
