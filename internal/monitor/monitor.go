// Package monitor runs the in-process reminder loop for one user session.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dukerupert/nudge/internal/model"
	"github.com/dukerupert/nudge/internal/reminder"
)

const (
	DefaultInterval = 30 * time.Second
	deliverTimeout  = 10 * time.Second
)

// Alerter shows an interactive alert to the monitored user.
type Alerter interface {
	Deliver(ctx context.Context, title, body string) error
}

type snapshot struct {
	tasks  []model.Task
	events []model.CalendarEvent
}

// Monitor periodically classifies a snapshot of tasks and events and alerts
// each (item, bucket) pair at most once until ClearHistory is called.
type Monitor struct {
	alerter  Alerter
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	// tickMu keeps the immediate pass and timer passes from overlapping.
	tickMu   sync.Mutex
	snapshot atomic.Pointer[snapshot]

	firedMu sync.Mutex
	fired   map[reminder.Key]struct{}

	loops atomic.Int32
}

type Option func(*Monitor)

func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

func New(alerter Alerter, opts ...Option) *Monitor {
	m := &Monitor{
		alerter:  alerter,
		interval: DefaultInterval,
		now:      time.Now,
		logger:   slog.Default(),
		fired:    make(map[reminder.Key]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "monitor")
	return m
}

// StartMonitoring replaces the snapshot, stops any running loop, runs one
// pass immediately and then starts a fresh ticker. Calling it repeatedly
// leaves exactly one loop running.
func (m *Monitor) StartMonitoring(tasks []model.Task, events []model.CalendarEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()
	m.snapshot.Store(&snapshot{tasks: tasks, events: events})

	ctx, cancel := context.WithCancel(context.Background())
	m.tick(ctx)

	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	m.loops.Add(1)
	go m.run(ctx, done)
}

// StopMonitoring cancels the ticker and waits for an in-flight pass to
// finish. It is safe to call when nothing is running.
func (m *Monitor) StopMonitoring() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Monitor) stopLocked() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.cancel = nil
	m.done = nil
}

// ClearHistory forgets every reminder sent so far.
func (m *Monitor) ClearHistory() {
	m.firedMu.Lock()
	m.fired = make(map[reminder.Key]struct{})
	m.firedMu.Unlock()
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer m.loops.Add(-1)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Both cases may be ready at once; never tick after a stop.
			if ctx.Err() != nil {
				return
			}
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	m.tickMu.Lock()
	defer m.tickMu.Unlock()

	snap := m.snapshot.Load()
	if snap == nil {
		return
	}
	now := m.now()

	for _, task := range snap.tasks {
		d, err := reminder.ClassifyTask(now, task)
		if err != nil {
			m.logger.Debug("skip task", "id", task.ID, "error", err)
			continue
		}
		if !d.Fire {
			continue
		}
		a := reminder.DescribeTask(now, d, task)
		m.alert(ctx, d, a)
	}

	for _, event := range snap.events {
		d, err := reminder.ClassifyEvent(now, event)
		if err != nil {
			m.logger.Debug("skip event", "id", event.ID, "error", err)
			continue
		}
		if !d.Fire {
			continue
		}
		a := reminder.DescribeEvent(now, d, event)
		m.alert(ctx, d, a)
	}
}

// alert delivers a fired decision unless its key was already sent. The key
// is recorded only after a successful delivery.
func (m *Monitor) alert(ctx context.Context, d reminder.Decision, a reminder.Alert) {
	if d.Channel != model.ChannelBrowser {
		return
	}
	if m.wasSent(d.Key) {
		return
	}

	// A stop must not interrupt a delivery that already began.
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliverTimeout)
	defer cancel()

	if err := m.alerter.Deliver(dctx, a.Title, a.Body); err != nil {
		m.logger.Warn("deliver reminder", "key", d.Key.String(), "error", err)
		return
	}
	m.recordSent(d.Key)
	m.logger.Debug("reminder sent", "key", d.Key.String())
}

func (m *Monitor) wasSent(k reminder.Key) bool {
	m.firedMu.Lock()
	defer m.firedMu.Unlock()
	_, ok := m.fired[k]
	return ok
}

func (m *Monitor) recordSent(k reminder.Key) {
	m.firedMu.Lock()
	m.fired[k] = struct{}{}
	m.firedMu.Unlock()
}
