// Package session keeps one reminder monitor alive per reachable user.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/nudge/internal/model"
	"github.com/dukerupert/nudge/internal/monitor"
)

type TaskLister interface {
	ListByUser(userID int64) ([]model.Task, error)
}

type EventLister interface {
	ListByUser(userID int64) ([]model.CalendarEvent, error)
}

// AlerterFactory returns the alert sink for one user.
type AlerterFactory func(userID int64) monitor.Alerter

// entry is one user's monitor. A user is held by open sockets (refs) and by
// background monitoring for Web Push; the monitor lives while either holds.
type entry struct {
	// refs and background are guarded by Manager.mu.
	refs       int
	background bool

	// mu orders the start, refreshes and the final stop. It is never taken
	// while waiting on Manager.mu.
	mu     sync.Mutex
	mon    *monitor.Monitor
	err    error
	closed bool
}

func (e *entry) held() bool {
	return e.refs > 0 || e.background
}

func (e *entry) stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.mon != nil {
		e.mon.StopMonitoring()
	}
}

// running returns the live monitor with e.mu held, or nil with e.mu released.
func (e *entry) running() *monitor.Monitor {
	e.mu.Lock()
	if e.closed || e.mon == nil {
		e.mu.Unlock()
		return nil
	}
	return e.mon
}

// Manager owns the per-user monitors. A monitor starts with the user's first
// hold and stops when the last one is released.
type Manager struct {
	tasks    TaskLister
	events   EventLister
	alerters AlerterFactory
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	monitors map[int64]*entry
}

func NewManager(tasks TaskLister, events EventLister, alerters AlerterFactory, interval time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		tasks:    tasks,
		events:   events,
		alerters: alerters,
		interval: interval,
		logger:   logger.With("component", "session"),
		monitors: make(map[int64]*entry),
	}
}

func (m *Manager) load(userID int64) ([]model.Task, []model.CalendarEvent, error) {
	tasks, err := m.tasks.ListByUser(userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load tasks: %w", err)
	}
	events, err := m.events.ListByUser(userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load events: %w", err)
	}
	return tasks, events, nil
}

// Attach adds a socket reference for userID, starting its monitor on the
// first hold.
func (m *Manager) Attach(ctx context.Context, userID int64) error {
	return m.hold(userID, func(e *entry) { e.refs++ })
}

// Detach drops a socket reference. When nothing else holds the user the
// monitor stops and its sent-reminder history goes with it.
func (m *Manager) Detach(userID int64) {
	m.release(userID, func(e *entry) {
		if e.refs > 0 {
			e.refs--
		}
	})
}

// SetBackground turns monitoring without an open socket on or off. It is on
// while the user has Web Push subscriptions. Calling it repeatedly with the
// same value is a no-op.
func (m *Manager) SetBackground(ctx context.Context, userID int64, on bool) error {
	if !on {
		m.release(userID, func(e *entry) { e.background = false })
		return nil
	}

	m.mu.Lock()
	e, ok := m.monitors[userID]
	already := ok && e.background
	m.mu.Unlock()
	if already {
		return nil
	}
	return m.hold(userID, func(e *entry) { e.background = true })
}

// hold applies add to userID's entry, creating and starting the monitor when
// there is none. Callers racing a start wait for it on the entry, not on the
// manager, so one slow user never stalls the others.
func (m *Manager) hold(userID int64, add func(*entry)) error {
	m.mu.Lock()
	e, ok := m.monitors[userID]
	if !ok {
		e = &entry{}
		// Uncontended: e is not yet visible to anyone else.
		e.mu.Lock()
		m.monitors[userID] = e
	}
	add(e)
	m.mu.Unlock()

	if ok {
		e.mu.Lock()
		err := e.err
		e.mu.Unlock()
		return err
	}

	defer e.mu.Unlock()

	tasks, events, err := m.load(userID)
	if err != nil {
		e.err = err
		e.closed = true
		m.mu.Lock()
		if m.monitors[userID] == e {
			delete(m.monitors, userID)
		}
		m.mu.Unlock()
		return err
	}

	e.mon = monitor.New(m.alerters(userID),
		monitor.WithInterval(m.interval),
		monitor.WithLogger(m.logger.With("user_id", userID)),
	)
	e.mon.StartMonitoring(tasks, events)
	m.logger.Debug("monitor started", "user_id", userID)
	return nil
}

func (m *Manager) release(userID int64, drop func(*entry)) {
	m.mu.Lock()
	e, ok := m.monitors[userID]
	if !ok {
		m.mu.Unlock()
		return
	}
	drop(e)
	if e.held() {
		m.mu.Unlock()
		return
	}
	delete(m.monitors, userID)
	m.mu.Unlock()

	e.stop()
	m.logger.Debug("monitor stopped", "user_id", userID)
}

func (m *Manager) lookup(userID int64) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.monitors[userID]
}

// Refresh reloads the user's snapshot after a data change. Users without a
// running monitor are ignored.
func (m *Manager) Refresh(ctx context.Context, userID int64) error {
	e := m.lookup(userID)
	if e == nil {
		return nil
	}
	mon := e.running()
	if mon == nil {
		return nil
	}
	defer e.mu.Unlock()

	tasks, events, err := m.load(userID)
	if err != nil {
		return err
	}
	mon.StartMonitoring(tasks, events)
	return nil
}

// ClearHistory forgets the reminders already shown to userID. It reports
// whether the user had a live monitor.
func (m *Manager) ClearHistory(userID int64) bool {
	e := m.lookup(userID)
	if e == nil {
		return false
	}
	mon := e.running()
	if mon == nil {
		return false
	}
	defer e.mu.Unlock()
	mon.ClearHistory()
	return true
}

// Active returns the number of users with a monitor.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.monitors)
}

// Close stops every monitor.
func (m *Manager) Close() {
	m.mu.Lock()
	all := m.monitors
	m.monitors = make(map[int64]*entry)
	m.mu.Unlock()

	for _, e := range all {
		e.stop()
	}
}
