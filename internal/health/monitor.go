// Package health periodically checks that the database answers and keeps a
// snapshot for the status endpoint.
package health

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Pinger is the part of a connection pool the monitor watches.
type Pinger interface {
	Ping(ctx context.Context) error
	Stats() sql.DBStats
}

// State summarises the last check.
type State string

const (
	StateUnknown  State = "unknown"
	StateOK       State = "ok"
	StateDegraded State = "degraded"
)

// Status is a point-in-time snapshot of database health.
type Status struct {
	State               State     `json:"status"`
	CheckedAt           time.Time `json:"checked_at,omitzero"`
	Latency             string    `json:"latency,omitempty"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Checks              int64     `json:"checks"`
	OpenConnections     int       `json:"open_connections"`
	InUse               int       `json:"in_use"`
	Idle                int       `json:"idle"`
	WaitCount           int64     `json:"wait_count"`
	Uptime              string    `json:"uptime"`
}

// DefaultCheckTimeout bounds a single ping.
const DefaultCheckTimeout = 5 * time.Second

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Monitor runs a ping on a cron schedule.
type Monitor struct {
	pinger   Pinger
	schedule cron.Schedule
	cron     *cron.Cron
	timeout  time.Duration
	logger   *zap.Logger
	started  time.Time

	mu     sync.RWMutex
	status Status
}

// NewMonitor validates schedule, a cron expression with optional seconds or
// a descriptor such as "@every 30s".
func NewMonitor(pinger Pinger, schedule string, logger *zap.Logger) (*Monitor, error) {
	sched, err := parser.Parse(schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid health check schedule %q: %w", schedule, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger.Sugar()}
	return &Monitor{
		pinger:   pinger,
		schedule: sched,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		timeout: DefaultCheckTimeout,
		logger:  logger,
		started: time.Now(),
		status:  Status{State: StateUnknown},
	}, nil
}

// Start runs a first check and then schedules the rest.
func (m *Monitor) Start() {
	m.Check(context.Background())
	m.cron.Schedule(m.schedule, cron.FuncJob(func() { m.Check(context.Background()) }))
	m.cron.Start()
	m.logger.Info("health monitor started")
}

// Stop halts the schedule and waits for a running check to finish.
func (m *Monitor) Stop() {
	<-m.cron.Stop().Done()
	m.logger.Info("health monitor stopped")
}

// Check pings the database once and records the result.
func (m *Monitor) Check(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	err := m.pinger.Ping(ctx)
	latency := time.Since(start)
	stats := m.pinger.Stats()

	m.mu.Lock()
	prev := m.status.State
	s := m.status
	s.CheckedAt = start.UTC()
	s.Latency = latency.String()
	s.Checks++
	s.OpenConnections = stats.OpenConnections
	s.InUse = stats.InUse
	s.Idle = stats.Idle
	s.WaitCount = stats.WaitCount
	if err != nil {
		s.State = StateDegraded
		s.LastError = err.Error()
		s.ConsecutiveFailures++
	} else {
		s.State = StateOK
		s.LastError = ""
		s.ConsecutiveFailures = 0
	}
	m.status = s
	m.mu.Unlock()

	switch {
	case err != nil && prev != StateDegraded:
		m.logger.Error("database health check failed", zap.Error(err))
	case err != nil:
		m.logger.Debug("database still unhealthy", zap.Int("consecutive_failures", s.ConsecutiveFailures), zap.Error(err))
	case prev == StateDegraded:
		m.logger.Info("database recovered", zap.Duration("latency", latency))
	}
	return m.withUptime(s)
}

// Status returns the latest snapshot.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.withUptime(m.status)
}

func (m *Monitor) withUptime(s Status) Status {
	s.Uptime = time.Since(m.started).Round(time.Second).String()
	return s
}

// cronLogger routes cron's own messages into zap.
type cronLogger struct {
	*zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.Errorw(msg, append(keysAndValues, "error", err)...)
}
