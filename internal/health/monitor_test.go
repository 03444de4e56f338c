package health

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakePinger struct {
	mu  sync.Mutex
	err error
}

func (p *fakePinger) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *fakePinger) Stats() sql.DBStats {
	return sql.DBStats{OpenConnections: 2, InUse: 1, Idle: 1, WaitCount: 3}
}

func (p *fakePinger) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func TestNewMonitor_InvalidSchedule(t *testing.T) {
	t.Parallel()

	_, err := NewMonitor(&fakePinger{}, "every now and then", zaptest.NewLogger(t))
	require.Error(t, err)

	for _, schedule := range []string{"@every 30s", "*/5 * * * *", "0 */5 * * * *", "@hourly"} {
		_, err := NewMonitor(&fakePinger{}, schedule, zaptest.NewLogger(t))
		assert.NoError(t, err, schedule)
	}
}

func TestMonitor_Transitions(t *testing.T) {
	t.Parallel()

	pinger := &fakePinger{}
	m, err := NewMonitor(pinger, "@every 1h", zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, StateUnknown, m.Status().State)

	s := m.Check(context.Background())
	assert.Equal(t, StateOK, s.State)
	assert.Equal(t, int64(1), s.Checks)
	assert.Equal(t, 2, s.OpenConnections)
	assert.Equal(t, 1, s.InUse)
	assert.Equal(t, int64(3), s.WaitCount)
	assert.False(t, s.CheckedAt.IsZero())

	pinger.fail(errors.New("connection refused"))
	m.Check(context.Background())
	s = m.Check(context.Background())
	assert.Equal(t, StateDegraded, s.State)
	assert.Equal(t, 2, s.ConsecutiveFailures)
	assert.Equal(t, "connection refused", s.LastError)

	pinger.fail(nil)
	s = m.Check(context.Background())
	assert.Equal(t, StateOK, s.State)
	assert.Zero(t, s.ConsecutiveFailures)
	assert.Empty(t, s.LastError)
	assert.Equal(t, int64(4), m.Status().Checks)
}

func TestMonitor_StartStop(t *testing.T) {
	t.Parallel()

	m, err := NewMonitor(&fakePinger{}, "@every 1h", zaptest.NewLogger(t))
	require.NoError(t, err)

	m.Start()
	assert.Equal(t, StateOK, m.Status().State)
	m.Stop()
}
