package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SimonWaldherr/dataapi/internal/driver"
	"github.com/SimonWaldherr/dataapi/internal/engine"
	"github.com/SimonWaldherr/dataapi/internal/health"
	"github.com/SimonWaldherr/dataapi/internal/testhelper"
)

type backend struct {
	pool    *driver.Pool
	svc     *Service
	monitor *health.Monitor
	logger  *zap.Logger
}

// newBackend opens a private in-memory database holding table t with the
// row (5, 'Marco', true).
func newBackend(t *testing.T) *backend {
	t.Helper()

	logger := testhelper.Logger(t)
	pool, err := driver.Open(context.Background(), "mem://", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	pool.DB().MustExec("CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT, active BOOLEAN, payload BLOB)")
	pool.DB().MustExec("INSERT INTO t (id, name, active) VALUES (5, 'Marco', 1)")

	monitor, err := health.NewMonitor(pool, "@every 1h", logger)
	require.NoError(t, err)
	monitor.Check(context.Background())

	return &backend{
		pool:    pool,
		svc:     NewService(engine.NewExecutor(pool, logger), logger),
		monitor: monitor,
		logger:  logger,
	}
}
