package driver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	// Registers the "sqlite" database/sql driver; go-sql-driver/mysql
	// registers "mysql" through its import in dsn.go.
	_ "modernc.org/sqlite"

	"github.com/SimonWaldherr/dataapi/internal/engine"
)

// ErrBusy is returned when no session slot frees up within the busy timeout.
var ErrBusy = errors.New("busy timeout")

// Pool hands out sessions on a bounded set of connections.
type Pool struct {
	db          *sqlx.DB
	dialect     Dialect
	slots       chan struct{}
	busyTimeout time.Duration
	logger      *zap.Logger
}

// Open parses dsn and opens a pool. The connection is verified with a ping
// so a bad address fails at startup.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Pool, error) {
	c, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	return OpenConfig(ctx, c, logger)
}

// OpenConfig opens a pool from an already parsed configuration.
func OpenConfig(ctx context.Context, c Config, logger *zap.Logger) (*Pool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sqlx.Open(c.DriverName, c.DataSource)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.DriverName, err)
	}
	db.SetMaxOpenConns(c.PoolSize)
	db.SetMaxIdleConns(c.MaxIdle)
	db.SetConnMaxLifetime(c.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", c.DriverName, err)
	}

	p := &Pool{
		db:          db,
		dialect:     c.Dialect,
		busyTimeout: c.BusyTimeout,
		logger:      logger.With(zap.String("dialect", c.Dialect.Name())),
	}
	if c.PoolSize > 0 {
		p.slots = make(chan struct{}, c.PoolSize)
	}
	p.logger.Info("database pool opened",
		zap.Int("pool_size", c.PoolSize),
		zap.Int("max_idle", c.MaxIdle),
		zap.Duration("busy_timeout", c.BusyTimeout),
	)
	return p, nil
}

// DB exposes the underlying handle, for schema setup and administration.
func (p *Pool) DB() *sqlx.DB { return p.db }

// Dialect returns the pool's dialect.
func (p *Pool) Dialect() Dialect { return p.dialect }

// Catalog returns the type catalog of the pool's engine.
func (p *Pool) Catalog() engine.Catalog { return p.dialect }

// Ping checks that the database answers.
func (p *Pool) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// Stats returns the connection pool statistics.
func (p *Pool) Stats() sql.DBStats { return p.db.Stats() }

// InUse returns the number of sessions currently handed out.
func (p *Pool) InUse() int { return len(p.slots) }

// Close closes every connection of the pool.
func (p *Pool) Close() error { return p.db.Close() }

// Acquire opens a session: one dedicated connection with a transaction
// started on it. The caller must Close the session.
func (p *Pool) Acquire(ctx context.Context) (engine.Session, error) {
	if err := p.acquire(ctx); err != nil {
		return nil, err
	}
	conn, err := p.db.Connx(ctx)
	if err != nil {
		p.release()
		return nil, err
	}
	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		_ = conn.Close()
		p.release()
		return nil, err
	}
	return &session{pool: p, conn: conn, tx: tx}, nil
}

// acquire takes a session slot, waiting at most the busy timeout or until
// ctx is done, whichever comes first.
//
//nolint:gocyclo // Throttling must cover timeout, context, and immediate acquisition paths.
func (p *Pool) acquire(ctx context.Context) error {
	if p.slots == nil {
		return ctx.Err()
	}
	if p.busyTimeout <= 0 {
		select {
		case p.slots <- struct{}{}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	timeout := p.busyTimeout
	if deadline, ok := ctx.Deadline(); ok {
		remain := time.Until(deadline)
		if remain <= 0 {
			return ctx.Err()
		}
		if remain < timeout {
			timeout = remain
		}
	}
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		p.logger.Warn("no free database session", zap.Duration("waited", timeout), zap.Int("in_use", len(p.slots)))
		return fmt.Errorf("%w after %s", ErrBusy, timeout)
	}
}

func (p *Pool) release() {
	if p.slots == nil {
		return
	}
	select {
	case <-p.slots:
	default:
	}
}
