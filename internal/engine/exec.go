// Package engine is the query execution core of the Data API.
//
// What: Rewrite turns :name references into positional placeholders, IsRead
// classifies a statement, Bind resolves a parameter set into engine values,
// MarshalRow converts native rows into typed fields, and Executor runs a
// whole request on one database session.
// How: A request is rewritten and classified once; each parameter set is then
// bound and executed in order on the same session, and the session's unit of
// work is committed only when every step succeeded.
// Why: Session-scoped directives (the selected database) must apply to every
// statement of a batch, and a batch must never be applied partially.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/SimonWaldherr/dataapi/internal/logging"
	"github.com/SimonWaldherr/dataapi/internal/value"
)

// MaxStatementLength is the longest statement accepted, in bytes.
const MaxStatementLength = 65536

// Rows is a result set read from a session.
type Rows interface {
	Columns() ([]Column, error)
	Next() bool
	// Values returns the current row, one native value per column.
	Values() ([]any, error)
	Err() error
	Close() error
}

// Session is one exclusive database connection carrying one unit of work.
type Session interface {
	// UseDatabase runs the session-scoped select-database directive.
	UseDatabase(ctx context.Context, name string) error
	Query(ctx context.Context, sql string, args []any) (Rows, error)
	// Exec runs a statement and returns the affected-row count.
	Exec(ctx context.Context, sql string, args []any) (int64, error)
	Commit() error
	Rollback() error
	// Close releases the connection back to its pool.
	Close() error
}

// Provider hands out sessions and knows its engine's type catalog.
type Provider interface {
	Acquire(ctx context.Context) (Session, error)
	Catalog() Catalog
}

// Request is one statement with zero or more parameter sets. Empty Database,
// Schema and TransactionID mean absent.
type Request struct {
	SQL           string
	Database      string
	Schema        string
	TransactionID string
	ParameterSets [][]value.NamedParameter
}

// Outcome is the result of a request. Read decides which of Records and
// RowsAffected is meaningful.
type Outcome struct {
	Read         bool
	Records      [][]value.Field
	RowsAffected uint64
}

// Executor runs requests against sessions from a Provider.
type Executor struct {
	provider Provider
	logger   *zap.Logger
}

// NewExecutor returns an Executor. A nil logger disables logging.
func NewExecutor(provider Provider, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{provider: provider, logger: logger}
}

// Execute runs req as a single unit of work and returns rows or the summed
// affected-row count. Any failure discards the whole unit of work.
func (e *Executor) Execute(ctx context.Context, req Request) (Outcome, error) {
	logger := logging.FromContext(ctx, e.logger)

	if req.SQL == "" {
		return Outcome{}, newError(ErrMissingSQL, "", nil)
	}
	if len(req.SQL) > MaxStatementLength {
		return Outcome{}, newError(ErrStatementTooLong, fmt.Sprintf("%d bytes, limit is %d", len(req.SQL), MaxStatementLength), nil)
	}
	if req.Schema != "" {
		logger.Warn("schema selection requested but not implemented", zap.String("schema", req.Schema))
		return Outcome{}, newError(ErrSchemaUnsupported, req.Schema, nil)
	}
	if req.TransactionID != "" {
		return Outcome{}, newError(ErrTransactionUnsupported, "", nil)
	}

	start := time.Now()
	sess, err := e.provider.Acquire(ctx)
	if err != nil {
		logger.Error("failed to acquire a database connection", zap.Error(err))
		return Outcome{}, newError(ErrSessionUnavailable, "", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("failed to release database connection", zap.Error(err))
		}
	}()

	finished := false
	defer func() {
		if finished {
			return
		}
		if err := sess.Rollback(); err != nil {
			logger.Warn("failed to roll back transaction", zap.Error(err))
		}
	}()

	if req.Database != "" {
		if err := sess.UseDatabase(ctx, req.Database); err != nil {
			logger.Error("failed to select database", zap.String("database", req.Database), zap.Error(err))
			return Outcome{}, newError(ErrDatabaseSelection, req.Database, err)
		}
	}

	sql, names := Rewrite(req.SQL)
	out := Outcome{Read: IsRead(req.SQL)}
	if out.Read {
		out.Records = [][]value.Field{}
	}
	catalog := e.provider.Catalog()

	for i, params := range req.ParameterSets {
		args, err := Bind(names, params)
		if err != nil {
			logger.Info("rejected parameter set", zap.Int("parameter_set", i), zap.Error(err))
			return Outcome{}, err
		}

		if out.Read {
			records, err := readAll(ctx, sess, sql, args, catalog)
			if err != nil {
				logger.Error("failed to execute query", zap.Int("parameter_set", i), zap.Error(err))
				return Outcome{}, newError(ErrExecution, fmt.Sprintf("parameter set %d", i), err)
			}
			out.Records = append(out.Records, records...)
			continue
		}

		n, err := sess.Exec(ctx, sql, args)
		if err != nil {
			logger.Error("failed to execute statement", zap.Int("parameter_set", i), zap.Error(err))
			return Outcome{}, newError(ErrExecution, fmt.Sprintf("parameter set %d", i), err)
		}
		if n > 0 {
			out.RowsAffected += uint64(n)
		}
	}

	// A failed commit ends the transaction as well; there is nothing left to roll back.
	finished = true
	if err := sess.Commit(); err != nil {
		logger.Warn("failed to commit transaction", zap.Error(err))
		return Outcome{}, newError(ErrCommit, "", err)
	}

	logger.Debug("statement executed",
		zap.Bool("read", out.Read),
		zap.Int("parameter_sets", len(req.ParameterSets)),
		zap.Int("records", len(out.Records)),
		zap.Uint64("rows_affected", out.RowsAffected),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

func readAll(ctx context.Context, sess Session, sql string, args []any, catalog Catalog) ([][]value.Field, error) {
	rows, err := sess.Query(ctx, sql, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var records [][]value.Field
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		record, err := MarshalRow(values, columns, catalog)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
