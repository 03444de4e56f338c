package driver

import (
	"context"
	sqldriver "database/sql/driver"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/SimonWaldherr/dataapi/internal/engine"
)

type session struct {
	pool *Pool
	conn *sqlx.Conn
	tx   *sqlx.Tx
	// dirty marks a connection whose session state no longer matches a
	// fresh one; it is discarded instead of going back to the pool.
	dirty bool
}

func (s *session) UseDatabase(ctx context.Context, name string) error {
	stmt, err := s.pool.dialect.UseDatabase(name)
	if err != nil || stmt == "" {
		return err
	}
	s.dirty = true
	_, err = s.tx.ExecContext(ctx, stmt)
	return err
}

func (s *session) Query(ctx context.Context, sql string, args []any) (engine.Rows, error) {
	r, err := s.tx.QueryxContext(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rows{r}, nil
}

func (s *session) Exec(ctx context.Context, sql string, args []any) (int64, error) {
	res, err := s.tx.ExecContext(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *session) Commit() error   { return s.tx.Commit() }
func (s *session) Rollback() error { return s.tx.Rollback() }

func (s *session) Close() error {
	defer s.pool.release()
	if s.dirty {
		// Returning ErrBadConn from Raw makes database/sql drop the
		// connection rather than pool it.
		err := s.conn.Raw(func(any) error { return sqldriver.ErrBadConn })
		if err != nil && !errors.Is(err, sqldriver.ErrBadConn) {
			s.pool.logger.Warn("failed to discard connection", zap.Error(err))
		}
		return nil
	}
	return s.conn.Close()
}

type rows struct {
	*sqlx.Rows
}

func (r rows) Columns() ([]engine.Column, error) {
	types, err := r.ColumnTypes()
	if err != nil {
		return nil, err
	}
	columns := make([]engine.Column, len(types))
	for i, ct := range types {
		columns[i] = engine.Column{Name: ct.Name(), TypeName: strings.ToUpper(ct.DatabaseTypeName())}
	}
	return columns, nil
}

func (r rows) Values() ([]any, error) {
	return r.SliceScan()
}
