// Package dataapi runs SQL statements the way the AWS RDS Data API does:
// named parameters in typed JSON values, each request in its own
// transaction, and records returned as typed fields.
//
// # Basic Usage
//
// Open a database and run statements:
//
//	db, err := dataapi.Open(ctx, "mem://", nil)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	out, err := db.ExecuteStatement(ctx, &dataapi.ExecuteStatementInput{
//	    SQL:        "SELECT name FROM users WHERE id = :id",
//	    Parameters: []dataapi.NamedParameter{{Name: "id", Value: dataapi.Long(1)}},
//	})
//
// # Serving
//
// NewHTTPHandler and NewGRPCServer expose the same operations over the
// wire; cmd/server wires both with configuration and a health check.
package dataapi

import (
	"context"
	"net/http"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/SimonWaldherr/dataapi/internal/driver"
	"github.com/SimonWaldherr/dataapi/internal/engine"
	"github.com/SimonWaldherr/dataapi/internal/server"
	"github.com/SimonWaldherr/dataapi/internal/value"
)

// ============================================================================
// Core Types - Re-exported from internal packages for public API
// ============================================================================

// Field is a typed value: one of ArrayField, Blob, Boolean, Double, Null,
// Long and String.
type Field = value.Field

type (
	ArrayField = value.ArrayField
	Blob       = value.Blob
	Boolean    = value.Boolean
	Double     = value.Double
	Null       = value.Null
	Long       = value.Long
	String     = value.String
)

// Array is the payload of an ArrayField.
type Array = value.Array

type (
	Arrays   = value.Arrays
	Booleans = value.Booleans
	Doubles  = value.Doubles
	Longs    = value.Longs
	Strings  = value.Strings
)

// NamedParameter binds a value to a :name reference.
type NamedParameter = value.NamedParameter

// TypeHint is advisory metadata on a NamedParameter.
type TypeHint = value.TypeHint

// Record is one row of a result.
type Record = value.Record

type (
	ExecuteStatementInput       = server.ExecuteStatementInput
	ExecuteStatementOutput      = server.ExecuteStatementOutput
	BatchExecuteStatementInput  = server.BatchExecuteStatementInput
	BatchExecuteStatementOutput = server.BatchExecuteStatementOutput
	UpdateResult                = server.UpdateResult
)

// ErrorClass tells callers whose fault a failure is.
type ErrorClass = engine.Class

const (
	ClassInternal       = engine.ClassInternal
	ClassBadRequest     = engine.ClassBadRequest
	ClassNotImplemented = engine.ClassNotImplemented
)

// ClassOf returns the class of err; errors not raised by the executor are
// internal.
func ClassOf(err error) ErrorClass { return engine.ClassOf(err) }

// NewBlob encodes raw bytes into a Blob.
func NewBlob(b []byte) Blob { return value.NewBlob(b) }

// ============================================================================
// Statement helpers
// ============================================================================

// Rewrite replaces each :name reference outside quotes and comments with a
// positional placeholder and returns the names in order.
func Rewrite(sql string) (string, []string) { return engine.Rewrite(sql) }

// IsRead reports whether sql returns records.
func IsRead(sql string) bool { return engine.IsRead(sql) }

// ============================================================================
// Database
// ============================================================================

// DB runs Data API requests against one database.
type DB struct {
	pool *driver.Pool
	svc  *server.Service
}

// Open connects to dsn (mysql://, sqlite://, file: or mem://). A nil logger
// discards logs.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := driver.Open(ctx, dsn, logger)
	if err != nil {
		return nil, err
	}
	return &DB{
		pool: pool,
		svc:  server.NewService(engine.NewExecutor(pool, logger), logger),
	}, nil
}

// ExecuteStatement runs one statement with at most one parameter set.
func (db *DB) ExecuteStatement(ctx context.Context, in *ExecuteStatementInput) (*ExecuteStatementOutput, error) {
	return db.svc.ExecuteStatement(ctx, in)
}

// BatchExecuteStatement runs one statement per parameter set in a single
// transaction.
func (db *DB) BatchExecuteStatement(ctx context.Context, in *BatchExecuteStatementInput) (*BatchExecuteStatementOutput, error) {
	return db.svc.BatchExecuteStatement(ctx, in)
}

// Exec runs sql outside the Data API, for schema setup.
func (db *DB) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := db.pool.DB().ExecContext(ctx, sql, args...)
	return err
}

// HTTPHandler serves the JSON endpoints for db.
func (db *DB) HTTPHandler(logger *zap.Logger) http.Handler {
	return server.NewHTTPHandler(db.svc, nil, logger)
}

// GRPCServer returns a gRPC server with the Data API service registered.
func (db *DB) GRPCServer(logger *zap.Logger, opts ...grpc.ServerOption) *grpc.Server {
	return server.NewGRPCServer(db.svc, logger, opts...)
}

// Close closes the database connections.
func (db *DB) Close() error { return db.pool.Close() }
