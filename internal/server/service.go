// Package server exposes the statement executor over HTTP and gRPC.
//
// What: Service implements the ExecuteStatement and BatchExecuteStatement
// operations on top of an engine executor; the HTTP handler and the gRPC
// service decode requests, call the Service and map failures to status codes.
// How: Both transports share the same JSON wire types; gRPC carries them
// with a JSON codec and a hand-written service descriptor.
// Why: Callers written against the vendor's Data API keep working with only
// the endpoint changed.
package server

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/SimonWaldherr/dataapi/internal/engine"
	"github.com/SimonWaldherr/dataapi/internal/logging"
	"github.com/SimonWaldherr/dataapi/internal/value"
)

// Executor runs one request as a single unit of work.
type Executor interface {
	Execute(ctx context.Context, req engine.Request) (engine.Outcome, error)
}

// Service implements the Data API operations.
type Service struct {
	executor Executor
	logger   *zap.Logger
}

// NewService returns a Service running statements through executor.
func NewService(executor Executor, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{executor: executor, logger: logger}
}

// ExecuteStatement runs in.SQL once with in.Parameters.
func (s *Service) ExecuteStatement(ctx context.Context, in *ExecuteStatementInput) (*ExecuteStatementOutput, error) {
	start := time.Now()
	out, err := s.executor.Execute(ctx, engine.Request{
		SQL:           in.SQL,
		Database:      in.Database,
		Schema:        in.Schema,
		TransactionID: in.TransactionID,
		ParameterSets: [][]value.NamedParameter{in.Parameters},
	})
	if err != nil {
		s.logFailure(ctx, "ExecuteStatement", err)
		return nil, err
	}

	resp := &ExecuteStatementOutput{}
	if out.Read {
		resp.Records = make([]value.Record, len(out.Records))
		for i, r := range out.Records {
			resp.Records[i] = value.Record(r)
		}
	} else {
		resp.NumberOfRecordsUpdated = clampInt64(out.RowsAffected)
	}

	logging.FromContext(ctx, s.logger).Info("statement executed",
		zap.String("operation", "ExecuteStatement"),
		zap.Bool("read", out.Read),
		zap.Int("records", len(out.Records)),
		zap.Uint64("rows_affected", out.RowsAffected),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

// BatchExecuteStatement runs in.SQL once per parameter set in one
// transaction. Rows a read statement returns are discarded.
func (s *Service) BatchExecuteStatement(ctx context.Context, in *BatchExecuteStatementInput) (*BatchExecuteStatementOutput, error) {
	start := time.Now()
	out, err := s.executor.Execute(ctx, engine.Request{
		SQL:           in.SQL,
		Database:      in.Database,
		Schema:        in.Schema,
		TransactionID: in.TransactionID,
		ParameterSets: in.ParameterSets,
	})
	if err != nil {
		s.logFailure(ctx, "BatchExecuteStatement", err)
		return nil, err
	}

	resp := &BatchExecuteStatementOutput{}
	if n := len(in.ParameterSets); n > 0 {
		resp.UpdateResults = make([]UpdateResult, n)
	}

	logging.FromContext(ctx, s.logger).Info("batch executed",
		zap.String("operation", "BatchExecuteStatement"),
		zap.Int("parameter_sets", len(in.ParameterSets)),
		zap.Bool("read", out.Read),
		zap.Uint64("rows_affected", out.RowsAffected),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

func (s *Service) logFailure(ctx context.Context, op string, err error) {
	logger := logging.FromContext(ctx, s.logger)
	fields := []zap.Field{
		zap.String("operation", op),
		zap.Stringer("class", engine.ClassOf(err)),
		zap.Error(err),
	}
	if engine.ClassOf(err) == engine.ClassInternal {
		logger.Error("request failed", fields...)
		return
	}
	logger.Info("request rejected", fields...)
}

func clampInt64(n uint64) int64 {
	if n > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(n)
}
