package server

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/SimonWaldherr/dataapi/internal/engine"
	"github.com/SimonWaldherr/dataapi/internal/logging"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "dataapi.RdsDataService"

const (
	methodExecuteStatement      = "/" + ServiceName + "/ExecuteStatement"
	methodBatchExecuteStatement = "/" + ServiceName + "/BatchExecuteStatement"
)

// requestIDKey is the metadata key carrying the request id.
const requestIDKey = "x-request-id"

// jsonCodec carries the wire types as JSON instead of protobuf.
type jsonCodec struct{}

func (jsonCodec) Name() string                       { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// RdsDataServiceServer is the gRPC service implemented by Service.
type RdsDataServiceServer interface {
	ExecuteStatement(context.Context, *ExecuteStatementInput) (*ExecuteStatementOutput, error)
	BatchExecuteStatement(context.Context, *BatchExecuteStatementInput) (*BatchExecuteStatementOutput, error)
}

// RegisterRdsDataServiceServer registers srv with s.
func RegisterRdsDataServiceServer(s grpc.ServiceRegistrar, srv RdsDataServiceServer) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*RdsDataServiceServer)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "ExecuteStatement", Handler: executeStatementHandler},
			{MethodName: "BatchExecuteStatement", Handler: batchExecuteStatementHandler},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "dataapi",
	}, srv)
}

func executeStatementHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ExecuteStatementInput)
	if err := dec(in); err != nil {
		return nil, status.Error(codes.InvalidArgument, status.Convert(err).Message())
	}
	if interceptor == nil {
		return srv.(RdsDataServiceServer).ExecuteStatement(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodExecuteStatement}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RdsDataServiceServer).ExecuteStatement(ctx, req.(*ExecuteStatementInput))
	}
	return interceptor(ctx, in, info, handler)
}

func batchExecuteStatementHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(BatchExecuteStatementInput)
	if err := dec(in); err != nil {
		return nil, status.Error(codes.InvalidArgument, status.Convert(err).Message())
	}
	if interceptor == nil {
		return srv.(RdsDataServiceServer).BatchExecuteStatement(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodBatchExecuteStatement}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RdsDataServiceServer).BatchExecuteStatement(ctx, req.(*BatchExecuteStatementInput))
	}
	return interceptor(ctx, in, info, handler)
}

// NewGRPCServer returns a gRPC server serving svc. Every call gets a request
// id and a scoped logger, and failures are mapped to status codes.
func NewGRPCServer(svc *Service, logger *zap.Logger, opts ...grpc.ServerOption) *grpc.Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(unaryInterceptor(logger)))
	s := grpc.NewServer(opts...)
	RegisterRdsDataServiceServer(s, svc)
	return s
}

func unaryInterceptor(base *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		id := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get(requestIDKey); len(ids) > 0 {
				id = ids[0]
			}
		}
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDKey, id))

		logger := base.With(zap.String("request_id", id), zap.String("method", info.FullMethod))
		resp, err := handler(logging.WithLogger(ctx, logger), req)
		if err != nil {
			return nil, toStatus(err)
		}
		return resp, nil
	}
}

func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	code := codes.Internal
	switch engine.ClassOf(err) {
	case engine.ClassBadRequest:
		code = codes.InvalidArgument
	case engine.ClassNotImplemented:
		code = codes.Unimplemented
	}
	return status.Error(code, engine.MessageOf(err))
}
