package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client calls a Data API server over gRPC.
type Client struct {
	conn *grpc.ClientConn
}

// NewClient returns a client for target. The connection is plaintext unless
// opts carry other transport credentials.
func NewClient(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func (c *Client) ExecuteStatement(ctx context.Context, in *ExecuteStatementInput, opts ...grpc.CallOption) (*ExecuteStatementOutput, error) {
	out := new(ExecuteStatementOutput)
	if err := c.conn.Invoke(ctx, methodExecuteStatement, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) BatchExecuteStatement(ctx context.Context, in *BatchExecuteStatementInput, opts ...grpc.CallOption) (*BatchExecuteStatementOutput, error) {
	out := new(BatchExecuteStatementOutput)
	if err := c.conn.Invoke(ctx, methodBatchExecuteStatement, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }
