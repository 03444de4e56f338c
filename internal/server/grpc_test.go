package server

import (
	"context"
	"net"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/SimonWaldherr/dataapi/internal/value"
)

func newGRPCClient(t *testing.T) (*Client, *backend) {
	t.Helper()
	b := newBackend(t)

	lis := bufconn.Listen(1 << 20)
	gs := NewGRPCServer(b.svc, b.logger)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	client, err := NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, b
}

func TestGRPC_ExecuteStatement(t *testing.T) {
	t.Parallel()
	client, _ := newGRPCClient(t)
	ctx := context.Background()

	var header metadata.MD
	out, err := client.ExecuteStatement(ctx, &ExecuteStatementInput{
		SQL:        "SELECT id, name, active FROM t WHERE id = :id",
		Parameters: []value.NamedParameter{{Name: "id", Value: value.Long(5)}},
	}, grpc.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, []value.Record{{value.Long(5), value.String("Marco"), value.Boolean(true)}}, out.Records)
	assert.Zero(t, out.NumberOfRecordsUpdated)

	ids := header.Get(requestIDKey)
	require.Len(t, ids, 1)
	_, err = uuid.Parse(ids[0])
	assert.NoError(t, err)

	out, err = client.ExecuteStatement(ctx, &ExecuteStatementInput{
		SQL:        "UPDATE t SET name = :name WHERE id = :id",
		Parameters: []value.NamedParameter{{Name: "id", Value: value.Long(5)}, {Name: "name", Value: value.String("Polo")}},
	})
	require.NoError(t, err)
	assert.Nil(t, out.Records)
	assert.Equal(t, int64(1), out.NumberOfRecordsUpdated)
}

func TestGRPC_BatchExecuteStatement(t *testing.T) {
	t.Parallel()
	client, b := newGRPCClient(t)

	out, err := client.BatchExecuteStatement(context.Background(), &BatchExecuteStatementInput{
		SQL: "INSERT INTO t (id, name) VALUES (:id, :name)",
		ParameterSets: [][]value.NamedParameter{
			{{Name: "id", Value: value.Long(20)}, {Name: "name", Value: value.String("x")}},
			{{Name: "id", Value: value.Long(21)}, {Name: "name", Value: value.Null{}}},
		},
	})
	require.NoError(t, err)
	assert.Len(t, out.UpdateResults, 2)

	var count int
	require.NoError(t, b.pool.DB().Get(&count, "SELECT COUNT(*) FROM t"))
	assert.Equal(t, 3, count)
}

func TestGRPC_ErrorCodes(t *testing.T) {
	t.Parallel()
	client, _ := newGRPCClient(t)

	testCases := []struct {
		Name    string
		In      *ExecuteStatementInput
		Code    codes.Code
		Message string
	}{
		{"missing sql", &ExecuteStatementInput{}, codes.InvalidArgument, "sql is required"},
		{"missing parameter", &ExecuteStatementInput{SQL: "SELECT :id"}, codes.InvalidArgument, "missing parameter: id"},
		{"schema", &ExecuteStatementInput{SQL: "SELECT 1", Schema: "public"}, codes.Unimplemented, "schema selection is not supported: public"},
		{"transaction", &ExecuteStatementInput{SQL: "SELECT 1", TransactionID: "tx"}, codes.Unimplemented, "explicit transactions are not supported"},
		{"engine failure", &ExecuteStatementInput{SQL: "SELEC 1"}, codes.Internal, "failed to execute statement: parameter set 0"},
	}

	for _, aTestCase := range testCases {
		t.Run(aTestCase.Name, func(t *testing.T) {
			_, err := client.ExecuteStatement(context.Background(), aTestCase.In)
			require.Error(t, err)
			st, ok := status.FromError(err)
			require.True(t, ok)
			assert.Equal(t, aTestCase.Code, st.Code())
			assert.Equal(t, aTestCase.Message, st.Message())
		})
	}
}
