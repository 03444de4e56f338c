package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHTTPServer(t *testing.T) (*httptest.Server, *backend) {
	t.Helper()
	b := newBackend(t)
	ts := httptest.NewServer(NewHTTPHandler(b.svc, b.monitor, b.logger))
	t.Cleanup(ts.Close)
	return ts, b
}

func post(t *testing.T, ts *httptest.Server, path, body string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestHTTP_ExecuteSelect(t *testing.T) {
	t.Parallel()
	ts, _ := newHTTPServer(t)

	resp, body := post(t, ts, "/Execute", `{
		"resourceArn": "arn:aws:rds:eu-central-1:123456789012:cluster:db",
		"secretArn": "arn:aws:secretsmanager:eu-central-1:123456789012:secret:db",
		"includeResultMetadata": true,
		"sql": "SELECT id, name, active FROM t WHERE id = :id",
		"parameters": [{"name": "id", "value": {"longValue": 5}}]
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{
		"records": [[{"longValue": 5}, {"stringValue": "Marco"}, {"booleanValue": true}]],
		"numberOfRecordsUpdated": 0
	}`, body)
}

func TestHTTP_ExecuteWriteThenRead(t *testing.T) {
	t.Parallel()
	ts, _ := newHTTPServer(t)

	resp, body := post(t, ts, "/Execute", `{
		"sql": "INSERT INTO t (id, name, active, payload) VALUES (:id, :name, :active, :payload)",
		"parameters": [
			{"name": "id", "value": {"longValue": 6}},
			{"name": "name", "value": {"isNull": true}},
			{"name": "active", "value": {"booleanValue": false}},
			{"name": "payload", "value": {"blobValue": "AP8="}, "typeHint": "JSON"}
		]
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.JSONEq(t, `{"numberOfRecordsUpdated": 1}`, body)

	resp, body = post(t, ts, "/Execute", `{"sql": "SELECT name, active, payload FROM t WHERE id = :id", "parameters": [{"name": "id", "value": {"longValue": 6}}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.JSONEq(t, `{
		"records": [[{"isNull": true}, {"booleanValue": false}, {"blobValue": "AP8="}]],
		"numberOfRecordsUpdated": 0
	}`, body)

	resp, body = post(t, ts, "/Execute", `{"sql": "SELECT name FROM t WHERE id = 404"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.JSONEq(t, `{"records": [], "numberOfRecordsUpdated": 0}`, body)
}

func TestHTTP_BatchExecute(t *testing.T) {
	t.Parallel()
	ts, b := newHTTPServer(t)

	resp, body := post(t, ts, "/BatchExecute", `{
		"sql": "INSERT INTO t (id, name) VALUES (:id, :name)",
		"parameterSets": [
			[{"name": "id", "value": {"longValue": 10}}, {"name": "name", "value": {"stringValue": "a"}}],
			[{"name": "id", "value": {"longValue": 11}}, {"name": "name", "value": {"stringValue": "b"}}]
		]
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.JSONEq(t, `{"updateResults": [{}, {}]}`, body)

	// The second set misses :name, so nothing of this batch may stick.
	resp, body = post(t, ts, "/BatchExecute", `{
		"sql": "INSERT INTO t (id, name) VALUES (:id, :name)",
		"parameterSets": [
			[{"name": "id", "value": {"longValue": 12}}, {"name": "name", "value": {"stringValue": "c"}}],
			[{"name": "id", "value": {"longValue": 13}}]
		]
	}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	assert.JSONEq(t, `{"message": "missing parameter: name"}`, body)

	var count int
	require.NoError(t, b.pool.DB().Get(&count, "SELECT COUNT(*) FROM t"))
	assert.Equal(t, 3, count)
}

func TestHTTP_Errors(t *testing.T) {
	t.Parallel()
	ts, _ := newHTTPServer(t)

	testCases := []struct {
		Name    string
		Path    string
		Body    string
		Status  int
		Message string
	}{
		{"missing sql", "/Execute", `{}`, http.StatusBadRequest, "sql is required"},
		{"malformed json", "/Execute", `{"sql": `, http.StatusBadRequest, ""},
		{"wire value with two keys", "/Execute", `{"sql": "SELECT :a", "parameters": [{"name": "a", "value": {"longValue": 1, "stringValue": "1"}}]}`, http.StatusBadRequest, ""},
		{"isNull false", "/Execute", `{"sql": "SELECT :a", "parameters": [{"name": "a", "value": {"isNull": false}}]}`, http.StatusBadRequest, ""},
		{"unknown type hint", "/Execute", `{"sql": "SELECT :a", "parameters": [{"name": "a", "value": {"longValue": 1}, "typeHint": "MONEY"}]}`, http.StatusBadRequest, ""},
		{"duplicate parameter", "/Execute", `{"sql": "SELECT :id", "parameters": [{"name": "id", "value": {"longValue": 1}}, {"name": "id", "value": {"longValue": 2}}]}`, http.StatusBadRequest, "duplicate parameter: id"},
		{"missing parameter", "/Execute", `{"sql": "SELECT :id"}`, http.StatusBadRequest, "missing parameter: id"},
		{"array parameter", "/Execute", `{"sql": "SELECT :ids", "parameters": [{"name": "ids", "value": {"arrayValue": {"longValues": [1, 2]}}}]}`, http.StatusBadRequest, "array parameters are not supported: ids"},
		{"malformed blob", "/Execute", `{"sql": "SELECT :b", "parameters": [{"name": "b", "value": {"blobValue": "%%%"}}]}`, http.StatusBadRequest, "failed to decode base64 blob: b"},
		{"statement too long", "/Execute", `{"sql": "SELECT '` + strings.Repeat("x", 70000) + `'"}`, http.StatusBadRequest, ""},
		{"schema", "/Execute", `{"sql": "SELECT 1", "schema": "public"}`, http.StatusNotImplemented, "schema selection is not supported: public"},
		{"transaction", "/BatchExecute", `{"sql": "SELECT 1", "transactionId": "abc"}`, http.StatusNotImplemented, "explicit transactions are not supported"},
		{"unknown table", "/Execute", `{"sql": "SELECT * FROM missing"}`, http.StatusInternalServerError, "failed to execute statement: parameter set 0"},
		{"unknown database", "/Execute", `{"sql": "SELECT 1", "database": "shop"}`, http.StatusInternalServerError, "failed to select database: shop"},
	}

	for _, aTestCase := range testCases {
		t.Run(aTestCase.Name, func(t *testing.T) {
			resp, body := post(t, ts, aTestCase.Path, aTestCase.Body)
			assert.Equal(t, aTestCase.Status, resp.StatusCode, body)

			var e ErrorResponse
			require.NoError(t, json.Unmarshal([]byte(body), &e))
			assert.NotEmpty(t, e.Message)
			if aTestCase.Message != "" {
				assert.Equal(t, aTestCase.Message, e.Message)
			}
			assert.NotContains(t, e.Message, "no such table")
		})
	}
}

func TestHTTP_RequestID(t *testing.T) {
	t.Parallel()
	ts, _ := newHTTPServer(t)

	resp, _ := post(t, ts, "/Execute", `{"sql": "SELECT 1"}`)
	_, err := uuid.Parse(resp.Header.Get(RequestIDHeader))
	assert.NoError(t, err)

	id := uuid.NewString()
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/Execute", strings.NewReader(`{"sql": "SELECT 1"}`))
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, id)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, id, resp.Header.Get(RequestIDHeader))

	req, err = http.NewRequest(http.MethodPost, ts.URL+"/Execute", strings.NewReader(`{"sql": "SELECT 1"}`))
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "not-a-uuid\nInjected: yes")
	resp, err = http.DefaultClient.Do(req)
	if err == nil {
		resp.Body.Close()
		assert.NotContains(t, resp.Header.Get(RequestIDHeader), "Injected")
	}
}

func TestHTTP_Status(t *testing.T) {
	t.Parallel()
	ts, _ := newHTTPServer(t)

	resp, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		OK       bool `json:"ok"`
		Database struct {
			State  string `json:"status"`
			Checks int64  `json:"checks"`
		} `json:"database"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.OK)
	assert.Equal(t, "ok", body.Database.State)
	assert.Equal(t, int64(1), body.Database.Checks)
}

func TestHTTP_Routing(t *testing.T) {
	t.Parallel()
	ts, _ := newHTTPServer(t)

	resp, err := http.Get(ts.URL + "/Execute")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, body := post(t, ts, "/Nope", `{}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, body)
}

func TestHTTP_StatusWithoutMonitor(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(NewHTTPHandler(NewService(nil, nil), nil, nil))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
