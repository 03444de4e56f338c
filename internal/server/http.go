package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SimonWaldherr/dataapi/internal/engine"
	"github.com/SimonWaldherr/dataapi/internal/health"
	"github.com/SimonWaldherr/dataapi/internal/logging"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

// maxBodyBytes bounds a request body; batches carry many parameter sets.
const maxBodyBytes = 16 << 20

// StatusSource reports database health for the status endpoint.
type StatusSource interface {
	Status() health.Status
}

type httpHandler struct {
	svc    *Service
	status StatusSource
	logger *zap.Logger
	start  time.Time
}

// NewHTTPHandler routes the Data API operations and the status endpoint.
// status may be nil.
func NewHTTPHandler(svc *Service, status StatusSource, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &httpHandler{svc: svc, status: status, logger: logger, start: time.Now()}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /Execute", h.handleExecute)
	mux.HandleFunc("POST /BatchExecute", h.handleBatchExecute)
	mux.HandleFunc("GET /api/status", h.handleStatus)
	return h.withRequestID(mux)
}

func (h *httpHandler) handleExecute(w http.ResponseWriter, r *http.Request) {
	var in ExecuteStatementInput
	if !h.decode(w, r, &in) {
		return
	}
	out, err := h.svc.ExecuteStatement(r.Context(), &in)
	if err != nil {
		writeError(w, statusFor(err), engine.MessageOf(err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *httpHandler) handleBatchExecute(w http.ResponseWriter, r *http.Request) {
	var in BatchExecuteStatementInput
	if !h.decode(w, r, &in) {
		return
	}
	out, err := h.svc.BatchExecuteStatement(r.Context(), &in)
	if err != nil {
		writeError(w, statusFor(err), engine.MessageOf(err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *httpHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	s := health.Status{State: health.StateUnknown}
	if h.status != nil {
		s = h.status.Status()
	}
	code := http.StatusOK
	if s.State == health.StateDegraded {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"ok":       s.State == health.StateOK,
		"time":     time.Now().Format(time.RFC3339),
		"database": s,
		"uptime":   time.Since(h.start).Round(time.Second).String(),
	})
}

func (h *httpHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logging.FromContext(r.Context(), h.logger).Info("rejected request body", zap.Error(err))
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// withRequestID tags every request with an id, taken from the caller when
// it sends a valid one, and logs the request when it completes.
func (h *httpHandler) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		logger := h.logger.With(zap.String("request_id", id))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(logging.WithLogger(r.Context(), logger)))

		logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func statusFor(err error) int {
	switch engine.ClassOf(err) {
	case engine.ClassBadRequest:
		return http.StatusBadRequest
	case engine.ClassNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, ErrorResponse{Message: message})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
