package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/RealZimboGuy/gopherstate/internal/engine"
	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate/core"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/moogar0880/problems"
)

const (
	HeaderRequestID    = "X-Request-ID"
	problemContentType = "application/problem+json"
)

// BaseController carries what every controller needs: the manager and a request validator.
type BaseController struct {
	WorkflowManager *engine.WorkflowManager
	validate        *validator.Validate
}

func NewBaseController(wm *engine.WorkflowManager) BaseController {
	return BaseController{
		WorkflowManager: wm,
		validate:        validator.New(validator.WithRequiredStructEnabled()),
	}
}

// WithRequestID tags the request context with the caller's X-Request-ID, or a new one,
// and logs the request once the handler returns.
func (bc *BaseController) WithRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)
		ctx := context.WithValue(r.Context(), core.CtxKeyRequestID, requestID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r.WithContext(ctx))
		slog.DebugContext(ctx, "Handled request", "request_id", requestID, "method", r.Method,
			"path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, problemType string, detail string) {
	problem := problems.NewStatusProblem(status).
		WithInstance(r.URL.Path).
		WithType(problemType).
		WithDetail(detail)
	w.Header().Set("Content-Type", problemContentType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem); err != nil {
		slog.ErrorContext(r.Context(), "Failed to encode problem", "error", err)
	}
}

func badRequest(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, r, http.StatusBadRequest, "validation_error", detail)
}

// writeEngineError maps the engine's error taxonomy onto HTTP problems.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	kind := engine.KindOf(err)
	switch kind {
	case engine.KindValidation, engine.KindActionNotFoundOrDisabled:
		writeProblem(w, r, http.StatusBadRequest, string(kind), err.Error())
	case engine.KindDefinitionNotFound, engine.KindInstanceNotFound:
		writeProblem(w, r, http.StatusNotFound, string(kind), err.Error())
	case engine.KindMinimumDwellTimeNotMet:
		var dwell *engine.DwellTimeError
		if errors.As(err, &dwell) {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(dwell.Remaining().Seconds()))))
		}
		writeProblem(w, r, http.StatusConflict, string(kind), err.Error())
	case engine.KindInvalidOrDisabledState, engine.KindTerminalStateViolation, engine.KindActionNotApplicable,
		engine.KindConcurrentModification, engine.KindDefinitionExists:
		writeProblem(w, r, http.StatusConflict, string(kind), err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		writeProblem(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
