// Package server exposes a Runtime over the agent-serving REST API the chat
// client speaks: session management and POST /run.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Protocol-Lattice/diet-agent/pkg/adkapi"
	"github.com/Protocol-Lattice/diet-agent/pkg/models"
	"github.com/Protocol-Lattice/diet-agent/pkg/runtime"
	"github.com/Protocol-Lattice/diet-agent/pkg/session"
)

const maxBodyBytes = 1 << 20

// Runner is the part of runtime.Runtime the handlers need.
type Runner interface {
	AppName() string
	CreateSession(ctx context.Context, key session.Key, state map[string]any) (*session.Session, error)
	GetSession(ctx context.Context, key session.Key) (*session.Session, error)
	ListSessions(ctx context.Context, appName, userID string) ([]*session.Session, error)
	DeleteSession(ctx context.Context, key session.Key) error
	Run(ctx context.Context, req adkapi.RunRequest) ([]adkapi.Event, error)
}

type handler struct {
	rt     Runner
	logger *slog.Logger
}

// NewRouter builds the HTTP handler for rt.
func NewRouter(rt Runner, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{rt: rt, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/list-apps", h.listApps)
	r.Route("/apps/{app}/users/{user}/sessions", func(r chi.Router) {
		r.Get("/", h.listSessions)
		r.Post("/", h.createSession)
		r.Post("/{session}", h.createSession)
		r.Get("/{session}", h.getSession)
		r.Delete("/{session}", h.deleteSession)
	})
	r.Post("/run", h.run)
	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func sessionKey(r *http.Request) session.Key {
	return session.Key{
		AppName:   chi.URLParam(r, "app"),
		UserID:    chi.URLParam(r, "user"),
		SessionID: chi.URLParam(r, "session"),
	}
}

func (h *handler) listApps(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []string{h.rt.AppName()})
}

func (h *handler) createSession(w http.ResponseWriter, r *http.Request) {
	var body adkapi.CreateSessionRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s, err := h.rt.CreateSession(r.Context(), sessionKey(r), body.State)
	if err != nil {
		writeError(w, h.status(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.Wire())
}

func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.rt.GetSession(r.Context(), sessionKey(r))
	if err != nil {
		writeError(w, h.status(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.Wire())
}

func (h *handler) listSessions(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(r)
	list, err := h.rt.ListSessions(r.Context(), key.AppName, key.UserID)
	if err != nil {
		writeError(w, h.status(err), err)
		return
	}
	out := make([]adkapi.Session, 0, len(list))
	for _, s := range list {
		out = append(out, s.Wire())
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.rt.DeleteSession(r.Context(), sessionKey(r)); err != nil {
		writeError(w, h.status(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) run(w http.ResponseWriter, r *http.Request) {
	var req adkapi.RunRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	events, err := h.rt.Run(r.Context(), req)
	if err != nil {
		status := h.status(err)
		if status >= http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "run failed", "session", req.SessionID, "status", status, "err", err)
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// status maps runtime and model errors to HTTP status codes.
func (h *handler) status(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, runtime.ErrUnknownApp):
		return http.StatusNotFound
	case errors.Is(err, session.ErrExists):
		return http.StatusConflict
	case errors.Is(err, runtime.ErrEmptyMessage):
		return http.StatusBadRequest
	case models.IsOverloaded(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody accepts an empty body as the zero value.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, adkapi.ErrorResponse{Error: err.Error()})
}
