package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Sternrassler/catalog-select/pkg/catalog"
	"github.com/Sternrassler/catalog-select/pkg/logging"
	"github.com/Sternrassler/catalog-select/pkg/metrics"
	"github.com/Sternrassler/catalog-select/pkg/pagination"
	"github.com/Sternrassler/catalog-select/pkg/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// errTooManySessions is returned when the session table is full.
var errTooManySessions = errors.New("too many open sessions")

// serverConfig holds the HTTP API settings.
type serverConfig struct {
	Navigator   pagination.Config
	Session     session.Config
	SessionTTL  time.Duration
	MaxSessions int
	OpTimeout   time.Duration
}

// entry is a session with its bookkeeping.
type entry struct {
	sess     *session.Session
	lastUsed time.Time
}

// server holds the open selection sessions and serves the JSON API.
type server struct {
	fetcher pagination.PageFetcher
	ready   func(ctx context.Context) error
	config  serverConfig
	logger  zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*entry
	now      func() time.Time
}

func newServer(fetcher pagination.PageFetcher, ready func(ctx context.Context) error, cfg serverConfig) *server {
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 60 * time.Second
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1000
	}
	return &server{
		fetcher:  fetcher,
		ready:    ready,
		config:   cfg,
		logger:   logging.NewLogger("api"),
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
}

// routes registers the API on a new mux.
func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", s.readyHandler)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("POST /sessions", s.createSession)
	mux.HandleFunc("GET /sessions/{id}", s.withSession(s.getSession))
	mux.HandleFunc("DELETE /sessions/{id}", s.deleteSession)
	mux.HandleFunc("POST /sessions/{id}/page", s.withSession(s.goToPage))
	mux.HandleFunc("POST /sessions/{id}/toggle", s.withSession(s.toggle))
	mux.HandleFunc("POST /sessions/{id}/select-all", s.withSession(s.selectAll))
	mux.HandleFunc("POST /sessions/{id}/bulk-select", s.withSession(s.bulkSelect))
	mux.HandleFunc("GET /sessions/{id}/selection", s.withSession(s.selection))

	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (s *server) readyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Readiness check failed")
			http.Error(w, "Redis unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// add registers a session under a fresh id.
func (s *server) add(sess *session.Session) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) >= s.config.MaxSessions {
		return "", errTooManySessions
	}
	id := uuid.NewString()
	s.sessions[id] = &entry{sess: sess, lastUsed: s.now()}
	return id, nil
}

// lookup returns a session and marks it used.
func (s *server) lookup(id string) (*session.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastUsed = s.now()
	return e.sess, true
}

// remove closes and drops a session.
func (s *server) remove(id string) bool {
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		e.sess.Close()
	}
	return ok
}

// prune closes sessions idle for longer than the TTL and returns how many
// were dropped.
func (s *server) prune() int {
	if s.config.SessionTTL <= 0 {
		return 0
	}

	cutoff := s.now().Add(-s.config.SessionTTL)
	var expired []*entry

	s.mu.Lock()
	for id, e := range s.sessions {
		if e.lastUsed.Before(cutoff) {
			expired = append(expired, e)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, e := range expired {
		e.sess.Close()
	}
	return len(expired)
}

// janitor prunes idle sessions until ctx is done.
func (s *server) janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.prune(); n > 0 {
				s.logger.Info().Int("expired", n).Msg("Idle sessions closed")
			}
		}
	}
}

// sessionHandler serves a request for an existing session.
type sessionHandler func(w http.ResponseWriter, r *http.Request, id string, sess *session.Session)

func (s *server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		sess, ok := s.lookup(id)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown session")
			return
		}
		h(w, r, id, sess)
	}
}

func (s *server) createSession(w http.ResponseWriter, r *http.Request) {
	cache := pagination.NewPageCache()
	nav := pagination.NewNavigator(s.fetcher, cache, s.config.Navigator)
	sess := session.New(nav, cache, s.config.Session)

	ctx, cancel := context.WithTimeout(r.Context(), s.config.OpTimeout)
	defer cancel()

	if err := sess.Open(ctx); err != nil {
		sess.Close()
		s.writeSessionError(w, err)
		return
	}

	id, err := s.add(sess)
	if err != nil {
		sess.Close()
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	sessLog := logging.ForSession(s.logger, id)
	sessLog.Info().Msg("Session opened")

	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *server) getSession(w http.ResponseWriter, r *http.Request, id string, sess *session.Session) {
	s.writeSnapshot(w, sess)
}

func (s *server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.remove(id) {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	sessLog := logging.ForSession(s.logger, id)
	sessLog.Info().Msg("Session closed")
	w.WriteHeader(http.StatusNoContent)
}

type pageRequest struct {
	Page int `json:"page"`
}

func (s *server) goToPage(w http.ResponseWriter, r *http.Request, id string, sess *session.Session) {
	var req pageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.OpTimeout)
	defer cancel()

	if err := sess.GoTo(ctx, req.Page); err != nil {
		s.writeSessionError(w, err)
		return
	}
	s.writeSnapshot(w, sess)
}

type toggleRequest struct {
	ID       string `json:"id"`
	Selected bool   `json:"selected"`
}

func (s *server) toggle(w http.ResponseWriter, r *http.Request, id string, sess *session.Session) {
	var req toggleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := sess.Toggle(req.ID, req.Selected); err != nil {
		s.writeSessionError(w, err)
		return
	}
	s.writeSnapshot(w, sess)
}

type selectAllRequest struct {
	Selected bool `json:"selected"`
}

func (s *server) selectAll(w http.ResponseWriter, r *http.Request, id string, sess *session.Session) {
	var req selectAllRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := sess.SelectAll(req.Selected); err != nil {
		s.writeSessionError(w, err)
		return
	}
	s.writeSnapshot(w, sess)
}

type bulkSelectRequest struct {
	Count int `json:"count"`
}

func (s *server) bulkSelect(w http.ResponseWriter, r *http.Request, id string, sess *session.Session) {
	var req bulkSelectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Count < 0 {
		writeError(w, http.StatusBadRequest, "count must not be negative")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.OpTimeout)
	defer cancel()

	if err := sess.BulkSelect(ctx, req.Count); err != nil {
		sessLog := logging.ForSession(s.logger, id)
		sessLog.Warn().Err(err).Int("count", req.Count).Msg("Bulk select interrupted")
		s.writeSessionError(w, err)
		return
	}
	s.writeSnapshot(w, sess)
}

func (s *server) selection(w http.ResponseWriter, r *http.Request, id string, sess *session.Session) {
	sel := sess.Selection()
	total := 0
	for _, ids := range sel {
		total += len(ids)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pages": sel,
		"total": total,
	})
}

func (s *server) writeSnapshot(w http.ResponseWriter, sess *session.Session) {
	snap, err := sess.View()
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// writeSessionError maps session and upstream errors to HTTP statuses.
func (s *server) writeSessionError(w http.ResponseWriter, err error) {
	var catErr *catalog.CatalogError

	switch {
	case errors.Is(err, session.ErrUnknownRecord),
		errors.Is(err, session.ErrPageOutOfRange),
		errors.Is(err, pagination.ErrInvalidPage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrNotOpen):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, catalog.ErrRateLimited):
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.As(err, &catErr) && catErr.StatusCode == http.StatusNotFound:
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error().Err(err).Msg("Upstream catalog failure")
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

// decodeBody reads a JSON request body, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
