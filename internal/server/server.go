// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes librarian sessions to a browser front end over
// HTTP. Each client gets its own session, identified by a uuid carried in
// the X-Librarian-Session header; all of a session's mutations run on its
// own session.Loop.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pdiddy/librarian/internal/history"
	"github.com/pdiddy/librarian/internal/normalize"
	"github.com/pdiddy/librarian/internal/session"
	"github.com/pdiddy/librarian/pkg/types"
)

// SessionHeader carries the client's session id in requests and responses.
const SessionHeader = "X-Librarian-Session"

// Session limits applied when ServerConfig leaves them unset.
const (
	DefaultSessionTTL  = 30 * time.Minute
	DefaultMaxSessions = 1000
)

const shutdownTimeout = 5 * time.Second

// Deps are the collaborators shared by every client session.
type Deps struct {
	Backend    session.Backend
	Normalizer *normalize.Normalizer

	// History persists each client's history under its own key. Nil keeps
	// history in memory.
	History history.KV
	// HistoryKey prefixes the per-client key (default "searchHistory").
	HistoryKey   string
	HistoryLimit int

	// Warnings receives degraded-operation notices. AccessLog receives one
	// line per request. Either may be nil.
	Warnings  io.Writer
	AccessLog io.Writer
}

// Server routes API requests to per-client session loops.
type Server struct {
	cfg  types.ServerConfig
	deps Deps

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[uuid.UUID]*sessionEntry
	now      func() time.Time

	engine *gin.Engine
}

// New returns a Server. Call Close (or let Run return) to stop the session
// loops it starts. Sessions idle for longer than cfg.SessionTTL are stopped.
func New(cfg types.ServerConfig, deps Deps) *Server {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if deps.Normalizer == nil {
		deps.Normalizer = normalize.Default()
	}
	if deps.HistoryKey == "" {
		deps.HistoryKey = history.DefaultKey
	}
	if deps.Warnings == nil {
		deps.Warnings = io.Discard
	}
	if deps.AccessLog == nil {
		deps.AccessLog = io.Discard
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:      cfg,
		deps:     deps,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[uuid.UUID]*sessionEntry),
		now:      time.Now,
	}
	s.engine = s.router()
	return s
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.LoggerWithWriter(s.deps.AccessLog), gin.Recovery())
	r.Use(cors.New(corsConfig(s.cfg.AllowOrigins)))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.SessionCount()})
	})

	api := r.Group("/api")
	api.POST("/normalize", s.normalize)

	h := &handler{}
	h.RegisterRoutes(api.Group("", s.peekSession()), api.Group("", s.withSession()))
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", SessionHeader},
		ExposeHeaders: []string{SessionHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully and stops every session loop.
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()
	go s.reap()

	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// Close stops all session loops.
func (s *Server) Close() {
	s.cancel()
}

// SessionCount returns the number of live client sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

type sessionEntry struct {
	loop     *session.Loop
	stop     context.CancelFunc
	lastUsed time.Time
}

// loop returns the session loop for id, starting one on first use. A new
// session loads whatever history was persisted under id.
func (s *Server) loop(id uuid.UUID) *session.Loop {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.evictIdleLocked(now)
	if e, ok := s.sessions[id]; ok {
		e.lastUsed = now
		return e.loop
	}
	if len(s.sessions) >= s.cfg.MaxSessions {
		s.evictOldestLocked()
	}

	ctx, stop := context.WithCancel(s.ctx)
	l := session.NewLoop(s.newSession(ctx, id), s.deps.Backend)
	go l.Run(ctx)
	s.sessions[id] = &sessionEntry{loop: l, stop: stop, lastUsed: now}
	return l
}

// lookup returns the live loop for id without starting one.
func (s *Server) lookup(id uuid.UUID) (*session.Loop, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.evictIdleLocked(now)
	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastUsed = now
	return e.loop, true
}

func (s *Server) newSession(ctx context.Context, id uuid.UUID) *session.Session {
	hist := history.Open(ctx, s.deps.History,
		history.WithKey(s.deps.HistoryKey+"-"+id.String()),
		history.WithLimit(s.deps.HistoryLimit),
		history.WithWarnings(s.deps.Warnings),
	)
	return session.New(s.deps.Normalizer, hist)
}

func (s *Server) evictIdleLocked(now time.Time) {
	for id, e := range s.sessions {
		if now.Sub(e.lastUsed) > s.cfg.SessionTTL {
			e.stop()
			delete(s.sessions, id)
		}
	}
}

func (s *Server) evictOldestLocked() {
	var (
		oldest uuid.UUID
		at     time.Time
	)
	for id, e := range s.sessions {
		if at.IsZero() || e.lastUsed.Before(at) {
			oldest, at = id, e.lastUsed
		}
	}
	if e, ok := s.sessions[oldest]; ok {
		e.stop()
		delete(s.sessions, oldest)
	}
}

// reap stops idle sessions until the server closes.
func (s *Server) reap() {
	interval := min(s.cfg.SessionTTL, time.Minute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			s.evictIdleLocked(s.now())
			s.mu.Unlock()
		}
	}
}

const (
	loopKey     = "librarian_loop"
	snapshotKey = "librarian_snapshot"
)

// withSession resolves the caller's session from SessionHeader, issuing a
// fresh id when the header is missing or malformed, and echoes the id back.
func (s *Server) withSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sessionID(c)
		if !ok {
			id = uuid.New()
		}
		c.Header(SessionHeader, id.String())
		c.Set(loopKey, s.loop(id))
		c.Next()
	}
}

// peekSession serves read-only routes. A live session is used as is;
// otherwise the handler gets a snapshot of a fresh session (with the
// persisted history of a known id) and no session is started.
func (s *Server) peekSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sessionID(c)
		if !ok {
			c.Set(snapshotKey, session.New(s.deps.Normalizer, history.Open(c.Request.Context(), nil)).State())
			c.Next()
			return
		}
		c.Header(SessionHeader, id.String())
		if l, live := s.lookup(id); live {
			c.Set(loopKey, l)
		} else {
			c.Set(snapshotKey, s.newSession(c.Request.Context(), id).State())
		}
		c.Next()
	}
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetHeader(SessionHeader))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func mustGetLoop(c *gin.Context) *session.Loop {
	return c.MustGet(loopKey).(*session.Loop)
}

// currentState returns the state of the caller's live session, or the
// snapshot set by peekSession.
func currentState(c *gin.Context) (session.State, error) {
	if v, ok := c.Get(loopKey); ok {
		return v.(*session.Loop).State(c.Request.Context())
	}
	return c.MustGet(snapshotKey).(session.State), nil
}

type normalizeRequest struct {
	Kind   string          `json:"kind"`
	Record types.RawRecord `json:"record" binding:"required"`
}

func (s *Server) normalize(c *gin.Context) {
	var req normalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.deps.Normalizer.Normalize(req.Record, types.ParseKind(req.Kind)))
}
