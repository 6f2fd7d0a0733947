// Package server exposes sivaguard evaluations over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeGROOVE-dev/sivaguard/pkg/httpcache"
	"github.com/codeGROOVE-dev/sivaguard/pkg/identity"
	"github.com/codeGROOVE-dev/sivaguard/pkg/sivaguard"
)

// MaxIdentities bounds how many identities one request may carry.
const MaxIdentities = 50

var errTooManyIdentities = fmt.Errorf("too many identities: at most %d per request", MaxIdentities)

// Evaluator runs evaluations. *sivaguard.Guard satisfies it.
type Evaluator interface {
	Verify(ctx context.Context, claims []identity.Claim) (*sivaguard.Result, error)
	Evaluate(ctx context.Context, set *identity.Set) (*sivaguard.Result, error)
}

// StatsReporter reports HTTP cache statistics. *httpcache.Client satisfies it.
type StatsReporter interface {
	Stats() httpcache.Stats
}

// Server is the HTTP API.
type Server struct {
	eval    Evaluator
	stats   StatsReporter
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithStats reports cache statistics on /health.
func WithStats(r StatsReporter) Option {
	return func(s *Server) { s.stats = r }
}

// WithRequestTimeout bounds each evaluation. Zero means no extra bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// New returns a Server backed by eval.
func New(eval Evaluator, opts ...Option) *Server {
	s := &Server{eval: eval, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// VerifyRequest is the body of POST /verify. "claims" is accepted as an
// alias for "identities".
type VerifyRequest struct {
	Identities []identity.Claim `json:"identities"`
	Claims     []identity.Claim `json:"claims,omitempty"`
}

// EvaluateRequest is the body of POST /evaluate.
type EvaluateRequest struct {
	PerIdentity *identity.Set `json:"per_identity"`
}

// SetupRouter builds the gin engine with every route registered.
func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.Health)
	r.POST("/verify", s.Verify)
	r.POST("/evaluate", s.Evaluate)
	return r
}

// Health reports liveness and cache statistics.
func (s *Server) Health(c *gin.Context) {
	body := gin.H{"ok": true}
	if s.stats != nil {
		body["cache"] = s.stats.Stats()
	}
	c.JSON(http.StatusOK, body)
}

// Verify collects evidence for the posted claims and evaluates it.
func (s *Server) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	claims := req.Identities
	if len(claims) == 0 {
		claims = req.Claims
	}
	if len(claims) > MaxIdentities {
		respondError(c, http.StatusBadRequest, "too_many_identities", errTooManyIdentities)
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()
	res, err := s.eval.Verify(ctx, claims)
	s.respond(c, res, err)
}

// Evaluate scores a pre-collected per-identity map.
func (s *Server) Evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.PerIdentity.Len() > MaxIdentities {
		respondError(c, http.StatusBadRequest, "too_many_identities", errTooManyIdentities)
		return
	}
	for key, rec := range req.PerIdentity.All() {
		if _, err := identity.ParsePlatform(string(rec.Platform)); err != nil {
			respondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("%s: %w", key, err))
			return
		}
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()
	res, err := s.eval.Evaluate(ctx, req.PerIdentity)
	s.respond(c, res, err)
}

func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(c.Request.Context(), s.timeout)
	}
	return context.WithCancel(c.Request.Context())
}

func (s *Server) respond(c *gin.Context, res *sivaguard.Result, err error) {
	switch {
	case res == nil && err != nil:
		respondError(c, http.StatusBadRequest, "invalid_request", err)
	case err != nil:
		s.logger.WarnContext(c.Request.Context(), "evaluation incomplete", "id", res.ID, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, res)
	default:
		c.JSON(http.StatusOK, res)
	}
}

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, gin.H{"error": apiError{Message: msg, Code: code}})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.InfoContext(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
