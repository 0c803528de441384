package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Checker is one dependency probed by the readiness endpoint.
type Checker interface {
	Name() string
	Ping(ctx context.Context) error
}

type pingChecker struct {
	name string
	ping func(ctx context.Context) error
}

func (p pingChecker) Name() string                   { return p.name }
func (p pingChecker) Ping(ctx context.Context) error { return p.ping(ctx) }

// NewChecker adapts a ping function, such as a store's Ping, to Checker.
func NewChecker(name string, ping func(ctx context.Context) error) Checker {
	return pingChecker{name: name, ping: ping}
}

type componentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency"`
}

func (s *Server) handleHealth(c *gin.Context) {
	s.json(c, http.StatusOK, gin.H{
		"status":    "OK",
		"mock_mode": s.cfg.MockMode,
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	status := http.StatusOK
	overall := "healthy"
	components := make(map[string]componentHealth, len(s.d.Checkers))
	for _, ch := range s.d.Checkers {
		start := time.Now()
		err := ch.Ping(ctx)
		h := componentHealth{Status: "healthy", Latency: time.Since(start).String()}
		if err != nil {
			h.Status = "unhealthy"
			h.Message = err.Error()
			overall = "unhealthy"
			status = http.StatusServiceUnavailable
		}
		components[ch.Name()] = h
	}
	s.json(c, status, gin.H{
		"status":     overall,
		"timestamp":  s.now().UTC().Format(time.RFC3339),
		"components": components,
	})
}
