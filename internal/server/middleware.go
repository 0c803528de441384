package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"felixmart/internal/domain"
)

const (
	ctxRequestID = "request_id"
	ctxPrincipal = "principal"
)

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		s.log.Error("panic serving request", "path", c.Request.URL.Path, "panic", rec, "request_id", c.GetString(ctxRequestID))
		s.err(c, http.StatusInternalServerError, "ServerError", "internal error")
	})
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString(ctxRequestID),
		)
	}
}

func (s *Server) cors() gin.HandlerFunc {
	origin := s.cfg.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type, idempotency-key, x-request-id")
		c.Header("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			s.err(c, http.StatusUnauthorized, "Unauthorized", "bearer token required")
			return
		}
		p, err := s.d.Auth.Verify(strings.TrimSpace(token))
		if err != nil {
			s.err(c, http.StatusUnauthorized, "Unauthorized", "invalid token")
			return
		}
		c.Set(ctxPrincipal, p)
		c.Next()
	}
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !principal(c).Admin {
			s.err(c, http.StatusForbidden, "Forbidden", "admin only")
			return
		}
		c.Next()
	}
}

func principal(c *gin.Context) domain.Principal {
	v, _ := c.Get(ctxPrincipal)
	p, _ := v.(domain.Principal)
	return p
}
