package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"felixmart/internal/domain"
	"felixmart/internal/infrastructure/cashfree"
	"felixmart/internal/usecase"
)

func (s *Server) err(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":      code,
			"message":   msg,
			"requestId": c.GetString(ctxRequestID),
		},
	})
}

func (s *Server) json(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

// fail maps a service error onto the error envelope.
func (s *Server) fail(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", c.FullPath(), "err", err, "request_id", c.GetString(ctxRequestID))
		if status == http.StatusInternalServerError {
			s.err(c, status, code, "internal error")
			return
		}
	}
	s.err(c, status, code, err.Error())
}

func classify(err error) (int, string) {
	var (
		verr  *domain.ValidationError
		gerr  *cashfree.GatewayRequestFailed
		nf    usecase.ErrNotFound
		cf    usecase.ErrConflict
		br    usecase.ErrBadRequest
		fb    usecase.ErrForbidden
		vferr *usecase.VerificationError
	)
	switch {
	case errors.As(err, &verr), errors.As(err, &br):
		return http.StatusBadRequest, "BadRequest"
	case errors.As(err, &nf):
		return http.StatusNotFound, "NotFound"
	case errors.As(err, &cf):
		return http.StatusConflict, "Conflict"
	case errors.As(err, &fb):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, usecase.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, cashfree.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable, "GatewayUnavailable"
	case errors.As(err, &gerr), errors.As(err, &vferr):
		return http.StatusBadGateway, "GatewayError"
	default:
		return http.StatusInternalServerError, "ServerError"
	}
}
