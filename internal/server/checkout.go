package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"felixmart/internal/checkout"
	"felixmart/internal/domain"
	"felixmart/internal/infrastructure/idempotency"
)

type checkoutReq struct {
	Shipping domain.ShippingAddress `json:"shipping_address"`
}

type attemptResp struct {
	*checkout.Attempt
	RetryAfterMs int64 `json:"retry_after_ms,omitempty"`
}

const idempotencyWriteTimeout = 5 * time.Second

type cachedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

func (s *Server) handleCheckout(c *gin.Context) {
	ctx := c.Request.Context()
	p := principal(c)
	var req checkoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.err(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}

	key := c.GetHeader("Idempotency-Key")
	if key != "" && s.d.Idempotency != nil {
		// Keys are per user so one shopper cannot replay another's checkout.
		key = p.UserID + ":" + key
		state, payload, err := s.d.Idempotency.Begin(ctx, key)
		if err != nil {
			s.log.Error("idempotency store unavailable", "err", err)
			s.err(c, http.StatusServiceUnavailable, "Unavailable", "idempotency store unavailable")
			return
		}
		switch state {
		case idempotency.StateInFlight:
			s.err(c, http.StatusConflict, "Conflict", "checkout already in progress")
			return
		case idempotency.StateDone:
			var cached cachedResponse
			if err := json.Unmarshal(payload, &cached); err == nil {
				c.Header("Idempotent-Replayed", "true")
				c.Data(cached.Status, "application/json; charset=utf-8", cached.Body)
				return
			}
			s.log.Warn("discarding unreadable idempotency record")
		}
	} else {
		key = ""
	}

	a, err := s.d.Flow.Submit(ctx, p, req.Shipping)
	status := http.StatusCreated
	var body any = attemptResp{Attempt: a, RetryAfterMs: a.RetryAfter.Milliseconds()}
	if err != nil {
		st, code := classify(err)
		status = st
		msg := err.Error()
		if st == http.StatusInternalServerError {
			s.log.Error("checkout failed", "err", err, "user_id", p.UserID)
			msg = "internal error"
		}
		body = gin.H{
			"error":   gin.H{"code": code, "message": msg, "requestId": c.GetString(ctxRequestID)},
			"attempt": a,
		}
	}
	raw, merr := json.Marshal(body)
	if merr != nil {
		s.fail(c, merr)
		return
	}
	if key != "" {
		s.finishIdempotent(c, key, status, raw)
	}
	c.Data(status, "application/json; charset=utf-8", raw)
}

// finishIdempotent records the response so a retried request gets the same
// answer. Server-side failures release the key so the client may retry.
// The record is written even when the client has already gone away.
func (s *Server) finishIdempotent(c *gin.Context, key string, status int, body []byte) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), idempotencyWriteTimeout)
	defer cancel()
	if status >= http.StatusInternalServerError {
		if err := s.d.Idempotency.Release(ctx, key); err != nil {
			s.log.Warn("release idempotency key failed", "err", err)
		}
		return
	}
	payload, _ := json.Marshal(cachedResponse{Status: status, Body: body})
	if err := s.d.Idempotency.Complete(ctx, key, payload); err != nil {
		s.log.Warn("store idempotency record failed", "err", err)
	}
}

func (s *Server) handleCheckoutReturn(c *gin.Context) {
	a, err := s.d.Flow.Return(c.Request.Context(), principal(c), c.Query("order_id"), c.Query("payment_session_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.json(c, http.StatusOK, attemptResp{Attempt: a})
}
