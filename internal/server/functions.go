package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"felixmart/internal/domain"
	"felixmart/internal/infrastructure/cashfree"
	"felixmart/internal/usecase"
)

// The /functions/v1 endpoints keep the flat {error, details} body the
// storefront already parses.

func (s *Server) handleCashfreeCheckout(c *gin.Context) {
	var req usecase.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json", "details": err.Error()})
		return
	}
	resp, err := s.d.Checkout.CreateSession(c.Request.Context(), req)
	if err != nil {
		var (
			verr *domain.ValidationError
			gerr *cashfree.GatewayRequestFailed
		)
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
		case errors.As(err, &gerr):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create payment session", "details": gerr.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create payment session", "details": err.Error()})
		}
		return
	}
	s.json(c, http.StatusOK, resp)
}

func (s *Server) handleVerifyPayment(c *gin.Context) {
	var req usecase.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json", "payment_status": domain.PaymentUnknown})
		return
	}
	ctx := c.Request.Context()
	// Only the order's owner or an admin may see its payment status.
	if req.OrderID != "" {
		if _, err := s.d.Orders.Get(ctx, principal(c), req.OrderID); err != nil {
			var nf usecase.ErrNotFound
			if errors.As(err, &nf) {
				c.JSON(http.StatusNotFound, gin.H{"error": nf.Error(), "payment_status": domain.PaymentUnknown})
				return
			}
			s.log.Error("verify payment order lookup failed", "err", err, "order_id", req.OrderID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "payment_status": domain.PaymentUnknown})
			return
		}
	}
	resp, err := s.d.Verify.Verify(ctx, req)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "payment_status": domain.PaymentUnknown})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "payment_status": domain.PaymentUnknown})
		return
	}
	s.json(c, http.StatusOK, resp)
}
