package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"felixmart/internal/domain"
)

func (s *Server) handleListOrders(c *gin.Context) {
	f := domain.OrderFilter{UserID: c.Query("user_id")}
	if st := c.Query("status"); st != "" {
		parsed, ok := domain.ParseOrderStatus(st)
		if !ok {
			s.err(c, http.StatusBadRequest, "BadRequest", "invalid status")
			return
		}
		f.Status = parsed
	}
	f.Page, _ = strconv.Atoi(c.Query("page"))
	f.PageSize, _ = strconv.Atoi(c.Query("page_size"))
	f = f.Normalize()
	orders, total, err := s.d.Orders.List(c.Request.Context(), principal(c), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.json(c, http.StatusOK, gin.H{"orders": orders, "total": total, "page": f.Page, "page_size": f.PageSize})
}

func (s *Server) handleGetOrder(c *gin.Context) {
	o, err := s.d.Orders.Get(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.json(c, http.StatusOK, o)
}

type statusReq struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

func (s *Server) handleUpdateOrderStatus(c *gin.Context) {
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.err(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	s.updateStatus(c, c.Param("id"), req.Status)
}

// handleLegacyUpdateOrderStatus serves the older admin page, which posts the
// order id in the body.
func (s *Server) handleLegacyUpdateOrderStatus(c *gin.Context) {
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil || req.OrderID == "" {
		s.err(c, http.StatusBadRequest, "BadRequest", "order_id and status required")
		return
	}
	s.updateStatus(c, req.OrderID, req.Status)
}

func (s *Server) updateStatus(c *gin.Context, id, status string) {
	o, err := s.d.Orders.UpdateStatus(c.Request.Context(), id, status)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.json(c, http.StatusOK, o)
}

func (s *Server) handleCashfreeWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		s.err(c, http.StatusBadRequest, "BadRequest", "cannot read body")
		return
	}
	changed, err := s.d.Webhooks.Handle(c.Request.Context(),
		c.GetHeader("x-webhook-timestamp"), c.GetHeader("x-webhook-signature"), body)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.json(c, http.StatusOK, gin.H{"ok": true, "updated": changed})
}
