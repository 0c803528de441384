package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type cartItemReq struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (s *Server) handleListCart(c *gin.Context) {
	items, err := s.d.Carts.List(c.Request.Context(), principal(c).UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.json(c, http.StatusOK, gin.H{"items": items})
}

func (s *Server) handleAddToCart(c *gin.Context) {
	var req cartItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.err(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	item, err := s.d.Carts.Add(c.Request.Context(), principal(c).UserID, req.ProductID, req.Quantity)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.json(c, http.StatusOK, item)
}

func (s *Server) handleSetCartQuantity(c *gin.Context) {
	var req cartItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.err(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	item, err := s.d.Carts.SetQuantity(c.Request.Context(), principal(c).UserID, c.Param("productId"), req.Quantity)
	if err != nil {
		s.fail(c, err)
		return
	}
	if item == nil {
		c.Status(http.StatusNoContent)
		return
	}
	s.json(c, http.StatusOK, item)
}

func (s *Server) handleRemoveFromCart(c *gin.Context) {
	if err := s.d.Carts.Remove(c.Request.Context(), principal(c).UserID, c.Param("productId")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
