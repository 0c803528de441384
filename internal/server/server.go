package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"felixmart/internal/checkout"
	"felixmart/internal/config"
	"felixmart/internal/infrastructure/idempotency"
	"felixmart/internal/usecase"
)

type Deps struct {
	Orders      *usecase.OrderService
	Carts       *usecase.CartService
	Checkout    *usecase.CheckoutService
	Verify      *usecase.VerifyService
	Auth        *usecase.AuthService
	Flow        *checkout.Controller
	Idempotency idempotency.Store
	// Webhooks is nil unless webhook reconciliation is switched on.
	Webhooks *usecase.WebhookService
	Checkers []Checker
	Log      *slog.Logger
}

type Server struct {
	cfg    config.Config
	d      Deps
	log    *slog.Logger
	router *gin.Engine
	now    func() time.Time
}

func New(cfg config.Config, d Deps) *Server {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	r := gin.New()
	s := &Server{cfg: cfg, d: d, log: log, router: r, now: time.Now}
	r.Use(s.requestID(), s.recovery(), s.accessLog(), s.cors())
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "felixmart")
}

func (s *Server) routes() {
	r := s.router
	r.GET("/health", s.handleHealth)
	r.GET("/health/ready", s.handleReady)

	fn := r.Group("/functions/v1")
	{
		fn.POST("/cashfree-checkout", s.handleCashfreeCheckout)
		fn.POST("/verify-payment", s.authenticate(), s.handleVerifyPayment)
	}

	api := r.Group("/api", s.authenticate())
	{
		api.GET("/cart", s.handleListCart)
		api.POST("/cart", s.handleAddToCart)
		api.PUT("/cart/:productId", s.handleSetCartQuantity)
		api.DELETE("/cart/:productId", s.handleRemoveFromCart)

		api.POST("/checkout", s.handleCheckout)
		api.GET("/checkout/return", s.handleCheckoutReturn)

		api.GET("/orders", s.handleListOrders)
		api.GET("/orders/:id", s.handleGetOrder)
	}

	admin := r.Group("/admin", s.authenticate(), s.requireAdmin())
	{
		admin.GET("/orders", s.handleListOrders)
		admin.PATCH("/orders/:id/status", s.handleUpdateOrderStatus)
	}
	r.POST("/update-order-status", s.authenticate(), s.requireAdmin(), s.handleLegacyUpdateOrderStatus)

	if s.d.Webhooks != nil {
		r.POST("/webhooks/cashfree", s.handleCashfreeWebhook)
	}
}
