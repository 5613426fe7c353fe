package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/scalekarrt/orderdesk/internal/server/http/handlers"
	"github.com/scalekarrt/orderdesk/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.CommerceFacade, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	orderHandler := handlers.NewOrderHandler(facade)
	paymentHandler := handlers.NewPaymentHandler(facade)
	webhookHandler := handlers.NewWebhookHandler(facade)

	api := engine.Group("/api")
	api.POST("/webhooks/payment", webhookHandler.Receive)

	authed := api.Group("")
	authed.Use(middleware.AuthRequired(facade))
	authed.POST("/orders", orderHandler.Create)
	authed.GET("/orders", orderHandler.List)
	authed.GET("/orders/:id", orderHandler.Get)
	authed.PUT("/orders/:id/status", orderHandler.UpdateStatus)
	authed.POST("/orders/:id/cancel", orderHandler.Cancel)
	authed.POST("/orders/:id/payment", paymentHandler.Confirm)
	authed.POST("/orders/:id/payment/intent", paymentHandler.RetryIntent)
	authed.POST("/orders/:id/refund", paymentHandler.Refund)
	authed.GET("/seller/orders", orderHandler.ListForSeller)
	authed.POST("/cart/quote", orderHandler.Quote)
	authed.POST("/payments/verify", paymentHandler.Verify)

	return engine
}
