package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/partsdesk/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares. The
// /metrics route is only mounted when metrics is non-nil.
func New(handler *handlers.DashboardHandler, metrics http.Handler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	d := r.Group("/dashboard")
	d.GET("/inventory", handler.Inventory)
	d.POST("/inventory/refresh", handler.Refresh)
	d.PUT("/filters", handler.SetFilters)
	d.POST("/sort/:field", handler.Sort)
	d.POST("/page/:page", handler.Page)

	d.POST("/items", handler.CreateItem)
	d.PATCH("/items/:code", handler.UpdateItem)
	d.DELETE("/items/:code", handler.DeleteItem)
	d.POST("/items/:code/sell", handler.SellItem)
	d.POST("/items/:code/restock", handler.RestockItem)

	d.GET("/analytics", handler.Analytics)
	d.GET("/sales", handler.Sales)
	d.GET("/overview", handler.Overview)
	d.GET("/export/:kind", handler.Export)
	d.GET("/notifications", handler.Notifications)
	d.GET("/snapshots", handler.Snapshots)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
