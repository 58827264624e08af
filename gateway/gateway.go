package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/example/cleanshop/pkg/catalog"
	"github.com/example/cleanshop/pkg/config"
	"github.com/example/cleanshop/pkg/order"
	"github.com/example/cleanshop/pkg/repository"
	"github.com/example/cleanshop/pkg/session"
	"github.com/gin-gonic/gin"
	"github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// SessionHeader carries the shopper's session id in both directions.
const SessionHeader = "X-Session-ID"

const sessionKey = "session"

// OrderHistory reads the audit trail of an order. MongoRepository
// satisfies it.
type OrderHistory interface {
	OrderHistory(ctx context.Context, orderID string, limit int64) ([]*repository.AuditLog, error)
}

// Services are the collaborators the HTTP API is built on. History may be
// nil.
type Services struct {
	Catalog  *catalog.Service
	Sessions *session.Manager
	Workflow *order.Workflow
	Orders   *order.Orders
	History  OrderHistory
}

type Gateway struct {
	config   *config.Config
	services Services
	logger   *zap.Logger
	router   *gin.Engine
	server   *http.Server
}

func NewGateway(cfg *config.Config, logger *zap.Logger, services Services) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	return &Gateway{
		config:   cfg,
		services: services,
		logger:   logger,
		router:   router,
	}
}

func (g *Gateway) SetupRoutes() {
	g.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := g.router.Group("/api/v1")
	{
		v1.GET("/products", g.listProducts)

		shopper := v1.Group("", g.sessionMiddleware())
		{
			cart := shopper.Group("/cart")
			{
				cart.GET("", g.getCart)
				cart.POST("/items", g.addCartItem)
				cart.PUT("/items/:id", g.updateCartItem)
				cart.DELETE("/items/:id", g.removeCartItem)
				cart.DELETE("", g.clearCart)
			}

			shopper.POST("/checkout", g.checkout)

			profile := shopper.Group("/profile")
			{
				profile.GET("", g.getProfile)
				profile.PUT("", g.saveProfile)
				profile.DELETE("", g.logout)
			}
		}

		orders := v1.Group("/orders")
		{
			orders.GET("/:id", g.getOrder)
			orders.PUT("/:id/status", g.updateOrderStatus)
			orders.GET("/:id/audit", g.getOrderAudit)
		}
	}

	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// Handler exposes the router, mainly for tests.
func (g *Gateway) Handler() http.Handler {
	return g.router
}

func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.config.Gateway.Host, g.config.Gateway.Port)
	g.server = &http.Server{
		Addr:              addr,
		Handler:           g.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.logger.Info("Gateway starting", zap.String("address", addr))

	err := g.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}

// sessionMiddleware resolves the shopper's session, echoes its id and
// persists it after any request that may have changed it.
func (g *Gateway) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := g.services.Sessions.Get(c.Request.Context(), c.GetHeader(SessionHeader))
		if err != nil {
			g.logger.Error("Failed to load session", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session unavailable"})
			return
		}
		c.Header(SessionHeader, s.ID)
		c.Set(sessionKey, s)

		c.Next()

		if c.Request.Method == http.MethodGet {
			return
		}
		if err := g.services.Sessions.Save(c.Request.Context(), s); err != nil {
			g.logger.Warn("Failed to save session", zap.String("session_id", s.ID), zap.Error(err))
		}
	}
}

func currentSession(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
