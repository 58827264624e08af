package gateway

import (
	"errors"
	"net/http"
	"time"

	"github.com/example/cleanshop/pkg/cart"
	"github.com/example/cleanshop/pkg/catalog"
	"github.com/example/cleanshop/pkg/order"
	"github.com/example/cleanshop/pkg/profile"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const auditLimit = 50

func (g *Gateway) listProducts(c *gin.Context) {
	products, err := g.services.Catalog.List(c.Request.Context())
	if err != nil {
		g.logger.Error("Failed to list products", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "products unavailable"})
		return
	}
	products = catalog.Filter(products, c.Query("category"), c.Query("q"))
	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"total":    len(products),
	})
}

func cartView(s *cart.Store) gin.H {
	return gin.H{
		"items":       s.Items(),
		"total_items": s.TotalItems(),
		"total_price": s.TotalPrice(),
	}
}

func (g *Gateway) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, cartView(currentSession(c).Cart))
}

type addItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

// addCartItem prices the product server-side from the catalog.
func (g *Gateway) addCartItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := g.services.Catalog.Get(c.Request.Context(), req.ProductID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		g.logger.Error("Failed to get product", zap.String("product_id", req.ProductID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "products unavailable"})
		return
	}

	s := currentSession(c)
	s.Cart.AddItem(p.LineItem())
	c.JSON(http.StatusOK, cartView(s.Cart))
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (g *Gateway) updateCartItem(c *gin.Context) {
	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s := currentSession(c)
	if err := s.Cart.UpdateQuantity(c.Param("id"), *req.Quantity); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cartView(s.Cart))
}

func (g *Gateway) removeCartItem(c *gin.Context) {
	s := currentSession(c)
	s.Cart.RemoveItem(c.Param("id"))
	c.JSON(http.StatusOK, cartView(s.Cart))
}

func (g *Gateway) clearCart(c *gin.Context) {
	s := currentSession(c)
	s.Cart.ClearCart()
	c.JSON(http.StatusOK, cartView(s.Cart))
}

func (g *Gateway) checkout(c *gin.Context) {
	var form order.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s := currentSession(c)
	if !s.BeginSubmit() {
		c.JSON(http.StatusConflict, gin.H{"error": order.ErrSubmissionInProgress.Error()})
		return
	}
	defer s.EndSubmit()

	receipt, err := g.services.Workflow.SubmitOrder(c.Request.Context(), s.Cart, form)
	if err != nil {
		g.writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

func (g *Gateway) writeOrderError(c *gin.Context, err error) {
	var verr *order.ValidationError
	if errors.As(err, &verr) {
		problems := make([]string, len(verr.Problems))
		for i, p := range verr.Problems {
			problems[i] = p.Error()
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    verr.UserMessage(),
			"problems": problems,
		})
		return
	}

	var uf order.UserFacing
	if errors.As(err, &uf) {
		c.JSON(http.StatusBadGateway, gin.H{"error": uf.UserMessage()})
		return
	}

	g.logger.Error("Unexpected checkout failure", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func (g *Gateway) getProfile(c *gin.Context) {
	current := currentSession(c).Profile.Current()
	c.JSON(http.StatusOK, gin.H{
		"profile":   current,
		"logged_in": current != nil,
	})
}

func (g *Gateway) saveProfile(c *gin.Context) {
	var p profile.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := profile.Validate(p, time.Now()); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	s := currentSession(c)
	s.Profile.Login(p)
	c.JSON(http.StatusOK, gin.H{"profile": s.Profile.Current(), "logged_in": true})
}

func (g *Gateway) logout(c *gin.Context) {
	currentSession(c).Profile.Logout()
	c.JSON(http.StatusOK, gin.H{"logged_in": false})
}

func (g *Gateway) getOrder(c *gin.Context) {
	o, err := g.services.Orders.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, order.ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		g.logger.Error("Failed to get order", zap.String("order_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "orders unavailable"})
		return
	}
	c.JSON(http.StatusOK, o)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (g *Gateway) updateOrderStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	err := g.services.Orders.UpdateStatus(c.Request.Context(), id, req.Status)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"id": id, "status": req.Status})
	case errors.Is(err, order.ErrInvalidStatus):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, order.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		g.logger.Error("Failed to update order status", zap.String("order_id", id), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "orders unavailable"})
	}
}

func (g *Gateway) getOrderAudit(c *gin.Context) {
	if g.services.History == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit log not configured"})
		return
	}
	id := c.Param("id")
	logs, err := g.services.History.OrderHistory(c.Request.Context(), id, auditLimit)
	if err != nil {
		g.logger.Error("Failed to read order history", zap.String("order_id", id), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "audit log unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id, "events": logs})
}
