// Package storefront implements the demo business endpoints that host the
// fault-injection engine. The domain logic is deliberately thin in-memory
// CRUD; what matters is that every endpoint runs the infrastructure chaos
// check and then the request-level failure check before touching its data,
// and maps injected faults to a distinguishable response.
package storefront

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joseaugf/cop320-cw/pkg/api"
	"github.com/joseaugf/cop320-cw/pkg/cerrors"
	"github.com/joseaugf/cop320-cw/pkg/chaos/failure"
	"github.com/joseaugf/cop320-cw/pkg/chaos/infra"
	"github.com/joseaugf/cop320-cw/pkg/flags"
)

type Product struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int    `json:"price_cents"`
}

type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type Order struct {
	OrderID string     `json:"order_id"`
	CartID  string     `json:"cart_id"`
	Items   []CartItem `json:"items"`
}

// Handler wires the simulators in front of the demo endpoints. Both
// simulators are injected by the composition root; the handler owns no
// chaos state of its own.
type Handler struct {
	service  string
	source   flags.Source
	chaos    *infra.Simulator
	failures *failure.Simulator

	mu       sync.Mutex
	carts    map[string][]CartItem
	products []Product
}

func NewHandler(service string, source flags.Source, chaos *infra.Simulator, failures *failure.Simulator) *Handler {
	return &Handler{
		service:  service,
		source:   source,
		chaos:    chaos,
		failures: failures,
		carts:    map[string][]CartItem{},
		products: []Product{
			{ID: "p-1001", Name: "Espresso Machine", PriceCents: 24900},
			{ID: "p-1002", Name: "Burr Grinder", PriceCents: 9900},
			{ID: "p-1003", Name: "Pour-Over Kettle", PriceCents: 4500},
		},
	}
}

func (h *Handler) Register(r gin.IRouter) {
	r.GET("/api/products", h.listProducts)
	r.GET("/api/products/:id", h.getProduct)
	r.GET("/api/cart/:id", h.getCart)
	r.POST("/api/cart/:id/items", h.addCartItem)
	r.POST("/api/checkout/:cartId", h.checkout)
}

// applyChaos runs the infrastructure chaos check followed by the
// request-level failure check. The infrastructure check always runs first:
// network-delay chaos is additive with high-latency chaos when both flags
// are enabled.
func (h *Handler) applyChaos(c *gin.Context, operation string) bool {
	ctx := c.Request.Context()
	h.chaos.CheckAndApplyChaos(ctx, h.service, h.source)
	if err := h.failures.CheckAndApplyFailures(ctx, operation); err != nil {
		api.WriteError(c, err)
		return false
	}
	return true
}

func (h *Handler) listProducts(c *gin.Context) {
	if !h.applyChaos(c, "catalog") {
		return
	}
	c.JSON(http.StatusOK, h.products)
}

func (h *Handler) getProduct(c *gin.Context) {
	if !h.applyChaos(c, "catalog") {
		return
	}
	id := c.Param("id")
	for _, p := range h.products {
		if p.ID == id {
			c.JSON(http.StatusOK, p)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "product '" + id + "' not found"}})
}

func (h *Handler) getCart(c *gin.Context) {
	if !h.applyChaos(c, "cart") {
		return
	}
	h.mu.Lock()
	items := append([]CartItem{}, h.carts[c.Param("id")]...)
	h.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"cart_id": c.Param("id"), "items": items})
}

func (h *Handler) addCartItem(c *gin.Context) {
	if !h.applyChaos(c, "cart") {
		return
	}
	var item CartItem
	if err := c.ShouldBindJSON(&item); err != nil {
		api.WriteError(c, cerrors.Validation{Reason: "malformed cart item: " + err.Error()})
		return
	}
	h.mu.Lock()
	h.carts[c.Param("id")] = append(h.carts[c.Param("id")], item)
	items := append([]CartItem{}, h.carts[c.Param("id")]...)
	h.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"cart_id": c.Param("id"), "items": items})
}

func (h *Handler) checkout(c *gin.Context) {
	if !h.applyChaos(c, "checkout") {
		return
	}
	cartID := c.Param("cartId")
	h.mu.Lock()
	items := h.carts[cartID]
	delete(h.carts, cartID)
	h.mu.Unlock()
	c.JSON(http.StatusOK, Order{
		OrderID: uuid.NewString(),
		CartID:  cartID,
		Items:   items,
	})
}
