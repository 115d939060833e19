package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"tokoorders/internal/models"
	"tokoorders/internal/services"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	engine  *services.ReservationEngine
	guard   *services.StatusGuard
	listing *services.ListingService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(engine *services.ReservationEngine, guard *services.StatusGuard, listing *services.ListingService) *OrderHandler {
	return &OrderHandler{
		engine:  engine,
		guard:   guard,
		listing: listing,
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/", h.HandleListOrders)
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Get("/stats", h.HandleStats)
	orderRoutes.Get("/:id<int>", h.HandleGetOrderByID)
	orderRoutes.Put("/:id<int>", h.HandleUpdateOrderStatus)
	orderRoutes.Patch("/:id<int>/status", h.HandleUpdateOrderStatus)
	orderRoutes.Delete("/:id<int>", h.HandleDeleteOrder)
}

// createOrderRequest accepts the buyer as buyer_id or user_id.
type createOrderRequest struct {
	BuyerID int64             `json:"buyer_id"`
	UserID  int64             `json:"user_id"`
	Items   []models.CartItem `json:"items"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func pathID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}

// HandleListOrders returns one page of orders, newest first. Optional query
// parameters: page, status, user_id.
func (h *OrderHandler) HandleListOrders(c *fiber.Ctx) error {
	filter := models.OrderFilter{
		Status: models.OrderStatus(c.Query("status")),
	}
	if raw := c.Query("user_id"); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return badRequest(c, "user_id must be an integer")
		}
		filter.UserID = userID
	}

	page, err := h.listing.ListOrders(c.UserContext(), c.QueryInt("page", 1), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// HandleGetOrderByID returns an order with its items.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, "invalid order id")
	}
	order, err := h.listing.GetOrder(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(order)
}

// HandleCreateOrder places an order for every line of the cart or none.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	cart := models.Cart{BuyerID: req.BuyerID, Items: req.Items}
	if cart.BuyerID == 0 {
		cart.BuyerID = req.UserID
	}

	placement, err := h.engine.PlaceOrder(c.UserContext(), cart)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(placement)
}

// HandleUpdateOrderStatus moves an order to the status named in the body.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, "invalid order id")
	}
	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.guard.Transition(c.UserContext(), id, req.Status); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"status":  req.Status,
	})
}

// HandleDeleteOrder removes an order and its items.
func (h *OrderHandler) HandleDeleteOrder(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, "invalid order id")
	}
	if err := h.guard.Delete(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// HandleStats reports order counts and revenue, overall and for today.
func (h *OrderHandler) HandleStats(c *fiber.Ctx) error {
	stats, err := h.listing.Stats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}
