package handlers

import (
	"github.com/gofiber/fiber/v2"

	"tokoorders/internal/services"
)

// ProductHandler serves the read-only catalog.
type ProductHandler struct {
	listing *services.ListingService
}

func NewProductHandler(listing *services.ListingService) *ProductHandler {
	return &ProductHandler{listing: listing}
}

func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Get("/:id<int>", h.HandleGetProductByID)
}

func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	page, err := h.listing.ListProducts(c.UserContext(), c.QueryInt("page", 1))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return badRequest(c, "invalid product id")
	}
	product, err := h.listing.GetProduct(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}
