package handlers

import (
	"github.com/gofiber/fiber/v2"

	"tokoorders/internal/apperrors"
)

var statusByKind = map[apperrors.Kind]int{
	apperrors.KindInvalidInput:      fiber.StatusBadRequest,
	apperrors.KindInvalidStatus:     fiber.StatusBadRequest,
	apperrors.KindNotFound:          fiber.StatusNotFound,
	apperrors.KindInsufficientStock: fiber.StatusConflict,
	apperrors.KindConflict:          fiber.StatusConflict,
	apperrors.KindInvalidTransition: fiber.StatusConflict,
	apperrors.KindStoreUnavailable:  fiber.StatusServiceUnavailable,
}

// respondError writes err as {"error", "code"} with the status for its kind.
// Store failures never echo the driver message back to the client.
func respondError(c *fiber.Ctx, err error) error {
	kind := apperrors.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = fiber.StatusInternalServerError
	}

	msg := err.Error()
	if kind == apperrors.KindStoreUnavailable {
		msg = "service temporarily unavailable"
	}

	body := fiber.Map{
		"error": msg,
		"code":  string(kind),
	}
	if productID := apperrors.ProductOf(err); productID != 0 {
		body["product_id"] = productID
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return respondError(c, apperrors.InvalidInput("%s", msg))
}
