package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/voxlink/voxlink/pkg/internal/models"
	"github.com/voxlink/voxlink/pkg/internal/services"
)

// listFeed reads the message feed of one referenced record.
func listFeed(c *fiber.Ctx) error {
	take := c.QueryInt("take", 50)
	offset := c.QueryInt("offset", 0)

	ref := models.Ref{
		Kind: c.Query("kind"),
		ID:   uint(c.QueryInt("id", 0)),
	}
	if ref.Kind == "" || ref.ID == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "kind and id are required")
	}

	if messages, err := services.ListMessages(ref, take, offset); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	} else {
		return c.JSON(messages)
	}
}
