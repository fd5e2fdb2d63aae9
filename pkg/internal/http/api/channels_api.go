package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/voxlink/voxlink/pkg/internal/database"
	"github.com/voxlink/voxlink/pkg/internal/models"
	"github.com/voxlink/voxlink/pkg/internal/services"
)

func listChannels(c *fiber.Ctx) error {
	take := c.QueryInt("take", 50)
	offset := c.QueryInt("offset", 0)
	activeOnly := c.QueryBool("active", true)

	if take > 100 {
		take = 100
	}

	tx := database.C.
		Limit(take).Offset(offset).
		Order("created_at DESC")
	if activeOnly {
		tx = tx.Where("active = ?", true)
	}

	var channels []models.Channel
	if err := tx.Find(&channels).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(channels)
}

func getLinkedChannel(c *fiber.Ctx) error {
	id, err := c.ParamsInt("channelId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var channel models.Channel
	if err := database.C.First(&channel, uint(id)).Error; err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	if linked, err := services.LinkedChannel(channel); err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	} else {
		return c.JSON(linked)
	}
}

func vacuumChannels(c *fiber.Ctx) error {
	if err := services.VacuumChannels(); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}
