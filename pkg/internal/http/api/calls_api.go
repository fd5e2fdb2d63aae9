package api

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"github.com/voxlink/voxlink/pkg/internal/database"
	"github.com/voxlink/voxlink/pkg/internal/models"
	"github.com/voxlink/voxlink/pkg/internal/services"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func listCalls(c *fiber.Ctx) error {
	take := c.QueryInt("take", 50)
	offset := c.QueryInt("offset", 0)
	serverID := uint(c.QueryInt("server", 0))
	active := c.QueryBool("active", true)

	if calls, err := services.ListCalls(serverID, active, take, offset); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	} else {
		return c.JSON(calls)
	}
}

func getCall(c *fiber.Ctx) error {
	id, err := c.ParamsInt("callId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if call, err := services.GetCall(uint(id)); err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	} else {
		return c.JSON(call)
	}
}

func listCallEvents(c *fiber.Ctx) error {
	id, err := c.ParamsInt("callId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var events []models.CallEvent
	if err := database.C.
		Where(&models.CallEvent{CallID: uint(id)}).
		Order("created_at ASC").
		Find(&events).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(events)
}

func moveCallToHistory(c *fiber.Ctx) error {
	id, err := c.ParamsInt("callId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	call, err := services.GetCall(uint(id))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	if err := services.MoveToHistory(call); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func setCallNotes(c *fiber.Ctx) error {
	id, err := c.ParamsInt("callId")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var data struct {
		Notes string `json:"notes" validate:"required"`
	}
	if err := c.BodyParser(&data); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	} else if err := validate.Struct(data); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	call, err := services.GetCall(uint(id))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	if err := services.SetNotes(call, data.Notes); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(call)
}

func originateCall(c *fiber.Ctx) error {
	userID := c.Locals("userId").(uint)

	var data struct {
		ServerID uint   `json:"server_id" validate:"required"`
		Number   string `json:"number" validate:"required"`
		RefKind  string `json:"ref_kind"`
		RefID    uint   `json:"ref_id"`
	}
	if err := c.BodyParser(&data); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	} else if err := validate.Struct(data); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var ref *models.Ref
	if data.RefKind != "" && data.RefID != 0 {
		ref = lo.ToPtr(models.Ref{Kind: data.RefKind, ID: data.RefID})
	}

	if err := services.Originate(userID, data.ServerID, data.Number, ref); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return c.SendStatus(fiber.StatusAccepted)
}

func spyCall(action func(uint, models.Call) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userId").(uint)
		id, err := c.ParamsInt("callId")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		call, err := services.GetCall(uint(id))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		if err := action(userID, call); err != nil {
			return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
		}
		return c.SendStatus(fiber.StatusAccepted)
	}
}
