package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"github.com/voxlink/voxlink/pkg/internal/database"
	"github.com/voxlink/voxlink/pkg/internal/models"
	"github.com/voxlink/voxlink/pkg/internal/services"
)

// The lookup helpers answer in plain text so the dialplan can splice
// them straight into caller id fields.

func getCallerName(c *fiber.Ctx) error {
	number := c.Query("number")
	if number == "" {
		return fiber.NewError(fiber.StatusBadRequest, "number not specified in request")
	}

	contact, err := services.ContactByNumber(number)
	if err != nil {
		return c.SendString("")
	}
	return c.SendString(contact.Name)
}

func getPartnerManager(c *fiber.Ctx) error {
	number := c.Query("number")
	if number == "" {
		return fiber.NewError(fiber.StatusBadRequest, "number not specified in request")
	}

	contact, err := services.ContactByNumber(number)
	if err != nil || contact.ManagerID == nil {
		return c.SendString("")
	}

	// The dialplan splices the answer into a dial target, so the
	// manager resolves to their extension, not a display name.
	var manager models.PbxUser
	if err := database.C.
		Where("user_id = ?", *contact.ManagerID).
		First(&manager).Error; err != nil {
		return c.SendString("")
	}
	return c.SendString(manager.Exten)
}

func getCallerTags(c *fiber.Ctx) error {
	number := c.Query("number")
	if number == "" {
		return fiber.NewError(fiber.StatusBadRequest, "number not specified in request")
	}

	contact, err := services.ContactByNumber(number)
	if err != nil {
		return c.SendString("")
	}

	var tagged models.Contact
	if err := database.C.Preload("Tags").First(&tagged, contact.ID).Error; err != nil {
		return c.SendString("")
	}
	names := lo.Map(tagged.Tags, func(tag models.Tag, _ int) string {
		return tag.Name
	})
	return c.SendString(strings.Join(names, ","))
}
