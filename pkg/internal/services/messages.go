package services

import (
	"github.com/google/uuid"

	"github.com/voxlink/voxlink/pkg/internal/database"
	"github.com/voxlink/voxlink/pkg/internal/models"
)

// PostMessage appends an entry to a record's feed and pushes it to the
// addressee when one is named. Fire and forget for callers: whether the
// addressee is online is not their concern.
func PostMessage(message models.Message) error {
	message.Uuid = uuid.NewString()
	if err := database.C.Create(&message).Error; err != nil {
		return err
	}
	if message.AddresseeID != nil {
		PushUser(*message.AddresseeID, models.WsPacket{
			Action:  "messages.new",
			Payload: message,
		})
	}
	return nil
}

// ListMessages reads a record's feed, newest first.
func ListMessages(ref models.Ref, take, offset int) ([]models.Message, error) {
	if take > 100 {
		take = 100
	}
	var messages []models.Message
	if err := database.C.
		Where(&models.Message{RefKind: ref.Kind, RefID: ref.ID}).
		Limit(take).Offset(offset).
		Order("created_at DESC").
		Find(&messages).Error; err != nil {
		return messages, err
	}
	return messages, nil
}
