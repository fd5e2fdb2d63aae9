package services

import (
	"github.com/nyaruka/phonenumbers"
	"github.com/spf13/viper"

	"github.com/voxlink/voxlink/pkg/internal/database"
	"github.com/voxlink/voxlink/pkg/internal/models"
)

// UserByChannel resolves the owner of a channel by matching its short
// name against the channels configured for users of that system.
func UserByChannel(name, systemName string) (models.PbxUser, error) {
	short := models.ChannelShort(name)

	var server models.Server
	if err := database.C.Where(&models.Server{Name: systemName}).First(&server).Error; err != nil {
		return models.PbxUser{}, err
	}

	var binding models.UserChannel
	if err := database.C.
		Joins("PbxUser").
		Where("user_channels.name = ?", short).
		Where("\"PbxUser\".server_id = ?", server.ID).
		First(&binding).Error; err != nil {
		return models.PbxUser{}, err
	}

	return binding.PbxUser, nil
}

// GetPbxUser loads the binding of an internal user on one server.
func GetPbxUser(userID, serverID uint) (models.PbxUser, error) {
	var pbxUser models.PbxUser
	if err := database.C.
		Where(&models.PbxUser{UserID: userID, ServerID: serverID}).
		Preload("Channels").
		First(&pbxUser).Error; err != nil {
		return pbxUser, err
	}
	return pbxUser, nil
}

// NormalizeNumber renders a dialable number in E.164 when it parses,
// otherwise hands the raw string back.
func NormalizeNumber(number string) string {
	parsed, err := phonenumbers.Parse(number, viper.GetString("lookup.region"))
	if err != nil {
		return number
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}

// ContactByNumber finds a contact by phone number, trying the
// normalized form first and the raw form as a fallback.
func ContactByNumber(number string) (models.Contact, error) {
	var contact models.Contact
	if err := database.C.
		Where("phone_normalized = ? OR phone = ?", NormalizeNumber(number), number).
		First(&contact).Error; err != nil {
		return contact, err
	}
	return contact, nil
}

// SetupRefResolvers wires the record kinds a call may reference into
// the dispatch table.
func SetupRefResolvers() {
	models.RefResolvers[models.RefContact] = func(id uint) (string, error) {
		var contact models.Contact
		if err := database.C.First(&contact, id).Error; err != nil {
			return "", err
		}
		return contact.Name, nil
	}
	models.RefResolvers[models.RefPbxUser] = func(id uint) (string, error) {
		var pbxUser models.PbxUser
		if err := database.C.First(&pbxUser, id).Error; err != nil {
			return "", err
		}
		return pbxUser.Name, nil
	}
}
