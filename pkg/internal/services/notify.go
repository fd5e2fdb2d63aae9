package services

import (
	"github.com/spf13/viper"

	"github.com/voxlink/voxlink/pkg/internal/models"
)

// Notify delivers an in-app notification to one user. The return
// reports whether the recipient had a live connection; an offline
// recipient simply has it unread, never an error.
func Notify(userID uint, notification models.Notification) bool {
	if notification.Title == "" {
		notification.Title = "PBX"
	}
	if !CheckOnline(userID) {
		return false
	}
	PushUser(userID, models.WsPacket{
		Action:  models.PacketNotify,
		Payload: notification,
	})
	return true
}

// ReloadCalls tells every listening client to refresh its call list.
// A no-op unless auto reloading is switched on.
func ReloadCalls() {
	if !viper.GetBool("interface.auto_reload_calls") {
		return
	}
	Broadcast(models.WsPacket{Action: models.PacketReloadCalls})
}
