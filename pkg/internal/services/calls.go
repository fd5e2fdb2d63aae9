package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/voxlink/voxlink/pkg/internal/ami"
	"github.com/voxlink/voxlink/pkg/internal/database"
	"github.com/voxlink/voxlink/pkg/internal/models"
)

func GetCall(id uint) (models.Call, error) {
	var call models.Call
	if err := database.C.
		Preload("Contact").
		Preload("CallingUser").
		Preload("CalledUser").
		First(&call, id).Error; err != nil {
		return call, err
	}
	return call, nil
}

// GetCallByUniqueid finds the call of a server by its linking id.
func GetCallByUniqueid(serverID uint, uniqueid string) (models.Call, error) {
	var call models.Call
	if err := database.C.
		Where(&models.Call{ServerID: serverID, Uniqueid: uniqueid}).
		First(&call).Error; err != nil {
		return call, err
	}
	return call, nil
}

func ListCalls(serverID uint, active bool, take, offset int) ([]models.Call, error) {
	if take > 100 {
		take = 100
	}
	var calls []models.Call
	tx := database.C.
		Where("is_active = ?", active).
		Limit(take).Offset(offset).
		Preload("Contact").
		Preload("CallingUser").
		Preload("CalledUser").
		Order("created_at DESC")
	if serverID > 0 {
		tx = tx.Where("server_id = ?", serverID)
	}
	if err := tx.Find(&calls).Error; err != nil {
		return calls, err
	}
	return calls, nil
}

// AttachChannelToCall folds a freshly written leg into its call,
// creating the call when this is the first leg seen for the linkedid.
func AttachChannelToCall(server models.Server, channel *models.Channel, event ami.Event) error {
	call, err := GetCallByUniqueid(server.ID, channel.Linkedid)
	created := false
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		call = newCallFromChannel(server, *channel)
		if err := database.C.Create(&call).Error; err != nil {
			return err
		}
		created = true
	case err != nil:
		return err
	default:
		if channel.IsParent() {
			// The parent leg arrived after a child, refresh the
			// attributes that belong to it.
			if err := database.C.Model(&call).Updates(refreshFromParent(*channel)).Error; err != nil {
				return err
			}
		}
	}

	if channel.CallID == nil || *channel.CallID != call.ID {
		if err := database.C.Model(channel).Update("call_id", call.ID).Error; err != nil {
			return err
		}
		channel.CallID = lo.ToPtr(call.ID)
	}

	RecordCallEvent(channel.CallID, event)

	// A user answering leg on an incoming call names the called party.
	if !channel.IsParent() && channel.UserID != nil && call.CalledUserID == nil {
		if err := setCalledUser(&call, *channel.UserID); err != nil {
			log.Warn().Err(err).Uint("call", call.ID).
				Msg("An error occurred when resolving called user.")
		}
	}

	// The first leg carrying a business record gives the call its ref.
	if ref := channel.Ref(); ref != nil && call.Ref() == nil {
		if err := database.C.Model(&call).
			Updates(map[string]any{"ref_kind": ref.Kind, "ref_id": ref.ID}).Error; err != nil {
			return err
		}
	}

	if created {
		Broadcast(models.WsPacket{Action: models.PacketCallStarted, Payload: call})
		ReloadCalls()
	}
	return nil
}

func newCallFromChannel(server models.Server, channel models.Channel) models.Call {
	direction := models.DirectionIn
	var callingUser *uint
	if channel.UserID != nil && channel.IsParent() {
		direction = models.DirectionOut
		callingUser = channel.UserID
	}
	return models.Call{
		ServerID:      server.ID,
		Uniqueid:      channel.Linkedid,
		CallingNumber: channel.CallerIDNum,
		CallingName:   channel.CallerIDName,
		CalledNumber:  channel.Exten,
		Started:       lo.ToPtr(time.Now()),
		Direction:     direction,
		Status:        models.StatusProgress,
		IsActive:      true,
		ContactID:     channel.ContactID,
		CallingUserID: callingUser,
		RefKind:       channel.RefKind,
		RefID:         channel.RefID,
	}
}

func refreshFromParent(channel models.Channel) map[string]any {
	updates := map[string]any{
		"calling_number": channel.CallerIDNum,
		"calling_name":   channel.CallerIDName,
		"called_number":  channel.Exten,
	}
	if channel.UserID != nil {
		updates["direction"] = models.DirectionOut
		updates["calling_user_id"] = *channel.UserID
	}
	if channel.ContactID != nil {
		updates["contact_id"] = *channel.ContactID
	}
	return updates
}

// setCalledUser stamps the called party and raises the incoming call
// popup when the user has it enabled.
func setCalledUser(call *models.Call, pbxUserID uint) error {
	if err := database.C.Model(call).Update("called_user_id", pbxUserID).Error; err != nil {
		return err
	}
	call.CalledUserID = lo.ToPtr(pbxUserID)

	var pbxUser models.PbxUser
	if err := database.C.First(&pbxUser, pbxUserID).Error; err != nil {
		return err
	}
	if !pbxUser.CallPopupEnabled {
		return nil
	}

	at := time.Now()
	if call.Started != nil {
		at = *call.Started
	}
	caller := call.CallingName
	if caller == "" {
		caller = call.CallingNumber
	}
	Notify(pbxUser.UserID, models.Notification{
		Message: fmt.Sprintf("Incoming call from %s at %s", caller, at.Format("15:04:05")),
		Sticky:  pbxUser.CallPopupSticky,
	})
	return nil
}

// RecordCallEvent appends the raw event to the call's trail.
func RecordCallEvent(callID *uint, event ami.Event) {
	if callID == nil {
		return
	}
	entry := models.CallEvent{
		CallID: *callID,
		Kind:   event.Name(),
		Body:   event.Map(),
	}
	if err := database.C.Create(&entry).Error; err != nil {
		log.Warn().Err(err).Uint("call", *callID).
			Msg("An error occurred when recording call event.")
	}
}

// MarkCallAnswered stamps the answer time once, on the first leg that
// comes up.
func MarkCallAnswered(channel models.Channel) error {
	if channel.CallID == nil {
		return nil
	}
	return database.C.Model(&models.Call{}).
		Where("id = ? AND answered IS NULL", *channel.CallID).
		Update("answered", time.Now()).Error
}

// FinalizeCallIfDone closes the call once its last active leg has gone
// terminal. This is the aggregation rule deciding when a call leaves
// the active partition.
func FinalizeCallIfDone(channel models.Channel) error {
	if channel.CallID == nil {
		return nil
	}

	var remaining int64
	if err := database.C.Model(&models.Channel{}).
		Where("call_id = ? AND active = ?", *channel.CallID, true).
		Count(&remaining).Error; err != nil {
		return err
	}
	if remaining > 0 {
		return nil
	}

	call, err := GetCall(*channel.CallID)
	if err != nil {
		return err
	}
	return deactivateCall(call, map[string]any{
		"is_active": false,
		"ended":     time.Now(),
		"status":    statusForCause(call, channel.Cause),
	})
}

// MoveToHistory retires a call from the active partition on explicit
// request, firing the same registration pass a hangup would.
func MoveToHistory(call models.Call) error {
	return deactivateCall(call, map[string]any{"is_active": false})
}

// deactivateCall performs the one-way is_active flip. The guarded
// update makes the flip observable exactly once, so the registration
// hooks never run twice for one call.
func deactivateCall(call models.Call, updates map[string]any) error {
	tx := database.C.Model(&models.Call{}).
		Where("id = ? AND is_active = ?", call.ID, true).
		Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		// Someone else flipped it first, hooks already ran.
		return nil
	}

	call, err := GetCall(call.ID)
	if err != nil {
		return err
	}
	RegisterCall(call)
	RegisterReferenceCall(call)
	Broadcast(models.WsPacket{Action: models.PacketCallEnded, Payload: call})
	ReloadCalls()
	return nil
}

func statusForCause(call models.Call, cause string) models.CallStatus {
	if call.Answered != nil {
		return models.StatusAnswered
	}
	switch cause {
	case "17":
		return models.StatusBusy
	case "16", "18", "19":
		return models.StatusNoAnswer
	default:
		return models.StatusFailed
	}
}

// SetNotes stores free-text notes on a call.
func SetNotes(call models.Call, notes string) error {
	return database.C.Model(&call).Update("notes", notes).Error
}
