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

// GetChannel finds a leg of a server by its uniqueid, inactive legs
// included.
func GetChannel(serverID uint, uniqueid string) (models.Channel, error) {
	var channel models.Channel
	if err := database.C.
		Where(&models.Channel{ServerID: serverID, Uniqueid: uniqueid}).
		First(&channel).Error; err != nil {
		return channel, err
	}
	return channel, nil
}

// ParentChannel finds the leg that started a call, the one whose
// uniqueid is the linking id itself.
func ParentChannel(call models.Call) (models.Channel, error) {
	var parent models.Channel
	if err := database.C.
		Where("call_id = ? AND uniqueid = linkedid", call.ID).
		First(&parent).Error; err != nil {
		return parent, err
	}
	return parent, nil
}

// LinkedChannel looks the other leg of a call up by this channel's
// linkedid. The edge is resolved at query time, legs arrive out of
// order and are never linked by ownership.
func LinkedChannel(channel models.Channel) (models.Channel, error) {
	if channel.Uniqueid == channel.Linkedid {
		return models.Channel{}, gorm.ErrRecordNotFound
	}
	var linked models.Channel
	if err := database.C.
		Where(&models.Channel{ServerID: channel.ServerID, Uniqueid: channel.Linkedid}).
		Where("id <> ?", channel.ID).
		First(&linked).Error; err != nil {
		return linked, err
	}
	return linked, nil
}

// resolveOwnership decides who the leg belongs to. A channel matching a
// configured user channel means a user-originated call, so the contact
// is looked up by the dialed extension. Otherwise the caller id number
// identifies the contact.
func resolveOwnership(channel *models.Channel) {
	if user, err := UserByChannel(channel.Name, channel.SystemName); err == nil {
		channel.UserID = lo.ToPtr(user.ID)
		if contact, err := ContactByNumber(channel.Exten); err == nil {
			channel.ContactID = lo.ToPtr(contact.ID)
		}
		log.Debug().Str("channel", channel.Name).Uint("user", user.ID).
			Msg("User originated call.")
		return
	}
	if contact, err := ContactByNumber(channel.CallerIDNum); err == nil {
		channel.ContactID = lo.ToPtr(contact.ID)
	}
}

// OnNewChannel upserts the leg described by a Newchannel event, keyed
// by its uniqueid, and hands it to the call aggregation.
func OnNewChannel(server models.Server, event ami.Event) (models.Channel, error) {
	channel := models.Channel{
		ServerID:          server.ID,
		Name:              event.Get("Channel"),
		CallerIDNum:       event.Get("CallerIDNum"),
		CallerIDName:      event.Get("CallerIDName"),
		ConnectedLineNum:  event.Get("ConnectedLineNum"),
		ConnectedLineName: event.Get("ConnectedLineName"),
		Context:           event.Get("Context"),
		Exten:             event.Get("Exten"),
		State:             event.Get("ChannelState"),
		StateDesc:         event.Get("ChannelStateDesc"),
		AccountCode:       event.Get("AccountCode"),
		Priority:          event.Get("Priority"),
		App:               event.Get("Application"),
		AppData:           event.Get("ApplicationData"),
		Language:          event.Get("Language"),
		Uniqueid:          event.Get("Uniqueid"),
		Linkedid:          event.Get("Linkedid"),
		SystemName:        event.Get("SystemName"),
		Active:            true,
	}
	resolveOwnership(&channel)

	// A click-to-dial intent carries the business record onto the leg
	// it originates.
	if channel.UserID != nil {
		if intent := takeOriginateIntent(server.ID, channel.ShortName()); intent != nil {
			channel.RefKind = intent.Ref.Kind
			channel.RefID = intent.Ref.ID
		}
	}

	var existing models.Channel
	err := database.C.
		Where(&models.Channel{ServerID: server.ID, Uniqueid: channel.Uniqueid}).
		First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := database.C.Create(&channel).Error; err != nil {
			return channel, err
		}
	case err != nil:
		return channel, err
	default:
		channel.ID = existing.ID
		channel.CreatedAt = existing.CreatedAt
		channel.CallID = existing.CallID
		if channel.RefKind == "" {
			channel.RefKind, channel.RefID = existing.RefKind, existing.RefID
		}
		// A terminal leg is never resurrected by late events.
		if !existing.Active {
			channel.Active = false
			channel.Cause = existing.Cause
			channel.CauseTxt = existing.CauseTxt
			channel.EndTime = existing.EndTime
		}
		if err := database.C.Save(&channel).Error; err != nil {
			return channel, err
		}
	}

	if err := AttachChannelToCall(server, &channel, event); err != nil {
		log.Warn().Err(err).Str("uniqueid", channel.Uniqueid).
			Msg("An error occurred when aggregating channel into call.")
	}
	return channel, nil
}

// OnNewState refreshes leg state in place. A leg reaching Up answers
// its call.
func OnNewState(server models.Server, event ami.Event) (uint, error) {
	channel, err := GetChannel(server.ID, event.Get("Uniqueid"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Debug().Str("uniqueid", event.Get("Uniqueid")).
				Msg("Channel not found for state change.")
			return 0, nil
		}
		return 0, err
	}

	if err := database.C.Model(&channel).Updates(map[string]any{
		"state":               event.Get("ChannelState"),
		"state_desc":          event.Get("ChannelStateDesc"),
		"connected_line_num":  event.Get("ConnectedLineNum"),
		"connected_line_name": event.Get("ConnectedLineName"),
	}).Error; err != nil {
		return 0, err
	}

	if event.Get("ChannelStateDesc") == "Up" {
		if err := MarkCallAnswered(channel); err != nil {
			log.Warn().Err(err).Str("uniqueid", channel.Uniqueid).
				Msg("An error occurred when answering call.")
		}
	}
	return channel.ID, nil
}

// OnHangup puts a leg into its terminal state. An unknown uniqueid is a
// normal outcome, ingestion keeps going.
func OnHangup(server models.Server, event ami.Event) (uint, error) {
	uniqueid := event.Get("Uniqueid")
	channel, err := GetChannel(server.ID, uniqueid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Debug().Str("uniqueid", uniqueid).Str("channel", event.Get("Channel")).
				Msg("Channel not found for hangup.")
			return 0, nil
		}
		return 0, err
	}

	updates := map[string]any{"active": false}
	// The first writer of the terminal stamps is authoritative, a
	// duplicate hangup must not move them.
	if channel.EndTime == nil {
		updates["end_time"] = time.Now()
	}
	if channel.Cause == "" {
		updates["cause"] = event.Get("Cause")
		updates["cause_txt"] = event.Get("Cause-txt")
		channel.Cause = event.Get("Cause")
	}
	if err := database.C.Model(&channel).Updates(updates).Error; err != nil {
		return 0, err
	}
	channel.Active = false

	RecordCallEvent(channel.CallID, event)
	if err := FinalizeCallIfDone(channel); err != nil {
		log.Warn().Err(err).Str("uniqueid", uniqueid).
			Msg("An error occurred when finalizing call.")
	}
	return channel.ID, nil
}

// OnOriginateFailure handles the failed half of OriginateResponse. A
// hangup that already recorded a cause wins over it.
func OnOriginateFailure(server models.Server, event ami.Event) (uint, error) {
	if event.Get("Response") != "Failure" {
		log.Error().Str("response", event.Get("Response")).
			Msg("Unexpected originate response from the PBX!")
		return 0, fmt.Errorf("unexpected originate response: %s", event.Get("Response"))
	}

	channel, err := GetChannel(server.ID, event.Get("Uniqueid"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Debug().Str("uniqueid", event.Get("Uniqueid")).
				Msg("Channel not found for originate response.")
			return 0, nil
		}
		return 0, err
	}

	if channel.Cause != "" {
		// The hangup was already processed, nothing left to record.
		return channel.ID, nil
	}

	reason := event.Get("Reason")
	if err := database.C.Model(&channel).Updates(map[string]any{
		"active":    false,
		"cause":     reason,
		"cause_txt": event.Get("Response"),
	}).Error; err != nil {
		return 0, err
	}
	channel.Active = false
	channel.Cause = reason

	if channel.Ref() != nil && channel.UserID != nil {
		var pbxUser models.PbxUser
		if err := database.C.First(&pbxUser, *channel.UserID).Error; err == nil {
			Notify(pbxUser.UserID, models.Notification{
				Message: fmt.Sprintf("Call failed, reason %s", reason),
				Warning: true,
			})
		}
	}

	if err := FinalizeCallIfDone(channel); err != nil {
		log.Warn().Err(err).Str("uniqueid", channel.Uniqueid).
			Msg("An error occurred when finalizing call.")
	}
	return channel.ID, nil
}

// VacuumChannels drops every channel row, active ones included. This is
// an administrative reset, not retention.
func VacuumChannels() error {
	return database.C.
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Unscoped().
		Delete(&models.Channel{}).Error
}
