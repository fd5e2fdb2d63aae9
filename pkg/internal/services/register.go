package services

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/voxlink/voxlink/pkg/internal/models"
)

// RegisterCall runs once per call when it leaves the active partition:
// it posts the missed call notice to the called party and the summary
// to the contact's feed.
func RegisterCall(call models.Call) {
	if call.CalledUser != nil && call.Status != models.StatusAnswered && call.CalledUser.MissedCallsNotify {
		err := PostMessage(models.Message{
			Subject:     "Missed call notification",
			Body:        fmt.Sprintf("%s has a missed call from %s", call.CalledUser.Name, call.CallingName),
			RefKind:     models.RefPbxUser,
			RefID:       call.CalledUser.ID,
			AddresseeID: lo.ToPtr(call.CalledUser.UserID),
		})
		if err != nil {
			log.Error().Err(err).Uint("call", call.ID).
				Msg("An error occurred when posting missed call notification.")
		}
	}

	// The contact's own feed gets the summary unless the call already
	// references that very contact.
	if call.ContactID != nil {
		if ref := call.Ref(); ref != nil && ref.Kind == models.RefContact && ref.ID == *call.ContactID {
			return
		}
		err := PostMessage(models.Message{
			Body:    CallSummary(call),
			RefKind: models.RefContact,
			RefID:   *call.ContactID,
		})
		if err != nil {
			log.Error().Err(err).Uint("call", call.ID).
				Msg("An error occurred when posting call to contact feed.")
		}
	}
}

// RegisterReferenceCall posts the summary to the feed of the business
// record the call references. A reference deleted underneath us is
// logged, never propagated.
func RegisterReferenceCall(call models.Call) {
	ref := call.Ref()
	if ref == nil {
		return
	}
	if _, err := ref.DisplayName(); err != nil {
		log.Warn().Err(err).Str("kind", ref.Kind).Uint("id", ref.ID).
			Msg("Register reference call error.")
		return
	}
	err := PostMessage(models.Message{
		Subject: "Call notification",
		Body:    CallSummary(call),
		RefKind: ref.Kind,
		RefID:   ref.ID,
	})
	if err != nil {
		log.Error().Err(err).Uint("call", call.ID).
			Msg("Register reference call error.")
	}
}

// CallSummary renders the one-line call outcome posted to feeds, e.g.
// "Answered incoming call from John. Duration: 0:02:05".
func CallSummary(call models.Call) string {
	direction := "incoming"
	if call.Direction == models.DirectionOut {
		direction = "outgoing"
	}
	status := capitalize(call.Status)

	switch {
	case call.CalledUser != nil:
		return fmt.Sprintf("%s %s call to %s. Duration: %s",
			status, direction, call.CalledUser.Name, call.DurationHuman())
	case call.CallingUser != nil:
		return fmt.Sprintf("%s %s call from %s. Duration: %s",
			status, direction, call.CallingUser.Name, call.DurationHuman())
	default:
		return fmt.Sprintf("%s %s call from %s to %s. Duration: %s",
			status, direction, call.CallingNumber, call.CalledNumber, call.DurationHuman())
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
