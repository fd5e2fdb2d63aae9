package services

import (
	"testing"
	"time"

	"github.com/voxlink/voxlink/pkg/internal/ami"
	"github.com/voxlink/voxlink/pkg/internal/database"
	"github.com/voxlink/voxlink/pkg/internal/models"
)

func newChannelEvent(uniqueid, linkedid, name, callerNum, exten, system string) ami.Event {
	return ami.Event{
		"Event":            "Newchannel",
		"Channel":          name,
		"CallerIDNum":      callerNum,
		"CallerIDName":     "",
		"ConnectedLineNum": "",
		"Context":          "from-internal",
		"Exten":            exten,
		"Uniqueid":         uniqueid,
		"Linkedid":         linkedid,
		"SystemName":       system,
	}
}

func TestChannelShort(t *testing.T) {
	if got := models.ChannelShort("SIP/1001-000000bd"); got != "SIP/1001" {
		t.Fatalf("ChannelShort() = %q, want %q", got, "SIP/1001")
	}
}

func TestOnHangupUnknownChannel(t *testing.T) {
	useTestDB(t)
	server := seedServer(t, "pbx")

	id, err := OnHangup(server, ami.Event{
		"Event":    "Hangup",
		"Uniqueid": "missing-1",
		"Channel":  "SIP/404-0001",
		"Cause":    "16",
	})
	if err != nil {
		t.Fatalf("OnHangup() error = %v", err)
	}
	if id != 0 {
		t.Fatalf("OnHangup() id = %d, want 0 for unknown channel", id)
	}

	var count int64
	database.C.Model(&models.Channel{}).Count(&count)
	if count != 0 {
		t.Fatalf("channel rows written for unknown hangup: %d", count)
	}
}

func TestOnNewChannelUserBinding(t *testing.T) {
	useTestDB(t)
	server := seedServer(t, "pbx")
	seedPbxUser(t, server, 7, "1001", "SIP/1001")
	dialed := seedContact(t, "Dialed Party", "2001")
	seedContact(t, "Caller Party", "1001")

	channel, err := OnNewChannel(server, newChannelEvent(
		"pbx-1.0", "pbx-1.0", "SIP/1001-000000bd", "1001", "2001", "pbx"))
	if err != nil {
		t.Fatalf("OnNewChannel() error = %v", err)
	}

	if channel.UserID == nil {
		t.Fatal("user-bound channel did not resolve its owner")
	}
	if channel.ContactID == nil || *channel.ContactID != dialed.ID {
		t.Fatalf("user-originated call must look contact up by dialed extension, got %v", channel.ContactID)
	}

	call, err := GetCallByUniqueid(server.ID, "pbx-1.0")
	if err != nil {
		t.Fatalf("call not created for parent leg: %v", err)
	}
	if call.Direction != models.DirectionOut {
		t.Fatalf("direction = %q, want %q", call.Direction, models.DirectionOut)
	}
}

func TestOnNewChannelNoUserMatch(t *testing.T) {
	useTestDB(t)
	server := seedServer(t, "pbx")
	caller := seedContact(t, "External Caller", "558812")

	channel, err := OnNewChannel(server, newChannelEvent(
		"pbx-2.0", "pbx-2.0", "SIP/trunk-000000aa", "558812", "1001", "pbx"))
	if err != nil {
		t.Fatalf("OnNewChannel() error = %v", err)
	}

	if channel.UserID != nil {
		t.Fatal("unbound channel resolved a user")
	}
	if channel.ContactID == nil || *channel.ContactID != caller.ID {
		t.Fatalf("externally originated call must look contact up by caller id, got %v", channel.ContactID)
	}

	call, err := GetCallByUniqueid(server.ID, "pbx-2.0")
	if err != nil {
		t.Fatalf("call not created: %v", err)
	}
	if call.Direction != models.DirectionIn {
		t.Fatalf("direction = %q, want %q", call.Direction, models.DirectionIn)
	}
}

func TestOnNewChannelUpsertsInPlace(t *testing.T) {
	useTestDB(t)
	server := seedServer(t, "pbx")

	first, err := OnNewChannel(server, newChannelEvent(
		"pbx-3.0", "pbx-3.0", "SIP/trunk-000000ab", "100", "", "pbx"))
	if err != nil {
		t.Fatalf("OnNewChannel() error = %v", err)
	}
	second, err := OnNewChannel(server, newChannelEvent(
		"pbx-3.0", "pbx-3.0", "SIP/trunk-000000ab", "100", "2001", "pbx"))
	if err != nil {
		t.Fatalf("OnNewChannel() repeat error = %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("repeated event created a second row: %d != %d", first.ID, second.ID)
	}
	var count int64
	database.C.Model(&models.Channel{}).Count(&count)
	if count != 1 {
		t.Fatalf("channel rows = %d, want 1", count)
	}
	if second.Exten != "2001" {
		t.Fatalf("update in place lost exten, got %q", second.Exten)
	}
}

func TestHangupCauseIsAuthoritative(t *testing.T) {
	useTestDB(t)
	server := seedServer(t, "pbx")

	if _, err := OnNewChannel(server, newChannelEvent(
		"pbx-4.0", "pbx-4.0", "SIP/trunk-000000ac", "100", "2001", "pbx")); err != nil {
		t.Fatalf("OnNewChannel() error = %v", err)
	}
	if _, err := OnHangup(server, ami.Event{
		"Event":     "Hangup",
		"Uniqueid":  "pbx-4.0",
		"Channel":   "SIP/trunk-000000ac",
		"Cause":     "16",
		"Cause-txt": "Normal Clearing",
	}); err != nil {
		t.Fatalf("OnHangup() error = %v", err)
	}

	// A late failure response must not overwrite the hangup cause.
	id, err := OnOriginateFailure(server, ami.Event{
		"Event":    "OriginateResponse",
		"Response": "Failure",
		"Uniqueid": "pbx-4.0",
		"Reason":   "0",
	})
	if err != nil {
		t.Fatalf("OnOriginateFailure() error = %v", err)
	}
	if id == 0 {
		t.Fatal("OnOriginateFailure() must return the channel id unchanged")
	}

	channel, err := GetChannel(server.ID, "pbx-4.0")
	if err != nil {
		t.Fatalf("GetChannel() error = %v", err)
	}
	if channel.Cause != "16" || channel.CauseTxt != "Normal Clearing" {
		t.Fatalf("hangup cause overwritten: %q / %q", channel.Cause, channel.CauseTxt)
	}
}

func TestOriginateFailureCauseSurvivesHangup(t *testing.T) {
	useTestDB(t)
	server := seedServer(t, "pbx")

	if _, err := OnNewChannel(server, newChannelEvent(
		"pbx-5.0", "pbx-5.0", "SIP/1001-000000ad", "1001", "2001", "pbx")); err != nil {
		t.Fatalf("OnNewChannel() error = %v", err)
	}
	if _, err := OnOriginateFailure(server, ami.Event{
		"Event":    "OriginateResponse",
		"Response": "Failure",
		"Uniqueid": "pbx-5.0",
		"Reason":   "3",
	}); err != nil {
		t.Fatalf("OnOriginateFailure() error = %v", err)
	}
	if _, err := OnHangup(server, ami.Event{
		"Event":     "Hangup",
		"Uniqueid":  "pbx-5.0",
		"Channel":   "SIP/1001-000000ad",
		"Cause":     "16",
		"Cause-txt": "Normal Clearing",
	}); err != nil {
		t.Fatalf("OnHangup() error = %v", err)
	}

	channel, err := GetChannel(server.ID, "pbx-5.0")
	if err != nil {
		t.Fatalf("GetChannel() error = %v", err)
	}
	if channel.Cause != "3" || channel.CauseTxt != "Failure" {
		t.Fatalf("failure cause overwritten by hangup: %q / %q", channel.Cause, channel.CauseTxt)
	}
	if channel.EndTime == nil {
		t.Fatal("hangup after failure must still stamp the end time")
	}
}

func TestDuplicateHangupKeepsTerminalStamp(t *testing.T) {
	useTestDB(t)
	server := seedServer(t, "pbx")

	if _, err := OnNewChannel(server, newChannelEvent(
		"pbx-9.0", "pbx-9.0", "SIP/trunk-000000b2", "100", "2001", "pbx")); err != nil {
		t.Fatalf("OnNewChannel() error = %v", err)
	}
	if _, err := OnHangup(server, ami.Event{
		"Event":     "Hangup",
		"Uniqueid":  "pbx-9.0",
		"Channel":   "SIP/trunk-000000b2",
		"Cause":     "16",
		"Cause-txt": "Normal Clearing",
	}); err != nil {
		t.Fatalf("OnHangup() error = %v", err)
	}

	first, err := GetChannel(server.ID, "pbx-9.0")
	if err != nil {
		t.Fatalf("GetChannel() error = %v", err)
	}
	if first.EndTime == nil {
		t.Fatal("hangup did not stamp the end time")
	}

	time.Sleep(5 * time.Millisecond)
	if _, err := OnHangup(server, ami.Event{
		"Event":     "Hangup",
		"Uniqueid":  "pbx-9.0",
		"Channel":   "SIP/trunk-000000b2",
		"Cause":     "0",
		"Cause-txt": "Unknown",
	}); err != nil {
		t.Fatalf("OnHangup() repeat error = %v", err)
	}

	second, err := GetChannel(server.ID, "pbx-9.0")
	if err != nil {
		t.Fatalf("GetChannel() error = %v", err)
	}
	if !second.EndTime.Equal(*first.EndTime) {
		t.Fatalf("duplicate hangup moved end time: %v -> %v", first.EndTime, second.EndTime)
	}
	if second.Cause != "16" {
		t.Fatalf("duplicate hangup overwrote cause: %q", second.Cause)
	}
}

func TestOriginateResponseProtocolViolation(t *testing.T) {
	useTestDB(t)
	server := seedServer(t, "pbx")

	if _, err := OnNewChannel(server, newChannelEvent(
		"pbx-6.0", "pbx-6.0", "SIP/1001-000000ae", "1001", "2001", "pbx")); err != nil {
		t.Fatalf("OnNewChannel() error = %v", err)
	}

	if _, err := OnOriginateFailure(server, ami.Event{
		"Event":    "OriginateResponse",
		"Response": "Success",
		"Uniqueid": "pbx-6.0",
	}); err == nil {
		t.Fatal("unexpected originate response must be rejected")
	}

	channel, err := GetChannel(server.ID, "pbx-6.0")
	if err != nil {
		t.Fatalf("GetChannel() error = %v", err)
	}
	if !channel.Active || channel.Cause != "" {
		t.Fatal("rejected response must not mutate the channel")
	}
}

func TestLinkedChannel(t *testing.T) {
	useTestDB(t)
	server := seedServer(t, "pbx")

	parent, err := OnNewChannel(server, newChannelEvent(
		"pbx-7.0", "pbx-7.0", "SIP/trunk-000000af", "558812", "1001", "pbx"))
	if err != nil {
		t.Fatalf("OnNewChannel() error = %v", err)
	}
	child, err := OnNewChannel(server, newChannelEvent(
		"pbx-7.1", "pbx-7.0", "SIP/1001-000000b0", "558812", "", "pbx"))
	if err != nil {
		t.Fatalf("OnNewChannel() error = %v", err)
	}

	linked, err := LinkedChannel(child)
	if err != nil {
		t.Fatalf("LinkedChannel() error = %v", err)
	}
	if linked.ID != parent.ID {
		t.Fatalf("linked channel = %d, want parent %d", linked.ID, parent.ID)
	}

	if _, err := LinkedChannel(parent); err == nil {
		t.Fatal("parent leg has no linked channel")
	}
}

func TestVacuumChannels(t *testing.T) {
	useTestDB(t)
	server := seedServer(t, "pbx")

	if _, err := OnNewChannel(server, newChannelEvent(
		"pbx-8.0", "pbx-8.0", "SIP/trunk-000000b1", "100", "", "pbx")); err != nil {
		t.Fatalf("OnNewChannel() error = %v", err)
	}
	if err := VacuumChannels(); err != nil {
		t.Fatalf("VacuumChannels() error = %v", err)
	}

	var count int64
	database.C.Unscoped().Model(&models.Channel{}).Count(&count)
	if count != 0 {
		t.Fatalf("channels left after vacuum: %d", count)
	}
}
