package models

import jsoniter "github.com/json-iterator/go"

const (
	PacketNotify      = "notify"
	PacketReloadCalls = "calls.reload"
	PacketCallStarted = "calls.started"
	PacketCallEnded   = "calls.ended"
	PacketError       = "error"
)

// WsPacket is one frame pushed to a connected client.
type WsPacket struct {
	Action  string `json:"action"`
	Payload any    `json:"payload,omitempty"`
	Message string `json:"message,omitempty"`
}

func (v WsPacket) Marshal() []byte {
	data, _ := jsoniter.Marshal(v)
	return data
}

func WsPacketFromError(err error) WsPacket {
	return WsPacket{
		Action:  PacketError,
		Message: err.Error(),
	}
}

// Notification is an in-app popup addressed to one user. Delivery to an
// offline recipient is not an error, it is simply unread.
type Notification struct {
	Message string `json:"message"`
	Title   string `json:"title"`
	Sticky  bool   `json:"sticky"`
	Warning bool   `json:"warning"`
}
