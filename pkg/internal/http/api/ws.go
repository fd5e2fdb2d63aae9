package api

import (
	"github.com/gofiber/contrib/websocket"
	jsoniter "github.com/json-iterator/go"

	"github.com/voxlink/voxlink/pkg/internal/models"
	"github.com/voxlink/voxlink/pkg/internal/services"
)

// wsGateway keeps one client session registered for pushes and answers
// the few commands clients may send upstream.
func wsGateway(c *websocket.Conn) {
	userID := c.Locals("userId").(uint)

	services.ClientRegister(userID, c)

	var packet models.WsPacket
	for {
		messageType, raw, err := c.ReadMessage()
		if err != nil {
			break
		}
		if err := jsoniter.Unmarshal(raw, &packet); err != nil {
			_ = c.WriteMessage(messageType, models.WsPacket{
				Action:  models.PacketError,
				Message: "unable to unmarshal your command, requires json request",
			}.Marshal())
			continue
		}

		if reply := dealWsCommand(packet, userID); reply != nil {
			if err := c.WriteMessage(messageType, reply.Marshal()); err != nil {
				break
			}
		}
	}

	services.ClientUnregister(userID, c)
}

func dealWsCommand(packet models.WsPacket, userID uint) *models.WsPacket {
	switch packet.Action {
	case "calls.originate":
		var req struct {
			ServerID uint   `json:"server_id"`
			Number   string `json:"number"`
		}
		models.FitStruct(packet.Payload, &req)

		if err := services.Originate(userID, req.ServerID, req.Number, nil); err != nil {
			reply := models.WsPacketFromError(err)
			return &reply
		}
		return nil
	default:
		return &models.WsPacket{
			Action:  models.PacketError,
			Message: "command not found",
		}
	}
}
