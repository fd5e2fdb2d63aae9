package services

import (
	"sync"

	"github.com/gofiber/contrib/websocket"

	"github.com/voxlink/voxlink/pkg/internal/models"
)

var (
	wsMutex sync.Mutex
	wsConn  = make(map[uint][]*websocket.Conn)
)

func ClientRegister(userID uint, conn *websocket.Conn) {
	wsMutex.Lock()
	defer wsMutex.Unlock()
	wsConn[userID] = append(wsConn[userID], conn)
}

func ClientUnregister(userID uint, conn *websocket.Conn) {
	wsMutex.Lock()
	defer wsMutex.Unlock()
	for idx, item := range wsConn[userID] {
		if item == conn {
			wsConn[userID] = append(wsConn[userID][:idx], wsConn[userID][idx+1:]...)
			break
		}
	}
	if len(wsConn[userID]) == 0 {
		delete(wsConn, userID)
	}
}

func CheckOnline(userID uint) bool {
	wsMutex.Lock()
	defer wsMutex.Unlock()
	return len(wsConn[userID]) > 0
}

// PushUser writes a packet to every connection of one user.
func PushUser(userID uint, packet models.WsPacket) {
	wsMutex.Lock()
	defer wsMutex.Unlock()
	for _, conn := range wsConn[userID] {
		_ = conn.WriteMessage(websocket.TextMessage, packet.Marshal())
	}
}

// Broadcast writes a packet to every connected client.
func Broadcast(packet models.WsPacket) {
	wsMutex.Lock()
	defer wsMutex.Unlock()
	for _, conns := range wsConn {
		for _, conn := range conns {
			_ = conn.WriteMessage(websocket.TextMessage, packet.Marshal())
		}
	}
}
