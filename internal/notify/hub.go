package notify

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub はユーザーごとのWebSocket接続を管理します。
// 1ユーザーが複数タブで接続した場合は全接続に配送します。
type Hub struct {
	mu    sync.RWMutex
	conns map[int][]*websocket.Conn
}

// NewHub は新しいHubを作成します。
func NewHub() *Hub {
	return &Hub{conns: map[int][]*websocket.Conn{}}
}

// Register はユーザーの接続を登録します。
func (h *Hub) Register(userID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[userID] = append(h.conns[userID], conn)
}

// Unregister は接続を取り除きます。接続のCloseは呼び出し側の責務です。
func (h *Hub) Unregister(userID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.conns[userID]
	for i, c := range conns {
		if c == conn {
			h.conns[userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
}

// SendToUser はユーザーの全接続にJSONメッセージを送ります。
// 書き込みに失敗した接続は切断されたものとして登録を解除します。
func (h *Hub) SendToUser(userID int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal websocket payload: %v", err)
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, len(h.conns[userID]))
	copy(conns, h.conns[userID])
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("Failed to write websocket message to user %d: %v", userID, err)
			h.Unregister(userID, conn)
			conn.Close()
		}
	}
}

// ConnectedUsers は接続中のユーザー数を返します。
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
