package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"todo-chatbot/backend/internal/notify"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// オリジン検証はCORSミドルウェアに合わせてフロントエンドを許可します。
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler はアプリ内通知用のWebSocket接続を管理します。
type WSHandler struct {
	hub *notify.Hub
}

// NewWSHandler は新しいWSHandlerを作成します。
func NewWSHandler(hub *notify.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// ConnectHandler は接続をWebSocketにアップグレードしてハブに登録します。
// 接続はクライアントが切断するまで保持され、通知の配送にのみ使われます。
func (h *WSHandler) ConnectHandler(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade websocket for user %d: %v", userID, err)
		return
	}

	h.hub.Register(userID, conn)

	go func() {
		defer func() {
			h.hub.Unregister(userID, conn)
			conn.Close()
		}()
		// クライアントからのメッセージは読み捨てます。
		// 読み込みループは切断検知のために必要です。
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
