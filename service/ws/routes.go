package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/inkwell-app/inkwell-server/cmd/models"
	"github.com/inkwell-app/inkwell-server/cmd/utils"
)

// MessageEvent is the only client-to-server event. ToUser addresses the
// recipient; zero means broadcast only.
type MessageEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	ToUser  uint   `json:"to_user,omitempty"`
}

// OutboundMessage is what connected clients receive.
type OutboundMessage struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	FromUser string `json:"from_user"`
}

type ChatHandler struct {
	db  *gorm.DB
	hub *Hub
}

func NewChatHandler(db *gorm.DB) *ChatHandler {
	hub := NewHub()
	go hub.Run()

	return &ChatHandler{
		db:  db,
		hub: hub,
	}
}

// Hub exposes the running hub, mainly for tests.
func (h *ChatHandler) Hub() *Hub {
	return h.hub
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (h *ChatHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws", utils.AuthMiddleware(h.HandleWebSocket))
	router.HandleFunc("/chat", utils.AuthMiddleware(h.HandleChatPage)).Methods("GET")
}

// HandleChatPage returns the user roster the chat page is rendered from.
func (h *ChatHandler) HandleChatPage(w http.ResponseWriter, r *http.Request) {
	var users []models.User
	if err := h.db.Order("username asc").Find(&users).Error; err != nil {
		http.Error(w, "Error retrieving users", http.StatusInternalServerError)
		return
	}

	roster := make([]map[string]interface{}, 0, len(users))
	for _, user := range users {
		roster = append(roster, map[string]interface{}{
			"id":       user.ID,
			"username": user.Username,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"users": roster,
	})
}

// HandleWebSocket upgrades the connection and attaches it to the hub.
func (h *ChatHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &ClientConnection{
		Hub:    h.hub,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		UserID: userID,
	}

	h.hub.Register <- client

	go client.WritePump()
	go h.readLoop(client)
}

func (h *ChatHandler) readLoop(client *ClientConnection) {
	defer func() {
		h.hub.Unregister <- client
		client.Conn.Close()
	}()

	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket read error: %v", err)
			}
			break
		}

		var event MessageEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			log.Printf("error unmarshaling message: %v", err)
			continue
		}

		if event.Type == "message" {
			h.handleMessageEvent(client, event)
		}
	}
}

// handleMessageEvent resolves the sender's display name and fans the message
// out. The recipient leg only runs when the target user exists; the broadcast
// leg always runs. Nothing is persisted.
func (h *ChatHandler) handleMessageEvent(client *ClientConnection, event MessageEvent) {
	var sender models.User
	if err := h.db.First(&sender, client.UserID).Error; err != nil {
		log.Printf("error resolving sender %d: %v", client.UserID, err)
		return
	}

	payload, err := json.Marshal(OutboundMessage{
		Type:     "message",
		Message:  event.Message,
		FromUser: sender.Username,
	})
	if err != nil {
		log.Printf("error marshaling message: %v", err)
		return
	}

	mode := DeliverBroadcast
	if event.ToUser != 0 {
		var target models.User
		if err := h.db.First(&target, event.ToUser).Error; err == nil {
			mode = DeliverBoth
		}
	}

	h.hub.Deliver(mode, event.ToUser, payload)
}
