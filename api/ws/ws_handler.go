package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/spcfox/sharetext/service"
)

type Handler struct {
	Service *service.Service
	Hub     *Hub
}

func NewHandler(svc *service.Service, hub *Hub) *Handler {
	return &Handler{
		Service: svc,
		Hub:     hub,
	}
}

func (h *Handler) NewWsUpgrader(requiredOrigin string) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == requiredOrigin
		},
		Subprotocols: []string{"sharetext-v1"},
	}
}

// ServeWS handles websocket requests from the peer. The token rides in
// as a second subprotocol entry because browsers cannot set headers on
// websocket requests. A bare "sharetext-v1" opens an anonymous
// connection; a present but invalid token is rejected outright.
func (h *Handler) ServeWS(wsUpgrader websocket.Upgrader, w http.ResponseWriter, r *http.Request, shutdownCtx context.Context) {
	protocols := r.Header.Get("Sec-WebSocket-Protocol")
	protocolsSplit := strings.Split(protocols, ",")

	if len(protocolsSplit) > 2 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var accountId *int64
	var authErr error
	if len(protocolsSplit) == 2 {
		token := strings.TrimSpace(protocolsSplit[1])
		account, err := h.Service.AuthenticateToken(r.Context(), token)
		if err != nil {
			authErr = err
		} else {
			accountId = &account.Id
		}
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade ws connection: %v", err)
		return
	}

	// Must upgrade the connection in order to be able to send custom close message
	if authErr != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Unauthenticated"),
		)
		conn.Close()
		return
	}

	client := NewClient(h.Hub, conn, accountId, h.HandleWsMessage)

	h.Hub.OpenCh <- client

	// Start pumps
	go client.ReadPump()
	go client.WritePump(shutdownCtx)
}

// Websocket message structs
type message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type watchMessage struct {
	TextId string `json:"textId"`
}

type responseMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func (h *Handler) HandleWsMessage(client *Client, messageType int, messageBytes []byte) {
	var msg message
	if err := json.Unmarshal(messageBytes, &msg); err != nil {
		log.Printf("Invalid JSON: %v", err)
		return
	}

	var resp responseMessage

	switch msg.Type {
	case "subscribe":
		var watchMsg watchMessage
		if err := json.Unmarshal(msg.Data, &watchMsg); err != nil {
			log.Printf("Invalid subscribe data: %v", err)
			return
		}
		resp = h.handleSubscribe(client, watchMsg)

	case "unsubscribe":
		var watchMsg watchMessage
		if err := json.Unmarshal(msg.Data, &watchMsg); err != nil {
			log.Printf("Invalid unsubscribe data: %v", err)
			return
		}
		resp = h.handleUnsubscribe(client, watchMsg)

	default:
		log.Printf("Unknown message type: %v", msg.Type)
	}

	if resp.Type != "" {
		respBytes, err := json.Marshal(resp)
		if err != nil {
			log.Printf("Error marshaling response JSON: %v", err)
			return
		}
		client.Send <- respBytes
	}
}

// handleSubscribe runs the same read policy as a plain fetch: a private
// text can only be watched by its author.
func (h *Handler) handleSubscribe(client *Client, watchMsg watchMessage) responseMessage {
	resp := responseMessage{
		Type: "subscribe_response",
	}

	if err := h.Service.CanWatchText(context.Background(), client.accountId, watchMsg.TextId); err != nil {
		log.Printf("Subscribe denied for text %s: %v", watchMsg.TextId, err)
		resp.Data = map[string]any{"success": false, "textId": watchMsg.TextId}
		return resp
	}

	sub := subscription{client: client, textId: watchMsg.TextId}
	h.Hub.SubscribeCh <- sub
	resp.Data = map[string]any{"success": true, "textId": watchMsg.TextId}

	return resp
}

func (h *Handler) handleUnsubscribe(client *Client, watchMsg watchMessage) responseMessage {
	resp := responseMessage{
		Type: "unsubscribe_response",
	}

	sub := subscription{client: client, textId: watchMsg.TextId}
	h.Hub.UnsubscribeCh <- sub
	resp.Data = map[string]any{"success": true, "textId": watchMsg.TextId}

	return resp
}
