package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Anselwang99/mateFinder/internal/domain"
	"github.com/Anselwang99/mateFinder/internal/hub"
	"github.com/Anselwang99/mateFinder/internal/service"
	"github.com/Anselwang99/mateFinder/pkg/log"
	"github.com/Anselwang99/mateFinder/pkg/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades authenticated websocket connections and routes
// their events into the session manager.
type WSHandler struct {
	hub      *hub.Hub
	sessions service.ChatService
	opts     hub.Options
}

func NewWSHandler(h *hub.Hub, sessions service.ChatService, opts hub.Options) *WSHandler {
	return &WSHandler{
		hub:      h,
		sessions: sessions,
		opts:     opts,
	}
}

func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.HandleWebSocket)
}

// HandleWebSocket authenticates the handshake token before upgrading.
// A failed authentication rejects the connection attempt outright; no
// subscription or presence change happens for it.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	ctx := c.Request.Context()

	token := c.Query("token")
	if token == "" {
		response.Unauthorized(c, "missing token")
		return
	}

	user, err := h.sessions.Authenticate(ctx, token)
	if err != nil {
		lg := log.Ctx(ctx)
		lg.Warn().Err(err).Msg("websocket auth rejected")
		response.Unauthorized(c, "invalid or expired token")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		lg := log.Ctx(ctx)
		lg.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), user.ID, h.hub, conn, h.opts)
	h.hub.Register(client)

	if err := h.sessions.HandleConnect(context.Background(), client); err != nil {
		lg := log.Ctx(ctx)
		lg.Error().Err(err).Str(log.FieldUserID, user.ID).Msg("session init failed")
		h.hub.Unregister(client)
		conn.Close()
		return
	}

	go client.WritePump()
	go func() {
		client.ReadPump(h.handleMessage)
		if err := h.sessions.HandleDisconnect(context.Background(), client); err != nil {
			lg := log.L()
			lg.Warn().Err(err).Str(log.FieldUserID, user.ID).Msg("disconnect handling failed")
		}
	}()
}

func (h *WSHandler) handleMessage(client *hub.Client, message []byte) {
	var base domain.BaseEvent
	if err := json.Unmarshal(message, &base); err != nil {
		client.Send(domain.NewErrorEvent(domain.ErrCodeBadRequest, "Invalid event format"))
		return
	}

	ctx := context.Background()

	switch base.Type {
	case domain.EventJoinChat:
		var ev domain.JoinChatEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			client.Send(domain.NewErrorEvent(domain.ErrCodeBadRequest, "Invalid chat:join event"))
			return
		}
		if err := h.sessions.HandleJoinChat(ctx, client, ev.ChatID); err != nil {
			lg := log.L()
			lg.Debug().Err(err).Str(log.FieldConnID, client.ID()).Msg("join chat rejected")
		}

	case domain.EventSendMessage:
		var ev domain.SendMessageEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			client.Send(domain.NewErrorEvent(domain.ErrCodeBadRequest, "Invalid chat:message event"))
			return
		}
		if err := h.sessions.HandleSendMessage(ctx, client, ev.ChatID, ev.Content); err != nil {
			lg := log.L()
			lg.Debug().Err(err).Str(log.FieldConnID, client.ID()).Msg("send message rejected")
		}

	case domain.EventSetTyping:
		var ev domain.SetTypingEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			client.Send(domain.NewErrorEvent(domain.ErrCodeBadRequest, "Invalid chat:typing event"))
			return
		}
		if err := h.sessions.HandleSetTyping(ctx, client, ev.ChatID, ev.IsTyping); err != nil {
			lg := log.L()
			lg.Debug().Err(err).Str(log.FieldConnID, client.ID()).Msg("typing rejected")
		}

	case domain.EventUpdateLocation:
		var ev domain.UpdateLocationEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			client.Send(domain.NewErrorEvent(domain.ErrCodeBadRequest, "Invalid location:update event"))
			return
		}
		if err := h.sessions.HandleUpdateLocation(ctx, client, ev.Longitude, ev.Latitude); err != nil {
			lg := log.L()
			lg.Debug().Err(err).Str(log.FieldConnID, client.ID()).Msg("location update rejected")
		}

	case domain.EventPing:
		client.Send(map[string]string{"type": domain.EventPong})

	default:
		client.Send(domain.NewErrorEvent(domain.ErrCodeBadRequest, "Unknown event type"))
	}
}
