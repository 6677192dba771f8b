// Package hub fans websocket traffic out to connected clients. Clients
// subscribe to named topics ("chat:<id>", "user:<id>") and broadcasts
// are delivered to every subscriber, optionally excluding the
// originating connection.
package hub

import (
	"encoding/json"
	"sync"

	"github.com/Anselwang99/mateFinder/pkg/log"
)

type Hub struct {
	clients    map[string]*Client            // connection ID -> client
	topics     map[string]map[string]*Client // topic -> connection ID -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *topicMessage
	mu         sync.RWMutex
	opts       Options
}

type topicMessage struct {
	Topic   string
	Message []byte
	Exclude string // connection ID to skip
	All     bool   // deliver to every client regardless of topic
}

func NewHub(opts Options) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		topics:     make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *topicMessage, 256),
		opts:       opts,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			lg := log.L()
			lg.Debug().Str(log.FieldConnID, client.id).Str(log.FieldUserID, client.userID).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				for topic, subs := range h.topics {
					delete(subs, client.id)
					if len(subs) == 0 {
						delete(h.topics, topic)
					}
				}
				delete(h.clients, client.id)
				close(client.send)
			}
			h.mu.Unlock()
			lg := log.L()
			lg.Debug().Str(log.FieldConnID, client.id).Msg("client unregistered")

		case msg := <-h.broadcast:
			h.mu.RLock()
			targets := h.clients
			if !msg.All {
				targets = h.topics[msg.Topic]
			}
			for connID, client := range targets {
				if connID == msg.Exclude {
					continue
				}
				select {
				case client.send <- msg.Message:
				default:
					go h.drop(client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe adds the connection to a topic. Unknown connections are
// ignored so a racing disconnect cannot resurrect a closed client.
func (h *Hub) Subscribe(connID, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connID]
	if !ok {
		return
	}
	if _, ok := h.topics[topic]; !ok {
		h.topics[topic] = make(map[string]*Client)
	}
	h.topics[topic][connID] = client
	lg := log.L()
	lg.Debug().Str(log.FieldConnID, connID).Str(log.FieldTopic, topic).Msg("subscribed")
}

func (h *Hub) Unsubscribe(connID, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.topics[topic]; ok {
		delete(subs, connID)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Broadcast delivers message to every subscriber of topic. An empty
// exclude delivers to all subscribers including the sender's own
// connections.
func (h *Hub) Broadcast(topic string, message interface{}, exclude string) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	h.broadcast <- &topicMessage{Topic: topic, Message: data, Exclude: exclude}
	return nil
}

// BroadcastAll delivers message to every connected client.
func (h *Hub) BroadcastAll(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	h.broadcast <- &topicMessage{Message: data, All: true}
	return nil
}

func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) drop(client *Client) {
	h.unregister <- client
}
