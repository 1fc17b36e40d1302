package main

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// changeEvent is what the hub pushes to subscribed clients whenever the
// service layer reports a row change.
type changeEvent struct {
	Table   string      `json:"table"`
	UserID  int         `json:"-"`
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sent_at"`
}

type subscribeMessage struct {
	Table string `json:"table"`
}

type client struct {
	userID int
	socket *websocket.Conn

	mu     sync.Mutex
	tables map[string]bool
}

func (c *client) subscribed(table string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tables[table]
}

func (c *client) subscribe(table string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[table] = true
}

// Hub fans row-change events out to websocket clients. Each client only
// receives events for its own user and for tables it subscribed to.
type Hub struct {
	infoLog *log.Logger

	register   chan *client
	unregister chan *client
	broadcast  chan changeEvent

	clients map[*client]bool
}

func NewHub(infoLog *log.Logger) *Hub {
	return &Hub{
		infoLog:    infoLog,
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan changeEvent, 64),
		clients:    make(map[*client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
		case c := <-h.unregister:
			if h.clients[c] {
				c.socket.Close()
				delete(h.clients, c)
			}
		case event := <-h.broadcast:
			for c := range h.clients {
				if c.userID != event.UserID || !c.subscribed(event.Table) {
					continue
				}
				if err := c.socket.WriteJSON(event); err != nil {
					log.Println("Error sending message:", err)
					c.socket.Close()
					delete(h.clients, c)
				}
			}
		}
	}
}

// Publish implements services.ChangePublisher. It never blocks the caller;
// an event is dropped when the hub is saturated.
func (h *Hub) Publish(table string, userID int, payload interface{}) {
	select {
	case h.broadcast <- changeEvent{Table: table, UserID: userID, Payload: payload, SentAt: time.Now()}:
	default:
		h.infoLog.Printf("realtime: dropped %s event for user %d", table, userID)
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (app *application) realtimeHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value("user_id").(int)
	if userID == 0 {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}

	c := &client{userID: userID, socket: conn, tables: make(map[string]bool)}
	app.hub.register <- c

	go app.readSubscriptions(c)
}

func (app *application) readSubscriptions(c *client) {
	defer func() {
		app.hub.unregister <- c
	}()

	for {
		var msg subscribeMessage
		if err := c.socket.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Table != "" {
			c.subscribe(msg.Table)
		}
	}
}
