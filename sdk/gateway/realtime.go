package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// ChangeEvent is a row change pushed by the platform's realtime channel.
type ChangeEvent struct {
	Table   string          `json:"table"`
	Payload json.RawMessage `json:"payload"`
}

// Subscribe opens a realtime channel for one table. Events arrive on the
// returned channel until ctx is cancelled or the connection drops; the
// channel is closed either way.
func (c *Client) Subscribe(ctx context.Context, table string) (<-chan ChangeEvent, error) {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/realtime"

	header := http.Header{}
	header.Set("apikey", c.apiKey)
	if token := c.auth.Token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("dial realtime: %w", err)
	}

	if err := conn.WriteJSON(map[string]string{"table": table}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", table, err)
	}

	events := make(chan ChangeEvent, 16)
	go func() {
		defer close(events)
		defer conn.Close()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				var ev ChangeEvent
				if err := conn.ReadJSON(&ev); err != nil {
					return
				}
				select {
				case events <- ev:
				default:
					log.Printf("gateway: dropped realtime event for %s", ev.Table)
				}
			}
		}()

		select {
		case <-ctx.Done():
			conn.Close()
			<-done
		case <-done:
		}
	}()
	return events, nil
}
