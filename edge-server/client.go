package main

import (
	"encoding/json"
	"log"
	"time"

	"event-reservation/shared"

	"github.com/gorilla/websocket"
)

const (
	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024
)

// Client is a middleman between one websocket connection and the hub.
// Each connection maps to exactly one reservation user id.
type Client struct {
	hub *Hub

	// The websocket connection
	conn *websocket.Conn

	// Buffered channel of outbound messages
	send chan []byte

	// Stable user id issued at connect time
	userID string

	rc *ReservationClient

	connectedAt time.Time
}

// readPump pumps messages from the websocket connection to the handlers.
// When the connection drops, the user leaves the reservation pool.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
		if err := c.rc.Leave(c.userID); err != nil {
			log.Printf("Error removing user %s on disconnect: %v", c.userID, err)
		}
		log.Printf("User %s disconnected after %v", c.userID, time.Since(c.connectedAt))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(shared.WebSocketPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(shared.WebSocketPongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error for user %s: %v", c.userID, err)
			}
			break
		}

		var clientMsg shared.ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			log.Printf("Error parsing message from user %s: %v", c.userID, err)
			c.sendError("invalid message format")
			continue
		}

		c.handleMessage(&clientMsg)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(shared.WebSocketPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(shared.WebSocketWriteTimeout))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(shared.WebSocketWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg *shared.ClientMessage) {
	switch msg.Type {
	case shared.MessageTypeReserveEvent:
		c.handleReserve(msg.Data)
	case shared.MessageTypeConfirmRes:
		c.handleConfirm(msg.Data)
	default:
		c.sendError("unknown message type: " + msg.Type)
	}
}

func (c *Client) sendMessage(msgType string, data any) {
	msg := shared.ServerMessage{
		Type: msgType,
		Data: data,
	}

	jsonData, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	select {
	case c.send <- jsonData:
	default:
		log.Printf("Failed to send %s to user %s: buffer full", msgType, c.userID)
	}
}

func (c *Client) sendError(errorMsg string) {
	c.sendMessage(shared.MessageTypeError, shared.ErrorResponse{Error: errorMsg})
}
