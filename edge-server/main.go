package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"event-reservation/shared"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
)

var (
	natsConn          *nats.Conn
	hub               *Hub
	reservationClient *ReservationClient
	upgrader          = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// Allow connections from any origin for development
			return true
		},
	}
)

func main() {
	// Get port from environment variable
	port := os.Getenv("PORT")
	if port == "" {
		port = shared.DefaultEdgePort
	} else {
		port = ":" + port
	}

	log.Printf("Starting edge server on port %s...", port)

	// Connect to NATS
	if err := connectNATS(); err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer natsConn.Close()
	log.Println("Connected to NATS")

	// Initialize reservation service client
	serviceURL := os.Getenv("RESERVATION_SERVICE_URL")
	if serviceURL == "" {
		serviceURL = "http://localhost:8080"
	}
	reservationClient = NewReservationClient(serviceURL)
	log.Printf("Reservation client initialized with URL: %s", serviceURL)

	// Initialize hub
	hub = newHub()
	go hub.run()
	log.Println("Hub initialized and running")

	// Subscribe to the state feed
	if err := subscribeToStateFeed(); err != nil {
		log.Fatalf("Failed to subscribe to NATS: %v", err)
	}
	log.Println("Subscribed to reservation state events")

	// Setup HTTP routes
	http.HandleFunc(shared.WebSocketEndpoint, handleWebSocket)
	http.HandleFunc("/health", handleHealth)
	http.HandleFunc("/stats", handleStats)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down edge server...")
		os.Exit(0)
	}()

	// Start server
	log.Printf("Edge server started on %s", port)
	if err := http.ListenAndServe(port, nil); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func connectNATS() error {
	var err error

	opts := []nats.Option{
		nats.Name("edge-server"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("[NATS] Disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[NATS] Reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Printf("[NATS] Error: %v", err)
		}),
	}

	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = nats.DefaultURL
	}

	natsConn, err = nats.Connect(natsURL, opts...)
	if err != nil {
		return err
	}

	if !natsConn.IsConnected() {
		return fmt.Errorf("NATS connection not established")
	}

	return nil
}

// subscribeToStateFeed relays every state event from the reservation
// service to all connected websocket clients.
func subscribeToStateFeed() error {
	subscription, err := natsConn.Subscribe(shared.NATSTopicAllEvents, func(msg *nats.Msg) {
		var event shared.StateEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Printf("[ERROR] Failed to parse state event: %v", err)
			return
		}

		wsMessage := shared.ServerMessage{
			Type: shared.MessageTypeStateUpdate,
			Data: event.State,
		}
		wsMessageJSON, err := json.Marshal(wsMessage)
		if err != nil {
			log.Printf("[ERROR] Failed to marshal state update: %v", err)
			return
		}

		hub.Broadcast(wsMessageJSON)
		log.Printf("[NATS] Received %s event on %s, broadcasting to %d clients",
			event.Type, msg.Subject, hub.ClientCount())
	})
	if err != nil {
		return err
	}

	log.Printf("[NATS] Subscribed to %s (subscription: %s)", shared.NATSTopicAllEvents, subscription.Subject)
	return nil
}

func handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, responseHeader := sessionID(r)

	conn, err := upgrader.Upgrade(w, r, responseHeader)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, 256),
		userID:      userID,
		rc:          reservationClient,
		connectedAt: time.Now(),
	}

	// Register the user with the reservation pool before serving
	snapshot, err := reservationClient.Join(userID)
	if err != nil {
		log.Printf("[ERROR] Failed to join user %s: %v", userID, err)
		conn.Close()
		return
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()

	// Tell the client who it is, then hand it the current state
	client.sendMessage(shared.MessageTypeSession, map[string]string{"user_id": userID})
	client.sendState(snapshot)

	log.Printf("New WebSocket client connected for user %s", userID)
}

// sessionID resolves the stable user id for a connection. A returning
// browser keeps its id through the session cookie; a new one gets a
// fresh uuid set on the upgrade response.
func sessionID(r *http.Request) (string, http.Header) {
	if cookie, err := r.Cookie(shared.SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	userID := uuid.NewString()
	cookie := &http.Cookie{
		Name:     shared.SessionCookieName,
		Value:    userID,
		Path:     "/",
		HttpOnly: true,
	}
	header := http.Header{}
	header.Add("Set-Cookie", cookie.String())
	return userID, header
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok","service":"edge-server"}`))
}

func handleStats(w http.ResponseWriter, r *http.Request) {
	stats := hub.Stats()
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		http.Error(w, "Failed to get stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(statsJSON)
}
