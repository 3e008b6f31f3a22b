package shared

import "time"

// Redis keys
const (
	RedisKeyConfirmed = "reservations:confirmed"
)

// NATS topics
const (
	NATSTopicState     = "reservations.state"
	NATSTopicAllEvents = "reservations.>"
)

// Timeouts and durations
const (
	DefaultReservationTimeout = 120 * time.Second
	DefaultSelectionTimeout   = 30 * time.Second
	SweepInterval             = 2 * time.Second
	WebSocketWriteTimeout     = 10 * time.Second
	WebSocketPongWait         = 60 * time.Second
	WebSocketPingPeriod       = (WebSocketPongWait * 9) / 10
)

// Admission defaults
const (
	DefaultMaxActiveUsers = 3
)

// Server configuration
const (
	ReservationServicePort = ":8080"
	DefaultEdgePort        = ":3000"
)

// API endpoints
const (
	APIEndpointState         = "/api/state"
	APIEndpointJoin          = "/api/users/join"
	APIEndpointLeave         = "/api/users/leave"
	APIEndpointReserve       = "/api/reservations"
	APIEndpointConfirm       = "/api/reservations/confirm"
	APIEndpointConfirmedList = "/api/reservations/confirmed"
	APIEndpointSettings      = "/api/admin/settings"
	APIEndpointHealth        = "/health"
	WebSocketEndpoint        = "/ws"
)

// SessionCookieName carries the stable user id across reconnects.
const SessionCookieName = "reservation_session"
