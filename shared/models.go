package shared

import "time"

// Event is one entry in the seeded catalog. AvailableSlots counts units
// not currently held or confirmed; it never exceeds TotalSlots.
type Event struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	TotalSlots     int    `json:"total_slots"`
	AvailableSlots int    `json:"available_slots"`
}

// Reservation is a hold on one slot of an event. While Confirmed is false
// the hold owns exactly one decremented unit of the event's inventory.
type Reservation struct {
	UserID    string         `json:"user_id"`
	EventID   int            `json:"event_id"`
	CreatedAt time.Time      `json:"created_at"`
	Confirmed bool           `json:"confirmed"`
	UserData  map[string]any `json:"user_data,omitempty"`
}

// StateSnapshot is the consistent view broadcast to every client after a
// state-changing operation.
type StateSnapshot struct {
	Events      map[int]Event `json:"events"`
	Queue       []string      `json:"queue"`
	ActiveUsers []string      `json:"active_users"`
	OnlineCount int           `json:"online_count"`
}

// Settings is the admin-tunable configuration read by the coordinator.
type Settings struct {
	MaxActiveUsers     int           `json:"max_active_users"`
	SelectionTimeout   time.Duration `json:"selection_timeout"`
	ReservationTimeout time.Duration `json:"reservation_timeout"`
}

// Message types for WebSocket communication
const (
	MessageTypeSession         = "SESSION"
	MessageTypeReserveEvent    = "RESERVE_EVENT"
	MessageTypeConfirmRes      = "CONFIRM_RESERVATION"
	MessageTypeStateUpdate     = "STATE_UPDATE"
	MessageTypeReserveResponse = "RESERVATION_RESPONSE"
	MessageTypeConfirmResponse = "CONFIRMATION_RESPONSE"
	MessageTypeError           = "ERROR"
)

// ClientMessage represents a message from the browser to the edge server
type ClientMessage struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// ServerMessage represents a message from the edge server to the browser
type ServerMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// UserRequest identifies a user for join/leave calls.
type UserRequest struct {
	UserID string `json:"user_id"`
}

// ReserveRequest asks for a temporary hold on one slot of an event.
type ReserveRequest struct {
	UserID  string `json:"user_id"`
	EventID int    `json:"event_id"`
}

// ConfirmRequest converts a pending hold into a confirmed reservation.
type ConfirmRequest struct {
	UserID   string         `json:"user_id"`
	UserData map[string]any `json:"user_data"`
}

// OperationResult is the (success, message) pair returned for every
// reservation operation.
type OperationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// StateEvent is published to NATS after every mutation so edge servers
// can fan the new state out to their clients.
type StateEvent struct {
	Type      string         `json:"type"` // user_joined, user_left, hold_created, hold_confirmed, hold_expired, settings_changed
	UserID    string         `json:"user_id,omitempty"`
	EventID   int            `json:"event_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	State     *StateSnapshot `json:"state,omitempty"`
}

// ErrorResponse represents an error message
type ErrorResponse struct {
	Error string `json:"error"`
}
