package main

import (
	"errors"
	"log"
	"net/http"
	"time"

	"event-reservation/shared"

	"github.com/gin-gonic/gin"
)

// Server binds the coordinator to its HTTP surface, the confirmation
// ledger and the state event feed.
type Server struct {
	coord     *Coordinator
	ledger    ConfirmationLedger
	publisher StatePublisher
}

func NewServer(coord *Coordinator, ledger ConfirmationLedger, publisher StatePublisher) *Server {
	return &Server{coord: coord, ledger: ledger, publisher: publisher}
}

// SettingsPayload is the admin wire form of the coordinator settings,
// with timeouts in seconds.
type SettingsPayload struct {
	MaxActiveUsers            int `json:"max_active_users"`
	SelectionTimeoutSeconds   int `json:"selection_timeout_seconds"`
	ReservationTimeoutSeconds int `json:"reservation_timeout_seconds"`
}

func (s *Server) Routes() *gin.Engine {
	router := gin.Default()

	api := router.Group("/api")
	{
		api.GET("/state", s.handleState)
		api.POST("/users/join", s.handleJoin)
		api.POST("/users/leave", s.handleLeave)
		api.POST("/reservations", s.handleReserve)
		api.POST("/reservations/confirm", s.handleConfirm)
		api.GET("/reservations/confirmed", s.handleConfirmedList)
		api.GET("/admin/settings", s.handleGetSettings)
		api.PUT("/admin/settings", s.handlePutSettings)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, s.coord.Snapshot())
}

func (s *Server) handleJoin(c *gin.Context) {
	var req shared.UserRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		c.JSON(http.StatusBadRequest, shared.ErrorResponse{Error: "user_id is required"})
		return
	}

	s.coord.AddUser(req.UserID)
	snapshot := s.publishState(EventUserJoined, req.UserID, 0)
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) handleLeave(c *gin.Context) {
	var req shared.UserRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		c.JSON(http.StatusBadRequest, shared.ErrorResponse{Error: "user_id is required"})
		return
	}

	s.coord.RemoveUser(req.UserID)
	snapshot := s.publishState(EventUserLeft, req.UserID, 0)
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) handleReserve(c *gin.Context) {
	var req shared.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		c.JSON(http.StatusBadRequest, shared.ErrorResponse{Error: "user_id and event_id are required"})
		return
	}

	if err := s.coord.Reserve(req.UserID, req.EventID); err != nil {
		c.JSON(http.StatusConflict, shared.OperationResult{Success: false, Message: err.Error()})
		return
	}

	s.publishState(EventHoldCreated, req.UserID, req.EventID)
	log.Printf("User %s holds one slot of event %d", req.UserID, req.EventID)
	c.JSON(http.StatusOK, shared.OperationResult{Success: true, Message: "temporary reservation created"})
}

func (s *Server) handleConfirm(c *gin.Context) {
	var req shared.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		c.JSON(http.StatusBadRequest, shared.ErrorResponse{Error: "user_id is required"})
		return
	}

	res, err := s.coord.Confirm(req.UserID, req.UserData)
	if err != nil {
		if errors.Is(err, ErrReservationExpired) {
			// The expired hold was cancelled and its slot returned, so
			// clients need the new state too.
			s.publishState(EventHoldExpired, req.UserID, 0)
		}
		c.JSON(http.StatusConflict, shared.OperationResult{Success: false, Message: err.Error()})
		return
	}

	if err := s.ledger.Append(c.Request.Context(), res); err != nil {
		// The confirmation itself already took effect; the ledger is a
		// write-aside log, not part of the transaction.
		log.Printf("Error appending confirmation for user %s to ledger: %v", req.UserID, err)
	}

	s.publishState(EventHoldConfirmed, req.UserID, res.EventID)
	log.Printf("User %s confirmed reservation for event %d", req.UserID, res.EventID)
	c.JSON(http.StatusOK, shared.OperationResult{Success: true, Message: "reservation confirmed"})
}

func (s *Server) handleConfirmedList(c *gin.Context) {
	reservations, err := s.ledger.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, shared.ErrorResponse{Error: "failed to read confirmed reservations"})
		return
	}
	c.JSON(http.StatusOK, reservations)
}

func (s *Server) handleGetSettings(c *gin.Context) {
	settings := s.coord.SettingsSnapshot()
	c.JSON(http.StatusOK, SettingsPayload{
		MaxActiveUsers:            settings.MaxActiveUsers,
		SelectionTimeoutSeconds:   int(settings.SelectionTimeout / time.Second),
		ReservationTimeoutSeconds: int(settings.ReservationTimeout / time.Second),
	})
}

func (s *Server) handlePutSettings(c *gin.Context) {
	var payload SettingsPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, shared.ErrorResponse{Error: "invalid settings payload"})
		return
	}
	if payload.MaxActiveUsers < 1 {
		c.JSON(http.StatusBadRequest, shared.ErrorResponse{Error: "max_active_users must be at least 1"})
		return
	}

	s.coord.UpdateSettings(shared.Settings{
		MaxActiveUsers:     payload.MaxActiveUsers,
		SelectionTimeout:   time.Duration(payload.SelectionTimeoutSeconds) * time.Second,
		ReservationTimeout: time.Duration(payload.ReservationTimeoutSeconds) * time.Second,
	})
	s.publishState(EventSettingsChanged, "", 0)
	log.Printf("Admin settings updated: max_active_users=%d", payload.MaxActiveUsers)
	c.JSON(http.StatusOK, payload)
}

// publishState snapshots the coordinator and pushes the event to the
// state feed. The snapshot is also returned for request/response use.
func (s *Server) publishState(eventType, userID string, eventID int) shared.StateSnapshot {
	snapshot := s.coord.Snapshot()
	s.publisher.PublishState(shared.StateEvent{
		Type:      eventType,
		UserID:    userID,
		EventID:   eventID,
		Timestamp: time.Now(),
		State:     &snapshot,
	})
	return snapshot
}
