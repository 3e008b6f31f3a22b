package main

import (
	"log"

	"event-reservation/shared"
)

// handleReserve forwards a hold request to the reservation service and
// replies privately to the caller. The broadcast with the new state
// arrives separately via the NATS feed.
func (c *Client) handleReserve(data map[string]any) {
	eventID, ok := numberField(data, "event_id")
	if !ok {
		c.sendMessage(shared.MessageTypeReserveResponse, shared.OperationResult{
			Success: false,
			Message: "event_id is required",
		})
		return
	}

	result, err := c.rc.Reserve(c.userID, eventID)
	if err != nil {
		log.Printf("[ERROR] Reserve for user %s on event %d: %v", c.userID, eventID, err)
		c.sendMessage(shared.MessageTypeReserveResponse, shared.OperationResult{
			Success: false,
			Message: "reservation service unavailable",
		})
		return
	}

	c.sendMessage(shared.MessageTypeReserveResponse, result)
	log.Printf("[RESERVE] User %s, event %d: %s", c.userID, eventID, result.Message)
}

// handleConfirm forwards a confirmation, passing the user payload through
// untouched.
func (c *Client) handleConfirm(data map[string]any) {
	userData, _ := data["user_data"].(map[string]any)

	result, err := c.rc.Confirm(c.userID, userData)
	if err != nil {
		log.Printf("[ERROR] Confirm for user %s: %v", c.userID, err)
		c.sendMessage(shared.MessageTypeConfirmResponse, shared.OperationResult{
			Success: false,
			Message: "reservation service unavailable",
		})
		return
	}

	c.sendMessage(shared.MessageTypeConfirmResponse, result)
	log.Printf("[CONFIRM] User %s: %s", c.userID, result.Message)
}

// sendState pushes a snapshot privately to this client.
func (c *Client) sendState(snapshot *shared.StateSnapshot) {
	c.sendMessage(shared.MessageTypeStateUpdate, snapshot)
}

// numberField reads an integer out of a decoded JSON object, where
// numbers arrive as float64.
func numberField(data map[string]any, key string) (int, bool) {
	v, ok := data[key].(float64)
	if !ok {
		return 0, false
	}
	return int(v), true
}
