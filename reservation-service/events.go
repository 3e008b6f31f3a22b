package main

import (
	"encoding/json"
	"log"
	"time"

	"event-reservation/shared"

	"github.com/nats-io/nats.go"
)

// State event types carried on the NATS feed.
const (
	EventUserJoined      = "user_joined"
	EventUserLeft        = "user_left"
	EventHoldCreated     = "hold_created"
	EventHoldConfirmed   = "hold_confirmed"
	EventHoldExpired     = "hold_expired"
	EventSettingsChanged = "settings_changed"
)

// StatePublisher fans a state event out to the edge servers. Publishing
// is fire-and-forget: a lost event only delays clients until the next
// mutation.
type StatePublisher interface {
	PublishState(event shared.StateEvent)
}

// NATSPublisher publishes state events on the reservations.state topic.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

func (p *NATSPublisher) PublishState(event shared.StateEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling state event: %v", err)
		return
	}

	if err := p.conn.Publish(shared.NATSTopicState, data); err != nil {
		log.Printf("Error publishing %s event to NATS: %v", event.Type, err)
	}
}
