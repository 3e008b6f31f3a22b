package main

import (
	"log"
	"time"

	"event-reservation/shared"
)

// StartSweeper runs the expiry sweep on a fixed interval. Without it a
// hold abandoned before confirmation would pin its inventory unit until
// the holder happened to call confirm.
func StartSweeper(coord *Coordinator, publisher StatePublisher, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			sweepExpired(coord, publisher)
		}
	}()
	log.Println("Expiry sweeper started - checking every", interval)
}

func sweepExpired(coord *Coordinator, publisher StatePublisher) {
	expired := coord.ReleaseExpired()
	if len(expired) == 0 {
		return
	}

	snapshot := coord.Snapshot()
	for _, res := range expired {
		log.Printf("Released expired hold on event %d (was held by %s)", res.EventID, res.UserID)
		publisher.PublishState(shared.StateEvent{
			Type:      EventHoldExpired,
			UserID:    res.UserID,
			EventID:   res.EventID,
			Timestamp: time.Now(),
			State:     &snapshot,
		})
	}
	log.Printf("Sweeper: released %d expired holds", len(expired))
}
