package main

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"event-reservation/shared"
)

// Reservation operation errors. These are user-facing outcomes carried back
// to the originating client as a (success, message) pair, never process
// failures.
var (
	ErrNotActive          = errors.New("user is not active")
	ErrEventUnavailable   = errors.New("event unavailable")
	ErrReservationPending = errors.New("a temporary reservation is already pending")
	ErrNoReservation      = errors.New("no pending reservation found")
	ErrReservationExpired = errors.New("reservation hold expired")
)

// Coordinator is the single shared aggregate behind the whole system:
// event inventory, the bounded active set, the FIFO waiting queue and all
// in-flight temporary reservations. Every public method takes the one
// mutex for its full duration; internal helpers named *Locked assume the
// caller already holds it and never re-acquire.
type Coordinator struct {
	mu       sync.Mutex
	events   map[int]*shared.Event
	online   map[string]struct{}
	active   map[string]struct{}
	waiting  []string
	pending  map[string]*shared.Reservation
	settings shared.Settings

	// now is swappable so expiry paths can be tested without sleeping.
	now func() time.Time
}

// NewCoordinator seeds the inventory from the catalog and starts with no
// users online.
func NewCoordinator(settings shared.Settings, catalog []shared.Event) *Coordinator {
	if settings.MaxActiveUsers < 1 {
		settings.MaxActiveUsers = 1
	}
	events := make(map[int]*shared.Event, len(catalog))
	for _, ev := range catalog {
		e := ev
		if e.AvailableSlots == 0 {
			e.AvailableSlots = e.TotalSlots
		}
		events[e.ID] = &e
	}
	return &Coordinator{
		events:   events,
		online:   make(map[string]struct{}),
		active:   make(map[string]struct{}),
		pending:  make(map[string]*shared.Reservation),
		settings: settings,
		now:      time.Now,
	}
}

// AddUser registers a connection. The user is admitted to the active set
// if capacity remains, otherwise appended to the tail of the waiting
// queue. Re-adding a user that is already tracked is a no-op, so
// reconnects with a stable session id keep their position.
func (c *Coordinator) AddUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.online[userID] = struct{}{}
	if _, ok := c.active[userID]; ok {
		return
	}
	for _, id := range c.waiting {
		if id == userID {
			return
		}
	}
	if len(c.active) < c.settings.MaxActiveUsers {
		c.active[userID] = struct{}{}
	} else {
		c.waiting = append(c.waiting, userID)
	}
}

// RemoveUser drops the user from every membership set, cancels any
// unconfirmed reservation they own (returning the held slot to
// inventory), and backfills freed admission capacity from the waiting
// queue in FIFO order. All of it happens atomically under the lock.
func (c *Coordinator) RemoveUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.online, userID)
	delete(c.active, userID)
	for i, id := range c.waiting {
		if id == userID {
			c.waiting = append(c.waiting[:i], c.waiting[i+1:]...)
			break
		}
	}
	c.cancelLocked(userID)
	c.promoteLocked()
}

// Reserve places a temporary hold on one slot of the event. The slot is
// decremented immediately; the hold owns it until confirmed, cancelled or
// expired.
func (c *Coordinator) Reserve(userID string, eventID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.active[userID]; !ok {
		return ErrNotActive
	}
	event, ok := c.events[eventID]
	if !ok || event.AvailableSlots <= 0 {
		return ErrEventUnavailable
	}
	if _, ok := c.pending[userID]; ok {
		// Overwriting would leak the previously held slot.
		return ErrReservationPending
	}

	event.AvailableSlots--
	c.pending[userID] = &shared.Reservation{
		UserID:    userID,
		EventID:   eventID,
		CreatedAt: c.now(),
	}
	return nil
}

// Confirm converts the user's pending hold into a confirmed reservation
// with the supplied payload attached. A hold older than the reservation
// timeout is cancelled instead, restoring its slot. On success the
// confirmed record is removed from the pending map and returned so the
// caller can append it to the durable ledger; the pending map only ever
// holds live holds.
func (c *Coordinator) Confirm(userID string, userData map[string]any) (shared.Reservation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, ok := c.pending[userID]
	if !ok {
		return shared.Reservation{}, ErrNoReservation
	}
	if c.now().Sub(res.CreatedAt) > c.settings.ReservationTimeout {
		c.cancelLocked(userID)
		return shared.Reservation{}, ErrReservationExpired
	}

	res.Confirmed = true
	res.UserData = userData
	delete(c.pending, userID)
	return *res, nil
}

// ReleaseExpired cancels every pending hold older than the reservation
// timeout and returns the cancelled records, oldest first. Called
// periodically by the sweeper so abandoned holds cannot pin inventory
// forever.
func (c *Coordinator) ReleaseExpired() []shared.Reservation {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-c.settings.ReservationTimeout)
	var expired []shared.Reservation
	for id, res := range c.pending {
		if res.CreatedAt.Before(cutoff) {
			expired = append(expired, *res)
			c.cancelLocked(id)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].CreatedAt.Before(expired[j].CreatedAt)
	})
	return expired
}

// Pending returns a copy of the user's live hold, if any.
func (c *Coordinator) Pending(userID string) (shared.Reservation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, ok := c.pending[userID]
	if !ok {
		return shared.Reservation{}, false
	}
	return *res, true
}

// Snapshot copies the broadcast state under the lock so clients never see
// a torn view.
func (c *Coordinator) Snapshot() shared.StateSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	events := make(map[int]shared.Event, len(c.events))
	for id, ev := range c.events {
		events[id] = *ev
	}
	queue := make([]string, len(c.waiting))
	copy(queue, c.waiting)
	activeUsers := make([]string, 0, len(c.active))
	for id := range c.active {
		activeUsers = append(activeUsers, id)
	}
	sort.Strings(activeUsers)

	return shared.StateSnapshot{
		Events:      events,
		Queue:       queue,
		ActiveUsers: activeUsers,
		OnlineCount: len(c.online),
	}
}

// SettingsSnapshot returns the current admin settings.
func (c *Coordinator) SettingsSnapshot() shared.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// UpdateSettings replaces the admin settings. MaxActiveUsers is clamped
// to at least 1. Raising the cap promotes waiting users immediately;
// lowering it never demotes users that are already active.
func (c *Coordinator) UpdateSettings(s shared.Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.MaxActiveUsers < 1 {
		s.MaxActiveUsers = 1
	}
	c.settings = s
	c.promoteLocked()
}

// cancelLocked releases the user's pending hold, returning its unit to
// the event's inventory. No-op when the user holds nothing.
func (c *Coordinator) cancelLocked(userID string) {
	res, ok := c.pending[userID]
	if !ok {
		return
	}
	event, ok := c.events[res.EventID]
	if !ok {
		// A hold always references a seeded event; anything else means
		// the aggregate is corrupt.
		panic(fmt.Sprintf("coordinator: pending reservation for unknown event %d", res.EventID))
	}
	if event.AvailableSlots < event.TotalSlots {
		event.AvailableSlots++
	}
	delete(c.pending, userID)
}

// promoteLocked backfills the active set from the head of the waiting
// queue while capacity remains. Entries that already went offline are
// discarded rather than admitted.
func (c *Coordinator) promoteLocked() {
	for len(c.active) < c.settings.MaxActiveUsers && len(c.waiting) > 0 {
		next := c.waiting[0]
		c.waiting = c.waiting[1:]
		if _, ok := c.online[next]; ok {
			c.active[next] = struct{}{}
		}
	}
}
