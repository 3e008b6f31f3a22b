package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"event-reservation/shared"

	"github.com/gin-gonic/gin"
)

type memoryLedger struct {
	mu      sync.Mutex
	entries []shared.Reservation
}

func (l *memoryLedger) Append(_ context.Context, res shared.Reservation) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, res)
	return nil
}

func (l *memoryLedger) List(_ context.Context) ([]shared.Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]shared.Reservation, len(l.entries))
	copy(out, l.entries)
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.StateEvent
}

func (p *recordingPublisher) PublishState(event shared.StateEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, ev := range p.events {
		types[i] = ev.Type
	}
	return types
}

func newTestServer(maxActive int) (*Server, *memoryLedger, *recordingPublisher) {
	gin.SetMode(gin.TestMode)
	coord := NewCoordinator(shared.Settings{
		MaxActiveUsers:     maxActive,
		SelectionTimeout:   30 * time.Second,
		ReservationTimeout: 120 * time.Second,
	}, testCatalog())

	ledger := &memoryLedger{}
	publisher := &recordingPublisher{}
	return NewServer(coord, ledger, publisher), ledger, publisher
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestJoinReturnsSnapshotAndPublishes(t *testing.T) {
	server, _, publisher := newTestServer(3)
	router := server.Routes()

	rec := doJSON(t, router, http.MethodPost, "/api/users/join", shared.UserRequest{UserID: "u1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var snap shared.StateSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.OnlineCount != 1 || len(snap.ActiveUsers) != 1 {
		t.Errorf("snapshot after join = %+v", snap)
	}

	types := publisher.types()
	if len(types) != 1 || types[0] != EventUserJoined {
		t.Errorf("published events = %v, want [user_joined]", types)
	}
}

func TestJoinRequiresUserID(t *testing.T) {
	server, _, _ := newTestServer(3)
	router := server.Routes()

	rec := doJSON(t, router, http.MethodPost, "/api/users/join", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestReserveConflictCarriesReason(t *testing.T) {
	server, _, _ := newTestServer(1)
	router := server.Routes()

	doJSON(t, router, http.MethodPost, "/api/users/join", shared.UserRequest{UserID: "active"})
	doJSON(t, router, http.MethodPost, "/api/users/join", shared.UserRequest{UserID: "waiting"})

	rec := doJSON(t, router, http.MethodPost, "/api/reservations",
		shared.ReserveRequest{UserID: "waiting", EventID: 1})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}

	var result shared.OperationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Success {
		t.Error("rejected reservation reported success")
	}
	if result.Message != ErrNotActive.Error() {
		t.Errorf("message = %q, want %q", result.Message, ErrNotActive.Error())
	}
}

func TestReserveConfirmFlow(t *testing.T) {
	server, ledger, publisher := newTestServer(3)
	router := server.Routes()

	doJSON(t, router, http.MethodPost, "/api/users/join", shared.UserRequest{UserID: "u1"})

	rec := doJSON(t, router, http.MethodPost, "/api/reservations",
		shared.ReserveRequest{UserID: "u1", EventID: 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("reserve status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/api/reservations/confirm",
		shared.ConfirmRequest{UserID: "u1", UserData: map[string]any{"email": "ada@example.com"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	entries, _ := ledger.List(context.Background())
	if len(entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(entries))
	}
	if entries[0].UserID != "u1" || !entries[0].Confirmed {
		t.Errorf("ledger entry = %+v", entries[0])
	}

	types := publisher.types()
	want := []string{EventUserJoined, EventHoldCreated, EventHoldConfirmed}
	if len(types) != len(want) {
		t.Fatalf("published events = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, types[i], want[i])
		}
	}

	// The state ended up with exactly one slot consumed.
	rec = doJSON(t, router, http.MethodGet, "/api/state", nil)
	var snap shared.StateSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if snap.Events[1].AvailableSlots != 1 {
		t.Errorf("event 1 slots = %d, want 1", snap.Events[1].AvailableSlots)
	}
}

func TestConfirmWithoutHoldConflicts(t *testing.T) {
	server, ledger, _ := newTestServer(3)
	router := server.Routes()

	doJSON(t, router, http.MethodPost, "/api/users/join", shared.UserRequest{UserID: "u1"})
	rec := doJSON(t, router, http.MethodPost, "/api/reservations/confirm",
		shared.ConfirmRequest{UserID: "u1"})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
	if entries, _ := ledger.List(context.Background()); len(entries) != 0 {
		t.Errorf("failed confirm reached the ledger: %v", entries)
	}
}

func TestConfirmedListEndpoint(t *testing.T) {
	server, ledger, _ := newTestServer(3)
	router := server.Routes()

	ledger.Append(context.Background(), shared.Reservation{
		UserID: "u9", EventID: 2, Confirmed: true, CreatedAt: time.Now(),
	})

	rec := doJSON(t, router, http.MethodGet, "/api/reservations/confirmed", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var entries []shared.Reservation
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 1 || entries[0].UserID != "u9" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	server, _, publisher := newTestServer(3)
	router := server.Routes()

	rec := doJSON(t, router, http.MethodPut, "/api/admin/settings", SettingsPayload{
		MaxActiveUsers:            5,
		SelectionTimeoutSeconds:   15,
		ReservationTimeoutSeconds: 90,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/api/admin/settings", nil)
	var payload SettingsPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if payload.MaxActiveUsers != 5 || payload.ReservationTimeoutSeconds != 90 {
		t.Errorf("settings = %+v", payload)
	}

	types := publisher.types()
	if len(types) == 0 || types[len(types)-1] != EventSettingsChanged {
		t.Errorf("published events = %v, want settings_changed last", types)
	}

	// Invalid cap is rejected before touching the coordinator.
	rec = doJSON(t, router, http.MethodPut, "/api/admin/settings", SettingsPayload{MaxActiveUsers: 0})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("put invalid cap: status = %d, want 400", rec.Code)
	}
}
