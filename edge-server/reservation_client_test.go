package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"event-reservation/shared"
)

func newFakeService(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/users/join", func(w http.ResponseWriter, r *http.Request) {
		var req shared.UserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(shared.ErrorResponse{Error: "user_id is required"})
			return
		}
		json.NewEncoder(w).Encode(shared.StateSnapshot{
			Events:      map[int]shared.Event{1: {ID: 1, Name: "Tech Conference", TotalSlots: 50, AvailableSlots: 49}},
			ActiveUsers: []string{req.UserID},
			Queue:       []string{},
			OnlineCount: 1,
		})
	})
	mux.HandleFunc("/api/users/leave", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(shared.StateSnapshot{OnlineCount: 0})
	})
	mux.HandleFunc("/api/reservations", func(w http.ResponseWriter, r *http.Request) {
		var req shared.ReserveRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.EventID != 1 {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(shared.OperationResult{Success: false, Message: "event unavailable"})
			return
		}
		json.NewEncoder(w).Encode(shared.OperationResult{Success: true, Message: "temporary reservation created"})
	})
	mux.HandleFunc("/api/reservations/confirm", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(shared.OperationResult{Success: true, Message: "reservation confirmed"})
	})
	mux.HandleFunc("/api/state", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(shared.StateSnapshot{OnlineCount: 2})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestJoinDecodesSnapshot(t *testing.T) {
	service := newFakeService(t)
	rc := NewReservationClient(service.URL)

	snapshot, err := rc.Join("u1")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if snapshot.OnlineCount != 1 {
		t.Errorf("online count = %d, want 1", snapshot.OnlineCount)
	}
	if snapshot.Events[1].AvailableSlots != 49 {
		t.Errorf("event slots = %d, want 49", snapshot.Events[1].AvailableSlots)
	}
}

func TestReserveReturnsRejectionAsResult(t *testing.T) {
	service := newFakeService(t)
	rc := NewReservationClient(service.URL)

	// A 409 is a normal outcome, not a transport failure.
	result, err := rc.Reserve("u1", 42)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if result.Success {
		t.Error("rejected reserve reported success")
	}
	if result.Message != "event unavailable" {
		t.Errorf("message = %q, want %q", result.Message, "event unavailable")
	}

	result, err = rc.Reserve("u1", 1)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if !result.Success {
		t.Errorf("accepted reserve reported failure: %q", result.Message)
	}
}

func TestConfirmSuccess(t *testing.T) {
	service := newFakeService(t)
	rc := NewReservationClient(service.URL)

	result, err := rc.Confirm("u1", map[string]any{"email": "ada@example.com"})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !result.Success {
		t.Errorf("confirm result = %+v", result)
	}
}

func TestServerErrorSurfacesAsError(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer broken.Close()

	rc := NewReservationClient(broken.URL)
	if _, err := rc.Reserve("u1", 1); err == nil {
		t.Error("Reserve against broken service returned no error")
	}
	if _, err := rc.Join("u1"); err == nil {
		t.Error("Join against broken service returned no error")
	}
}

func TestHealthCheck(t *testing.T) {
	service := newFakeService(t)
	rc := NewReservationClient(service.URL)
	if err := rc.HealthCheck(); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}
}
