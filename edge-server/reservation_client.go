package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"event-reservation/shared"
)

// ReservationClient handles communication with the reservation service
type ReservationClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewReservationClient creates a new reservation service client
func NewReservationClient(baseURL string) *ReservationClient {
	return &ReservationClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Join registers a connected user and returns the resulting state.
func (rc *ReservationClient) Join(userID string) (*shared.StateSnapshot, error) {
	var snapshot shared.StateSnapshot
	if err := rc.postJSON(shared.APIEndpointJoin, shared.UserRequest{UserID: userID}, &snapshot); err != nil {
		return nil, fmt.Errorf("join failed: %w", err)
	}
	return &snapshot, nil
}

// Leave removes a disconnected user.
func (rc *ReservationClient) Leave(userID string) error {
	if err := rc.postJSON(shared.APIEndpointLeave, shared.UserRequest{UserID: userID}, nil); err != nil {
		return fmt.Errorf("leave failed: %w", err)
	}
	return nil
}

// Reserve asks for a temporary hold on one slot of an event. A rejected
// request (user not active, event unavailable, hold already pending) is
// not an error: the outcome comes back in the result.
func (rc *ReservationClient) Reserve(userID string, eventID int) (shared.OperationResult, error) {
	return rc.postOperation(shared.APIEndpointReserve, shared.ReserveRequest{UserID: userID, EventID: eventID})
}

// Confirm converts the user's pending hold into a confirmed reservation.
func (rc *ReservationClient) Confirm(userID string, userData map[string]any) (shared.OperationResult, error) {
	return rc.postOperation(shared.APIEndpointConfirm, shared.ConfirmRequest{UserID: userID, UserData: userData})
}

// State fetches the current broadcast snapshot.
func (rc *ReservationClient) State() (*shared.StateSnapshot, error) {
	resp, err := rc.httpClient.Get(rc.baseURL + shared.APIEndpointState)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch state: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var snapshot shared.StateSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return &snapshot, nil
}

// HealthCheck verifies the reservation service is available
func (rc *ReservationClient) HealthCheck() error {
	resp, err := rc.httpClient.Get(rc.baseURL + shared.APIEndpointHealth)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy status: %d", resp.StatusCode)
	}
	return nil
}

// postOperation posts a reservation command. Both 200 and 409 carry an
// OperationResult body; anything else is a transport-level failure.
func (rc *ReservationClient) postOperation(endpoint string, payload any) (shared.OperationResult, error) {
	resp, err := rc.post(endpoint, payload)
	if err != nil {
		return shared.OperationResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusConflict {
		body, _ := io.ReadAll(resp.Body)
		return shared.OperationResult{}, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var result shared.OperationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return shared.OperationResult{}, fmt.Errorf("failed to decode result: %w", err)
	}
	return result, nil
}

// postJSON posts a payload and decodes a 200 response into out when out
// is non-nil.
func (rc *ReservationClient) postJSON(endpoint string, payload, out any) error {
	resp, err := rc.post(endpoint, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp shared.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (rc *ReservationClient) post(endpoint string, payload any) (*http.Response, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, rc.baseURL+endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := rc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}
