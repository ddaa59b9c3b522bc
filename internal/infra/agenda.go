package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// SessionEvent is one calendar entry as reported by the agenda service.
// Status: "attended" | "scheduled" | "cancelled".
type SessionEvent struct {
	ExternalEventID string    `json:"external_event_id"`
	Date            time.Time `json:"date"`
	Time            string    `json:"time"`
	Status          string    `json:"status"`
}

// SessionSource supplies billable session events per patient and date window.
// The billing engine never writes through this interface.
type SessionSource interface {
	GetSessions(ctx context.Context, patientID uuid.UUID, start, end time.Time) ([]SessionEvent, error)
}

// AgendaClient is the HTTP implementation of SessionSource, talking to the
// calendar-sync sidecar that mirrors the therapist's external calendar.
type AgendaClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAgendaClient(baseURL string) *AgendaClient {
	return &AgendaClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *AgendaClient) GetSessions(ctx context.Context, patientID uuid.UUID, start, end time.Time) ([]SessionEvent, error) {
	q := url.Values{}
	q.Set("patient_id", patientID.String())
	q.Set("start", start.Format("2006-01-02"))
	q.Set("end", end.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sessions?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("agenda: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agenda: unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agenda: returned %d", resp.StatusCode)
	}

	var result struct {
		Sessions []SessionEvent `json:"sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("agenda: decode response: %w", err)
	}
	return result.Sessions, nil
}
