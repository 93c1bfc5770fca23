package clinicapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/console/internal/session"
)

// Client talks to the clinic API. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "clinicapi").Logger(),
	}
}

// ListPatients fetches one page of the patients list. rawQuery is the
// canonical query string produced by querystate.Encode, which doubles as the
// cache key, so the request on the wire is byte-identical to the key that
// deduplicated it.
func (c *Client) ListPatients(ctx context.Context, rawQuery string) (PatientPage, error) {
	var page PatientPage
	err := c.do(ctx, http.MethodGet, "/patients?"+rawQuery, nil, &page)
	return page, err
}

// ListAppointments fetches the events inside [start, end). An empty doctorID
// (or "all") returns every doctor's events the caller may see.
func (c *Client) ListAppointments(ctx context.Context, start, end time.Time, doctorID string) ([]Appointment, error) {
	q := url.Values{}
	q.Set("start", start.UTC().Format(time.RFC3339))
	q.Set("end", end.UTC().Format(time.RFC3339))
	if doctorID != "" && doctorID != "all" {
		q.Set("doctorId", doctorID)
	}
	var events []Appointment
	err := c.do(ctx, http.MethodGet, "/appointments?"+q.Encode(), nil, &events)
	return events, err
}

// CreateAppointment posts a new appointment and returns the server's copy,
// including the assigned id.
func (c *Client) CreateAppointment(ctx context.Context, draft AppointmentDraft) (Appointment, error) {
	var created Appointment
	err := c.do(ctx, http.MethodPost, "/appointments", draft, &created)
	return created, err
}

// UpdateAppointment patches an existing appointment.
func (c *Client) UpdateAppointment(ctx context.Context, id uuid.UUID, patch AppointmentPatch) (Appointment, error) {
	var updated Appointment
	err := c.do(ctx, http.MethodPatch, "/appointments/"+id.String(), patch, &updated)
	return updated, err
}

// DeleteAppointment removes an appointment.
func (c *Client) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/appointments/"+id.String(), nil, nil)
}

// ListDoctors fetches the active doctor roster for the calendar filter.
func (c *Client) ListDoctors(ctx context.Context, limit int) ([]Staff, error) {
	q := url.Values{}
	q.Set("role", "doctor")
	q.Set("status", "active")
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	var payload struct {
		Staff []Staff `json:"staff"`
	}
	err := c.do(ctx, http.MethodGet, "/staff?"+q.Encode(), nil, &payload)
	return payload.Staff, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := session.FromContext(ctx).Token; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return &RemoteError{Body: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("request")

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &RemoteError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
