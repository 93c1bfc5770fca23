package sandbox

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"

	"github.com/clinicdesk/console/internal/clinicapi"
)

func TestMutationBroadcastsChange(t *testing.T) {
	srv, _, e := newTestServer(t)
	ts := httptest.NewServer(e)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/changes"
	conn, _, err := gorillawebsocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial change feed: %v", err)
	}
	defer conn.Close()

	// Wait for the hub to register the connection.
	deadline := time.Now().Add(2 * time.Second)
	for srv.Hub().ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	var created clinicapi.Appointment
	rec := doJSON(t, e, http.MethodPost, "/appointments", clinicapi.AppointmentDraft{
		Title: "Consultation", Start: start, End: start.Add(time.Hour),
		PatientID: uuid.New(), DoctorID: uuid.New(),
	}, &created)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read change frame: %v", err)
	}
	var change Change
	if err := json.Unmarshal(payload, &change); err != nil {
		t.Fatalf("decode change: %v", err)
	}
	if change.Action != "created" || change.AppointmentID != created.ID {
		t.Fatalf("change = %+v, want created %s", change, created.ID)
	}
}

func TestBroadcastDropsDeadConnections(t *testing.T) {
	srv, _, e := newTestServer(t)
	ts := httptest.NewServer(e)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/changes"
	conn, _, err := gorillawebsocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial change feed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for srv.Hub().ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	conn.Close()

	// The read drain notices the close; broadcasts to the dead peer must not
	// leave it registered.
	deadline = time.Now().Add(2 * time.Second)
	for srv.Hub().ClientCount() != 0 {
		srv.Hub().Broadcast(Change{Action: "updated", AppointmentID: uuid.New()})
		if time.Now().After(deadline) {
			t.Fatal("dead connection never dropped")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
