package clinicapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/console/internal/session"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewClient(srv.URL, 5*time.Second, zerolog.Nop()), srv
}

func TestListPatientsSendsRawQueryVerbatim(t *testing.T) {
	var gotQuery string
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(PatientPage{
			Patients:   []Patient{{ID: uuid.New(), LastName: "Kaya"}},
			Pagination: Pagination{TotalPages: 4},
		})
	})
	defer srv.Close()

	page, err := client.ListPatients(context.Background(), "limit=10&page=2&search=kaya")
	if err != nil {
		t.Fatalf("ListPatients: %v", err)
	}
	if gotQuery != "limit=10&page=2&search=kaya" {
		t.Fatalf("query on the wire = %q", gotQuery)
	}
	if page.Pagination.TotalPages != 4 || len(page.Patients) != 1 {
		t.Fatalf("page = %+v", page)
	}
}

func TestBearerTokenFromSession(t *testing.T) {
	var gotAuth string
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(PatientPage{})
	})
	defer srv.Close()

	ctx := session.WithSession(context.Background(), session.Session{Token: "tok-123"})
	if _, err := client.ListPatients(ctx, "page=1"); err != nil {
		t.Fatalf("ListPatients: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
}

func TestListAppointmentsWindowParams(t *testing.T) {
	var got map[string]string
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		got = map[string]string{
			"start":    r.URL.Query().Get("start"),
			"end":      r.URL.Query().Get("end"),
			"doctorId": r.URL.Query().Get("doctorId"),
		}
		json.NewEncoder(w).Encode([]Appointment{})
	})
	defer srv.Close()

	ist := time.FixedZone("IST", 3*3600)
	start := time.Date(2026, 3, 2, 12, 0, 0, 0, ist)
	end := start.AddDate(0, 0, 7)

	if _, err := client.ListAppointments(context.Background(), start, end, "all"); err != nil {
		t.Fatalf("ListAppointments: %v", err)
	}
	if got["start"] != "2026-03-02T09:00:00Z" {
		t.Fatalf("start = %q, want UTC normalized", got["start"])
	}
	if got["doctorId"] != "" {
		t.Fatalf(`doctorId = %q for the "all" scope, want omitted`, got["doctorId"])
	}

	docID := uuid.New().String()
	if _, err := client.ListAppointments(context.Background(), start, end, docID); err != nil {
		t.Fatalf("ListAppointments: %v", err)
	}
	if got["doctorId"] != docID {
		t.Fatalf("doctorId = %q, want %q", got["doctorId"], docID)
	}
}

func TestNotFoundBecomesSentinel(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	defer srv.Close()

	err := client.DeleteAppointment(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if !IsNotFound(err) {
		t.Fatal("IsNotFound(err) = false")
	}
}

func TestRemoteErrorCarriesStatusAndBody(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
	})
	defer srv.Close()

	_, err := client.ListPatients(context.Background(), "page=1")
	var rerr *RemoteError
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %T(%v), want *RemoteError", err, err)
	}
	if rerr.Status != http.StatusServiceUnavailable || rerr.Body != "database unavailable" {
		t.Fatalf("RemoteError = %+v", rerr)
	}
}

func TestTransportErrorKeepsCause(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(PatientPage{})
	})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ListPatients(ctx, "page=1")
	var rerr *RemoteError
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %T(%v), want *RemoteError", err, err)
	}
	if rerr.Status != 0 {
		t.Fatalf("Status = %d, want 0 for a transport failure", rerr.Status)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, cancellation not visible through the wrapper", err)
	}
}

func TestCreateAppointmentRoundTrip(t *testing.T) {
	id := uuid.New()
	var gotDraft AppointmentDraft
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/appointments" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotDraft)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Appointment{ID: id, Title: gotDraft.Title})
	})
	defer srv.Close()

	draft := AppointmentDraft{Title: "Vaccination", PatientID: uuid.New(), DoctorID: uuid.New()}
	created, err := client.CreateAppointment(context.Background(), draft)
	if err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}
	if created.ID != id || gotDraft.Title != "Vaccination" {
		t.Fatalf("created = %+v, sent = %+v", created, gotDraft)
	}
}

func TestUpdateAppointmentOmitsNilFields(t *testing.T) {
	var body map[string]interface{}
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(Appointment{})
	})
	defer srv.Close()

	title := "Renamed"
	if _, err := client.UpdateAppointment(context.Background(), uuid.New(), AppointmentPatch{Title: &title}); err != nil {
		t.Fatalf("UpdateAppointment: %v", err)
	}
	if len(body) != 1 {
		t.Fatalf("patch body carried %d fields: %v", len(body), body)
	}
	if body["title"] != "Renamed" {
		t.Fatalf("body = %v", body)
	}
}

func TestListDoctorsUnwrapsEnvelope(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("role") != "doctor" || r.URL.Query().Get("status") != "active" {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"staff": []Staff{{ID: uuid.New(), Name: "Dr. Kaya", Role: "doctor"}},
		})
	})
	defer srv.Close()

	doctors, err := client.ListDoctors(context.Background(), 100)
	if err != nil {
		t.Fatalf("ListDoctors: %v", err)
	}
	if len(doctors) != 1 || doctors[0].Name != "Dr. Kaya" {
		t.Fatalf("doctors = %+v", doctors)
	}
}
