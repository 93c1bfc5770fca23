// Package sandbox is an in-memory clinic API for local development and
// integration tests. It serves the exact REST contract the console consumes,
// seeds itself with reproducible synthetic data, and broadcasts every
// appointment change over a websocket so a second console can invalidate
// its caches.
package sandbox

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/console/internal/clinicapi"
	"github.com/clinicdesk/console/pkg/pagination"
)

// ErrNoSuchAppointment is returned for operations on an unknown id.
var ErrNoSuchAppointment = errors.New("sandbox: no such appointment")

// Store holds the sandbox's entire dataset. Thread-safe; the echo handlers
// and the seeding command share it.
type Store struct {
	mu           sync.RWMutex
	patients     []clinicapi.Patient
	staff        []clinicapi.Staff
	appointments map[uuid.UUID]clinicapi.Appointment
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{appointments: make(map[uuid.UUID]clinicapi.Appointment)}
}

// ListPatients applies search, sort, and paging the way the production API
// does: filter first, then sort, then slice, with the page count computed
// over the filtered set.
func (s *Store) ListPatients(p pagination.Params) ([]clinicapi.Patient, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]clinicapi.Patient, 0, len(s.patients))
	needle := strings.ToLower(strings.TrimSpace(p.Search))
	for _, pt := range s.patients {
		if needle == "" || patientMatches(pt, needle) {
			matched = append(matched, pt)
		}
	}

	sortPatients(matched, p.SortBy, p.SortDir)

	totalPages := pagination.TotalPages(len(matched), p.Limit)
	from, to := p.Slice(len(matched))
	page := make([]clinicapi.Patient, to-from)
	copy(page, matched[from:to])
	return page, totalPages
}

func patientMatches(p clinicapi.Patient, needle string) bool {
	return strings.Contains(strings.ToLower(p.FirstName), needle) ||
		strings.Contains(strings.ToLower(p.LastName), needle) ||
		strings.Contains(strings.ToLower(p.Email), needle)
}

func sortPatients(list []clinicapi.Patient, by, dir string) {
	if by == "" {
		// Stable default ordering so identical queries return identical pages.
		by = "last_name"
		dir = "asc"
	}
	less := func(a, b clinicapi.Patient) bool {
		switch by {
		case "first_name":
			return a.FirstName < b.FirstName
		case "email":
			return a.Email < b.Email
		case "created_at":
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return a.LastName < b.LastName
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		if dir == "desc" {
			return less(list[j], list[i])
		}
		return less(list[i], list[j])
	})
}

// ListAppointments returns the events overlapping [start, end), optionally
// scoped to one doctor, ordered by start time.
func (s *Store) ListAppointments(start, end time.Time, doctorID string) []clinicapi.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []clinicapi.Appointment
	for _, ev := range s.appointments {
		if !ev.Start.Before(end) || !ev.End.After(start) {
			continue
		}
		if doctorID != "" && doctorID != "all" && ev.DoctorID.String() != doctorID {
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// GetAppointment returns one appointment.
func (s *Store) GetAppointment(id uuid.UUID) (clinicapi.Appointment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.appointments[id]
	return ev, ok
}

// CreateAppointment assigns an id and stores the draft.
func (s *Store) CreateAppointment(draft clinicapi.AppointmentDraft) clinicapi.Appointment {
	ev := clinicapi.Appointment{
		ID:        uuid.New(),
		Title:     draft.Title,
		Start:     draft.Start,
		End:       draft.End,
		DoctorID:  draft.DoctorID,
		PatientID: draft.PatientID,
		Status:    draft.Status,
	}
	if ev.Status == "" {
		ev.Status = "booked"
	}
	s.mu.Lock()
	s.appointments[ev.ID] = ev
	s.mu.Unlock()
	return ev
}

// UpdateAppointment applies a partial update.
func (s *Store) UpdateAppointment(id uuid.UUID, patch clinicapi.AppointmentPatch) (clinicapi.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.appointments[id]
	if !ok {
		return clinicapi.Appointment{}, ErrNoSuchAppointment
	}
	if patch.Title != nil {
		ev.Title = *patch.Title
	}
	if patch.Start != nil {
		ev.Start = *patch.Start
	}
	if patch.End != nil {
		ev.End = *patch.End
	}
	if patch.DoctorID != nil {
		ev.DoctorID = *patch.DoctorID
	}
	if patch.Status != nil {
		ev.Status = *patch.Status
	}
	s.appointments[id] = ev
	return ev, nil
}

// DeleteAppointment removes an appointment.
func (s *Store) DeleteAppointment(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[id]; !ok {
		return ErrNoSuchAppointment
	}
	delete(s.appointments, id)
	return nil
}

// ListStaff filters the roster by role and status.
func (s *Store) ListStaff(role, status string, limit int) []clinicapi.Staff {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []clinicapi.Staff
	for _, m := range s.staff {
		if role != "" && m.Role != role {
			continue
		}
		if status != "" && m.Status != status {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// AddPatient, AddStaff, and PutAppointment exist for seeding and tests.

func (s *Store) AddPatient(p clinicapi.Patient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients = append(s.patients, p)
}

func (s *Store) AddStaff(m clinicapi.Staff) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staff = append(s.staff, m)
}

func (s *Store) PutAppointment(ev clinicapi.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appointments[ev.ID] = ev
}
