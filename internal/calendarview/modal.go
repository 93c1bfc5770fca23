package calendarview

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/console/internal/authz"
)

// ModalState is the appointment editor's mode. Exactly one variant exists at
// a time; the sealed interface makes an "both payloads at once" state
// unrepresentable.
type ModalState interface{ modalState() }

// Closed is the initial state and the terminal state of every editor cycle.
type Closed struct{}

// Creating is open over a blank-calendar date-range selection. It carries
// only the selection; the form owns everything else.
type Creating struct {
	Start time.Time
	End   time.Time
}

// Editing is open over an existing event. It carries only the id; the editor
// re-derives full detail from the cache.
type Editing struct {
	AppointmentID uuid.UUID
}

func (Closed) modalState()   {}
func (Creating) modalState() {}
func (Editing) modalState()  {}

var (
	// ErrModalOpen rejects an open while another cycle is in progress; the
	// modal must pass through Closed between cycles.
	ErrModalOpen = errors.New("calendarview: modal already open")
	// ErrCreateNotAllowed rejects a create-open for roles without the
	// create capability.
	ErrCreateNotAllowed = errors.New("calendarview: role may not create appointments")
)

// Modal is the editor state machine. Transitions replace the state wholesale.
type Modal struct {
	mu    sync.Mutex
	state ModalState
}

// NewModal starts Closed.
func NewModal() *Modal {
	return &Modal{state: Closed{}}
}

// State returns the current variant.
func (m *Modal) State() ModalState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OpenCreate transitions Closed -> Creating. It is gated on the create
// capability: a selection gesture from a read-only role never opens the form.
func (m *Modal) OpenCreate(caps authz.Capabilities, start, end time.Time) error {
	if !caps.CanCreate {
		return ErrCreateNotAllowed
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, closed := m.state.(Closed); !closed {
		return ErrModalOpen
	}
	m.state = Creating{Start: start, End: end}
	return nil
}

// OpenEdit transitions Closed -> Editing. Opening is always permitted;
// per-field editing rights are enforced when the mutation dispatches.
func (m *Modal) OpenEdit(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, closed := m.state.(Closed); !closed {
		return ErrModalOpen
	}
	m.state = Editing{AppointmentID: id}
	return nil
}

// Close returns to Closed from any state: explicit dismissal, a successful
// submit, or a failure the operator dismissed.
func (m *Modal) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Closed{}
}
