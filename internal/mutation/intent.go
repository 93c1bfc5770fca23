package mutation

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/console/internal/clinicapi"
)

// Intent is one appointment mutation the operator asked for. Each variant
// carries enough to perform the remote call, compute the optimistic local
// effect, and derive its exact inverse for rollback.
type Intent interface{ intent() }

// Create submits a new appointment. No optimistic event is rendered: the
// server assigns the id, so the event appears when the active window is
// refetched after success.
type Create struct {
	Draft clinicapi.AppointmentDraft
}

// UpdateFields patches an existing appointment from the editor form.
type UpdateFields struct {
	ID    uuid.UUID
	Patch clinicapi.AppointmentPatch
}

// Reschedule moves an appointment by drag. Revert is the render surface's
// own revert primitive for the drag gesture; the coordinator calls it when
// the gesture is denied or the remote call fails, so the visual drop is
// undone along with the arena overlay.
type Reschedule struct {
	ID       uuid.UUID
	NewStart time.Time
	NewEnd   time.Time
	Revert   func()
}

// Delete removes an appointment.
type Delete struct {
	ID uuid.UUID
}

func (Create) intent()       {}
func (UpdateFields) intent() {}
func (Reschedule) intent()   {}
func (Delete) intent()       {}
