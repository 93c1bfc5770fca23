package mutation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/console/internal/clinicapi"
	"github.com/clinicdesk/console/internal/session"
)

// API is the slice of the clinic client the coordinator mutates through.
type API interface {
	CreateAppointment(ctx context.Context, draft clinicapi.AppointmentDraft) (clinicapi.Appointment, error)
	UpdateAppointment(ctx context.Context, id uuid.UUID, patch clinicapi.AppointmentPatch) (clinicapi.Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error
}

// Hooks are the coordinator's outward effects on the rest of the console.
// All three are optional.
type Hooks struct {
	// ReloadCalendar invalidates the active calendar window and refetches
	// canonical state.
	ReloadCalendar func()
	// InvalidateLists drops cached list pages that may display the mutated
	// entity.
	InvalidateLists func()
	// Notify surfaces a user-visible message (the toast adapter).
	Notify func(msg string)
}

// Coordinator routes appointment mutation intents: authorization gate,
// local validation, optimistic apply, remote call, then confirm or roll
// back. It is the only writer into the cached event state, and it writes by
// invalidate-then-refetch, never by patching cache entries directly.
type Coordinator struct {
	api    API
	arena  *Arena
	hooks  Hooks
	logger zerolog.Logger
}

// NewCoordinator wires a coordinator over the shared arena.
func NewCoordinator(api API, arena *Arena, hooks Hooks, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		api:    api,
		arena:  arena,
		hooks:  hooks,
		logger: logger.With().Str("component", "mutation").Logger(),
	}
}

// Dispatch performs one intent to settlement and returns the settlement
// error, already classified for Classify. The optimistic effect (when the
// intent has one) is applied synchronously before the remote call is
// issued, so the caller's gesture gets immediate visual feedback even
// though Dispatch itself blocks until the remote settles.
func (c *Coordinator) Dispatch(ctx context.Context, intent Intent) error {
	caps := session.FromContext(ctx).Capabilities()

	switch it := intent.(type) {
	case Create:
		return c.create(ctx, caps.CanCreate, it)
	case Reschedule:
		return c.reschedule(ctx, caps.CanReschedule, it)
	case UpdateFields:
		return c.updateFields(ctx, caps.CanReschedule, it)
	case Delete:
		return c.delete(ctx, caps.CanDelete, it)
	default:
		return fmt.Errorf("mutation: unknown intent %T", intent)
	}
}

func (c *Coordinator) create(ctx context.Context, allowed bool, it Create) error {
	if !allowed {
		c.deny("create")
		return ErrNotAllowed
	}
	if err := validateRange(it.Draft.Start, it.Draft.End); err != nil {
		return err
	}
	if it.Draft.PatientID == uuid.Nil {
		return &ValidationError{Field: "patient", Reason: "a patient is required"}
	}
	if it.Draft.DoctorID == uuid.Nil {
		return &ValidationError{Field: "doctor", Reason: "a doctor is required"}
	}

	created, err := c.api.CreateAppointment(ctx, it.Draft)
	if err != nil {
		// Nothing was applied locally, so there is nothing to roll back;
		// the form shows the error.
		c.logger.Error().Err(err).Msg("create failed")
		return err
	}

	c.logger.Info().Str("appointment_id", created.ID.String()).Msg("appointment created")
	c.settled()
	return nil
}

func (c *Coordinator) reschedule(ctx context.Context, allowed bool, it Reschedule) error {
	if !allowed {
		// The drag was already accepted visually; hand the gesture back to
		// the surface's revert primitive before surfacing the denial.
		revert(it.Revert)
		c.deny("reschedule")
		return ErrNotAllowed
	}
	if err := validateRange(it.NewStart, it.NewEnd); err != nil {
		revert(it.Revert)
		return err
	}

	err := c.arena.Apply(it.ID, func(ev *clinicapi.Appointment) {
		ev.Start = it.NewStart
		ev.End = it.NewEnd
	})
	switch {
	case errors.Is(err, ErrMutationInFlight):
		revert(it.Revert)
		return ErrMutationInFlight
	case errors.Is(err, errMissing):
		revert(it.Revert)
		return c.stale(it.ID)
	case err != nil:
		revert(it.Revert)
		return err
	}

	_, err = c.api.UpdateAppointment(ctx, it.ID, clinicapi.AppointmentPatch{
		Start: &it.NewStart,
		End:   &it.NewEnd,
	})
	return c.settleStaged(it.ID, err, it.Revert, "reschedule")
}

func (c *Coordinator) updateFields(ctx context.Context, allowed bool, it UpdateFields) error {
	if !allowed {
		c.deny("edit")
		return ErrNotAllowed
	}
	if err := c.validatePatch(it.ID, it.Patch); err != nil {
		return err
	}

	err := c.arena.Apply(it.ID, func(ev *clinicapi.Appointment) {
		applyPatch(ev, it.Patch)
	})
	switch {
	case errors.Is(err, ErrMutationInFlight):
		return ErrMutationInFlight
	case errors.Is(err, errMissing):
		return c.stale(it.ID)
	case err != nil:
		return err
	}

	_, err = c.api.UpdateAppointment(ctx, it.ID, it.Patch)
	return c.settleStaged(it.ID, err, nil, "update")
}

func (c *Coordinator) delete(ctx context.Context, allowed bool, it Delete) error {
	if !allowed {
		c.deny("delete")
		return ErrNotAllowed
	}

	err := c.arena.Remove(it.ID)
	switch {
	case errors.Is(err, ErrMutationInFlight):
		return ErrMutationInFlight
	case errors.Is(err, errMissing):
		return c.stale(it.ID)
	case err != nil:
		return err
	}

	err = c.api.DeleteAppointment(ctx, it.ID)
	if clinicapi.IsNotFound(err) {
		// Already gone server-side: the optimistic removal stands, but the
		// operator is told the entity had vanished under them.
		_ = c.arena.Commit(it.ID)
		return c.stale(it.ID)
	}
	return c.settleStaged(it.ID, err, nil, "delete")
}

// settleStaged finishes a mutation that staged an optimistic change:
// commit-and-reconcile on success, exact-inverse rollback on failure,
// discard-and-invalidate when the target no longer exists.
func (c *Coordinator) settleStaged(id uuid.UUID, err error, revertFn func(), action string) error {
	if err == nil {
		_ = c.arena.Commit(id)
		c.logger.Info().Str("appointment_id", id.String()).Str("action", action).Msg("mutation confirmed")
		c.settled()
		return nil
	}

	if clinicapi.IsNotFound(err) {
		revert(revertFn)
		return c.stale(id)
	}

	_ = c.arena.Rollback(id)
	revert(revertFn)
	c.logger.Error().Err(err).Str("appointment_id", id.String()).Str("action", action).Msg("mutation failed, rolled back")
	c.say(fmt.Sprintf("Could not %s the appointment. Your change was undone; please try again.", action))
	return err
}

// stale handles a target that no longer exists server-side: the id's cache
// entries are invalidated rather than reapplying an optimistic effect to a
// dead entity.
func (c *Coordinator) stale(id uuid.UUID) error {
	c.arena.Discard(id)
	c.settled()
	c.say("This appointment no longer exists.")
	c.logger.Warn().Str("appointment_id", id.String()).Msg("mutation target vanished")
	return ErrStale
}

// settled runs the invalidate-then-refetch hooks after any settlement that
// changed (or revealed changed) server state.
func (c *Coordinator) settled() {
	if c.hooks.ReloadCalendar != nil {
		c.hooks.ReloadCalendar()
	}
	if c.hooks.InvalidateLists != nil {
		c.hooks.InvalidateLists()
	}
}

func (c *Coordinator) deny(action string) {
	c.say("You are not allowed to " + action + " appointments.")
	c.logger.Warn().Str("action", action).Msg("mutation denied")
}

func (c *Coordinator) say(msg string) {
	if c.hooks.Notify != nil {
		c.hooks.Notify(msg)
	}
}

// validatePatch checks a field patch against the event's current values, so
// a patch moving only one end of the range still cannot invert it.
func (c *Coordinator) validatePatch(id uuid.UUID, patch clinicapi.AppointmentPatch) error {
	if patch.Start == nil && patch.End == nil {
		return nil
	}
	current, ok := c.arena.Get(id)
	start, end := current.Start, current.End
	if patch.Start != nil {
		start = *patch.Start
	}
	if patch.End != nil {
		end = *patch.End
	}
	if !ok && (patch.Start == nil || patch.End == nil) {
		// Can't cross-check against an event we don't hold; the full check
		// happens server-side.
		return nil
	}
	return validateRange(start, end)
}

// validateRange enforces start < end locally, before any network traffic.
func validateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return &ValidationError{Field: "time", Reason: "start and end are required"}
	}
	if !start.Before(end) {
		return &ValidationError{Field: "time", Reason: "start must be before end"}
	}
	return nil
}

func revert(fn func()) {
	if fn != nil {
		fn()
	}
}

// applyPatch mirrors the server's PATCH semantics onto the local copy so the
// optimistic view matches what a successful settlement will confirm.
func applyPatch(ev *clinicapi.Appointment, patch clinicapi.AppointmentPatch) {
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
}
