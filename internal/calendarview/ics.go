package calendarview

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/clinicdesk/console/internal/clinicapi"
)

// WriteICS renders a fetched calendar window as an iCalendar document, one
// VEVENT per appointment. Cancelled appointments carry STATUS:CANCELLED so
// downstream calendars can grey them out.
func WriteICS(w io.Writer, events []clinicapi.Appointment) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//clinicdesk//console//EN")

	now := time.Now().UTC()
	for _, ev := range events {
		ve := cal.AddEvent(ev.ID.String())
		ve.SetDtStampTime(now)
		ve.SetStartAt(ev.Start.UTC())
		ve.SetEndAt(ev.End.UTC())
		ve.SetSummary(ev.Title)
		if ev.Status == "cancelled" {
			ve.SetStatus(ical.ObjectStatusCancelled)
		}
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return fmt.Errorf("write ics: %w", err)
	}
	return nil
}
