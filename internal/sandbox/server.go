package sandbox

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/console/internal/clinicapi"
	"github.com/clinicdesk/console/internal/session"
	"github.com/clinicdesk/console/pkg/pagination"
)

// Server serves the clinic REST contract over an in-memory store.
type Server struct {
	store  *Store
	hub    *Hub
	logger zerolog.Logger
	secret []byte
}

// NewServer wires the handlers over the given store. secret signs the dev
// access tokens issued by POST /auth/token.
func NewServer(store *Store, logger zerolog.Logger, secret []byte) *Server {
	return &Server{
		store:  store,
		hub:    NewHub(logger),
		logger: logger.With().Str("component", "sandbox").Logger(),
		secret: secret,
	}
}

// Hub exposes the change broadcaster so tests can observe fan-out.
func (s *Server) Hub() *Hub { return s.hub }

// Build assembles the echo instance with the sandbox middleware stack.
func (s *Server) Build() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(recovery(s.logger))
	e.Use(requestID())
	e.Use(requestLogger(s.logger))

	e.GET("/health", s.health)
	e.POST("/auth/token", s.issueToken)

	e.GET("/patients", s.listPatients)
	e.GET("/staff", s.listStaff)

	e.GET("/appointments", s.listAppointments)
	e.POST("/appointments", s.createAppointment)
	e.PATCH("/appointments/:id", s.updateAppointment)
	e.DELETE("/appointments/:id", s.deleteAppointment)

	e.GET("/ws/changes", s.hub.Handler)

	return e
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"listeners": s.hub.ClientCount(),
	})
}

// issueToken mints an HS256 access token for local development: the console
// logs in with a name and a role and gets back a token whose role claim
// drives its capability set.
func (s *Server) issueToken(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
		Role string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	claims := session.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(12 * time.Hour)),
		},
		Name: req.Name,
		Role: req.Role,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "signing failed")
	}
	return c.JSON(http.StatusOK, map[string]string{"token": token})
}

func (s *Server) listPatients(c echo.Context) error {
	params := pagination.FromContext(c)
	patients, totalPages := s.store.ListPatients(params)
	if patients == nil {
		patients = []clinicapi.Patient{}
	}
	return c.JSON(http.StatusOK, clinicapi.PatientPage{
		Patients:   patients,
		Pagination: clinicapi.Pagination{TotalPages: totalPages},
	})
}

func (s *Server) listStaff(c echo.Context) error {
	params := pagination.FromContext(c)
	staff := s.store.ListStaff(c.QueryParam("role"), c.QueryParam("status"), params.Limit)
	if staff == nil {
		staff = []clinicapi.Staff{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"staff": staff})
}

func (s *Server) listAppointments(c echo.Context) error {
	start, err := time.Parse(time.RFC3339, c.QueryParam("start"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "start must be RFC3339")
	}
	end, err := time.Parse(time.RFC3339, c.QueryParam("end"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "end must be RFC3339")
	}
	events := s.store.ListAppointments(start, end, c.QueryParam("doctorId"))
	if events == nil {
		events = []clinicapi.Appointment{}
	}
	return c.JSON(http.StatusOK, events)
}

func (s *Server) createAppointment(c echo.Context) error {
	var draft clinicapi.AppointmentDraft
	if err := c.Bind(&draft); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if draft.Start.IsZero() || draft.End.IsZero() || !draft.Start.Before(draft.End) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "start must be before end")
	}
	if draft.PatientID == uuid.Nil || draft.DoctorID == uuid.Nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "patient_id and doctor_id are required")
	}

	ev := s.store.CreateAppointment(draft)
	s.hub.Broadcast(Change{Action: "created", AppointmentID: ev.ID})
	return c.JSON(http.StatusCreated, ev)
}

func (s *Server) updateAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	var patch clinicapi.AppointmentPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	ev, err := s.store.UpdateAppointment(id, patch)
	if errors.Is(err, ErrNoSuchAppointment) {
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	if err != nil {
		return err
	}
	s.hub.Broadcast(Change{Action: "updated", AppointmentID: ev.ID})
	return c.JSON(http.StatusOK, ev)
}

func (s *Server) deleteAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	if err := s.store.DeleteAppointment(id); err != nil {
		if errors.Is(err, ErrNoSuchAppointment) {
			return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
		}
		return err
	}
	s.hub.Broadcast(Change{Action: "deleted", AppointmentID: id})
	return c.NoContent(http.StatusNoContent)
}
