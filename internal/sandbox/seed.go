package sandbox

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/console/internal/clinicapi"
)

// SeedConfig controls the volume and shape of generated synthetic data. The
// same seed always produces the same dataset, so integration tests can
// assert on exact page contents.
type SeedConfig struct {
	PatientCount     int
	DoctorCount      int
	AppointmentCount int
	// WindowDays is the number of days around today that appointments are
	// scattered over.
	WindowDays int
	Seed       int64
}

// DefaultSeedConfig returns a dataset large enough to exercise paging.
func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		PatientCount:     64,
		DoctorCount:      6,
		AppointmentCount: 120,
		WindowDays:       14,
		Seed:             1,
	}
}

var (
	firstNames = []string{
		"Ahmet", "Ayse", "Mehmet", "Elif", "Mustafa", "Zeynep", "Emre",
		"Fatma", "Can", "Selin", "Deniz", "Merve", "Burak", "Esra",
		"Omer", "Hande", "Kerem", "Pelin", "Yusuf", "Ceren",
	}
	lastNames = []string{
		"Yilmaz", "Kaya", "Demir", "Celik", "Sahin", "Ozturk", "Aydin",
		"Arslan", "Dogan", "Kilic", "Aslan", "Cetin", "Kara", "Koc",
		"Kurt", "Ozdemir", "Polat", "Erdogan", "Tas", "Yildiz",
	}
	visitTitles = []string{
		"Annual checkup", "Follow-up visit", "Blood panel review",
		"Vaccination", "Consultation", "Physical therapy",
		"Dermatology exam", "Prenatal visit", "Dental cleaning",
	}
	appointmentStatuses = []string{"booked", "booked", "booked", "confirmed", "cancelled"}
)

// Seed fills the store with a reproducible synthetic clinic.
func Seed(store *Store, cfg SeedConfig) {
	rng := rand.New(rand.NewSource(cfg.Seed))

	doctors := make([]clinicapi.Staff, 0, cfg.DoctorCount)
	for i := 0; i < cfg.DoctorCount; i++ {
		d := clinicapi.Staff{
			ID:     seededUUID(rng),
			Name:   "Dr. " + pick(rng, firstNames) + " " + pick(rng, lastNames),
			Role:   "doctor",
			Status: "active",
		}
		doctors = append(doctors, d)
		store.AddStaff(d)
	}
	// A couple of reception staff round out the roster.
	store.AddStaff(clinicapi.Staff{ID: seededUUID(rng), Name: pick(rng, firstNames) + " " + pick(rng, lastNames), Role: "reception", Status: "active"})
	store.AddStaff(clinicapi.Staff{ID: seededUUID(rng), Name: pick(rng, firstNames) + " " + pick(rng, lastNames), Role: "reception", Status: "active"})

	patients := make([]clinicapi.Patient, 0, cfg.PatientCount)
	for i := 0; i < cfg.PatientCount; i++ {
		first := pick(rng, firstNames)
		last := pick(rng, lastNames)
		p := clinicapi.Patient{
			ID:        seededUUID(rng),
			FirstName: first,
			LastName:  last,
			Email:     fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(first), strings.ToLower(last), i),
			Phone:     fmt.Sprintf("+90 5%02d %03d %02d %02d", rng.Intn(100), rng.Intn(1000), rng.Intn(100), rng.Intn(100)),
			CreatedAt: time.Now().AddDate(0, 0, -rng.Intn(365)).UTC().Truncate(time.Second),
		}
		patients = append(patients, p)
		store.AddPatient(p)
	}

	if len(doctors) == 0 || len(patients) == 0 {
		return
	}

	// Appointments land on half-hour boundaries inside business hours,
	// scattered across the configured window around today.
	today := time.Now().UTC().Truncate(24 * time.Hour)
	for i := 0; i < cfg.AppointmentCount; i++ {
		day := today.AddDate(0, 0, rng.Intn(2*cfg.WindowDays+1)-cfg.WindowDays)
		start := day.Add(time.Duration(9*60+30*rng.Intn(16)) * time.Minute)
		duration := time.Duration(30*(1+rng.Intn(3))) * time.Minute
		store.PutAppointment(clinicapi.Appointment{
			ID:        seededUUID(rng),
			Title:     pick(rng, visitTitles),
			Start:     start,
			End:       start.Add(duration),
			DoctorID:  doctors[rng.Intn(len(doctors))].ID,
			PatientID: patients[rng.Intn(len(patients))].ID,
			Status:    pick(rng, appointmentStatuses),
		})
	}
}

func pick(rng *rand.Rand, pool []string) string {
	return pool[rng.Intn(len(pool))]
}

// seededUUID derives ids from the rng so the dataset is stable per seed.
func seededUUID(rng *rand.Rand) uuid.UUID {
	var b [16]byte
	rng.Read(b[:])
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	id, _ := uuid.FromBytes(b[:])
	return id
}
