package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-booking/internal/app"
	"github.com/hackgods/hospital-booking/internal/appointment"
	"github.com/hackgods/hospital-booking/internal/config"
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

var qualifications = []string{"MBBS", "MBBS, MD", "MBBS, MS", "MD, DM", "MBBS, DNB"}

type seedCounts struct {
	Hospitals int
	Doctors   int
	Patients  int
	Days      int
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := app.BootstrapLogger("seed")
		bootLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := app.NewLogger(cfg, "seed")
	logger.Info().Str("store_backend", cfg.StoreBackend).Msg("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	rt, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("runtime setup failed")
	}
	defer rt.Close()

	store := appointment.NewStore(rt.Backend, logger)
	store.Load(ctx)
	svc := appointment.NewService(store, rt.Locker, rt.Events, nil, zerolog.Nop())

	gofakeit.Seed(time.Now().UnixNano())

	counts := seedCounts{
		Hospitals: getInt("SEED_HOSPITALS", 5),
		Doctors:   getInt("SEED_DOCTORS", 40),
		Patients:  getInt("SEED_PATIENTS", 200),
		Days:      getInt("SEED_DAYS", 14),
	}

	hospitals, err := seedHospitals(ctx, svc, counts.Hospitals)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed hospitals")
	}
	logger.Info().Int("count", len(hospitals)).Msg("hospitals seeded")

	slots, err := seedDoctors(ctx, svc, hospitals, counts)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed doctors")
	}
	logger.Info().Int("count", counts.Doctors).Int("slots", slots).Msg("doctors seeded")

	if err := seedPatients(ctx, svc, counts.Patients); err != nil {
		logger.Fatal().Err(err).Msg("seed patients")
	}
	logger.Info().Int("count", counts.Patients).Msg("patients seeded")

	logger.Info().Msg("seed complete")
}

// seedHospitals creates hospitals, each with two to four distinct departments.
func seedHospitals(ctx context.Context, svc *appointment.Service, count int) ([]appointment.Hospital, error) {
	out := make([]appointment.Hospital, 0, count)
	for i := 0; i < count; i++ {
		h, err := svc.AddHospital(ctx, appointment.Hospital{
			Name:     gofakeit.LastName() + " " + gofakeit.RandomString([]string{"General Hospital", "Medical Center", "Clinic", "Memorial Hospital"}),
			Location: gofakeit.City(),
		})
		if err != nil {
			return nil, err
		}

		depts := append([]string(nil), specialties...)
		gofakeit.ShuffleStrings(depts)
		for _, name := range depts[:gofakeit.Number(2, 4)] {
			if _, err := svc.AddDepartment(ctx, h.ID, name); err != nil {
				return nil, err
			}
		}
		out = append(out, *h)
	}
	return out, nil
}

// seedDoctors creates doctors and associates each with up to two hospitals
// that have a matching department. A doctor's slots are drawn from one pool
// and dealt out across hospitals, so associations never collide.
func seedDoctors(ctx context.Context, svc *appointment.Service, hospitals []appointment.Hospital, counts seedCounts) (int, error) {
	total := 0
	for i := 0; i < counts.Doctors; i++ {
		spec := gofakeit.RandomString(specialties)
		d, err := svc.AddDoctor(ctx, appointment.Doctor{
			Name:            "Dr. " + gofakeit.Name(),
			Qualifications:  gofakeit.RandomString(qualifications),
			Specializations: []string{spec},
			Experience:      gofakeit.Number(1, 35),
		})
		if err != nil {
			return total, err
		}

		var matches []appointment.Hospital
		for _, h := range hospitals {
			for _, dept := range svc.Departments(h.ID) {
				if d.HasSpecialization(dept.Name) {
					matches = append(matches, h)
					break
				}
			}
		}
		if len(matches) > 2 {
			matches = matches[:2]
		}
		if len(matches) == 0 {
			continue
		}

		pool := slotPool(counts.Days, 6)
		for j, h := range matches {
			var mine []appointment.Slot
			for k := j; k < len(pool); k += len(matches) {
				mine = append(mine, pool[k])
			}
			fee := float64(gofakeit.Number(20, 150))
			if _, err := svc.UpdateDoctorAssociation(ctx, appointment.AssociationRequest{
				DoctorID:        d.ID,
				HospitalID:      h.ID,
				ConsultationFee: fee,
				Slots:           mine,
			}); err != nil {
				return total, fmt.Errorf("associate %s with %s: %w", d.ID, h.ID, err)
			}
			total += len(mine)
		}
	}
	return total, nil
}

// slotPool returns up to perDay distinct half-hour slots on each of the next days.
func slotPool(days, perDay int) []appointment.Slot {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	var out []appointment.Slot
	for day := 1; day <= days; day++ {
		date := today.AddDate(0, 0, day).Format(appointment.DateLayout)
		seen := map[string]bool{}
		for k := 0; k < perDay; k++ {
			clock := fmt.Sprintf("%02d:%02d", gofakeit.Number(9, 16), 30*gofakeit.Number(0, 1))
			if seen[clock] {
				continue
			}
			seen[clock] = true
			out = append(out, appointment.Slot{Date: date, Time: clock})
		}
	}
	return out
}

func seedPatients(ctx context.Context, svc *appointment.Service, count int) error {
	for i := 0; i < count; i++ {
		dob := gofakeit.DateRange(
			time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC),
		)
		if _, err := svc.AddPatient(ctx, appointment.Patient{
			Name:     gofakeit.Name(),
			Gender:   gofakeit.Gender(),
			DOB:      dob.Format(appointment.DateLayout),
			UniqueID: gofakeit.UUID(),
		}); err != nil {
			return err
		}
	}
	return nil
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
