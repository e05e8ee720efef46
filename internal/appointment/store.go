package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-booking/internal/storage"
)

// SchemaVersion is written to the meta key on every save. State without a
// meta key predates versioning and has the same layout as version 1.
const SchemaVersion = 1

// Snapshot is the full set of collections.
type Snapshot struct {
	Hospitals    []Hospital
	Departments  []Department
	Doctors      []Doctor
	Patients     []Patient
	Appointments []Appointment
}

type storeMeta struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"savedAt"`
}

// Store owns the in-memory collections and mirrors them to a backend.
// It is not safe for concurrent use; Service serializes access.
type Store struct {
	backend storage.Backend
	logger  zerolog.Logger
	data    Snapshot
	ids     idCounters
}

func NewStore(backend storage.Backend, logger zerolog.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger.With().Str("component", "store").Logger(),
		ids:     newIDCounters(),
	}
}

// NextID returns a fresh identifier for prefix.
func (s *Store) NextID(prefix string) string {
	return s.ids.next(prefix)
}

// Load replaces the in-memory state with the persisted one. Absent keys
// yield empty collections; any unreadable or corrupt key degrades every
// collection to empty. Failures are logged, never returned.
func (s *Store) Load(ctx context.Context) {
	data, err := s.read(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load persisted state, starting empty")
		data = Snapshot{}
	}

	s.data = data
	s.ids = newIDCounters()
	for _, h := range data.Hospitals {
		s.ids.observe(PrefixHospital, h.ID)
	}
	for _, d := range data.Departments {
		s.ids.observe(PrefixDepartment, d.ID)
	}
	for _, d := range data.Doctors {
		s.ids.observe(PrefixDoctor, d.ID)
	}
	for _, p := range data.Patients {
		s.ids.observe(PrefixPatient, p.ID)
	}
	for _, a := range data.Appointments {
		s.ids.observe(PrefixAppointment, a.ID)
	}

	s.logger.Debug().
		Int("hospitals", len(data.Hospitals)).
		Int("departments", len(data.Departments)).
		Int("doctors", len(data.Doctors)).
		Int("patients", len(data.Patients)).
		Int("appointments", len(data.Appointments)).
		Msg("state loaded")
}

func (s *Store) read(ctx context.Context) (Snapshot, error) {
	var meta storeMeta
	found, err := s.readKey(ctx, storage.KeyMeta, &meta)
	if err != nil {
		return Snapshot{}, err
	}
	if found && meta.Version > SchemaVersion {
		return Snapshot{}, fmt.Errorf("persisted schema version %d is newer than supported %d", meta.Version, SchemaVersion)
	}

	var data Snapshot
	targets := []struct {
		key string
		dst any
	}{
		{storage.KeyHospitals, &data.Hospitals},
		{storage.KeyDepartments, &data.Departments},
		{storage.KeyDoctors, &data.Doctors},
		{storage.KeyPatients, &data.Patients},
		{storage.KeyAppointments, &data.Appointments},
	}
	for _, t := range targets {
		if _, err := s.readKey(ctx, t.key, t.dst); err != nil {
			return Snapshot{}, err
		}
	}
	return data, nil
}

func (s *Store) readKey(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := s.backend.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Save writes every collection. A failure is logged and swallowed; the
// in-memory state stays authoritative for the rest of the process.
func (s *Store) Save(ctx context.Context) {
	if err := s.write(ctx); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist state")
	}
}

func (s *Store) write(ctx context.Context) error {
	docs := []struct {
		key string
		val any
	}{
		{storage.KeyHospitals, nonNil(s.data.Hospitals)},
		{storage.KeyDepartments, nonNil(s.data.Departments)},
		{storage.KeyDoctors, nonNil(s.data.Doctors)},
		{storage.KeyPatients, nonNil(s.data.Patients)},
		{storage.KeyAppointments, nonNil(s.data.Appointments)},
		{storage.KeyMeta, storeMeta{Version: SchemaVersion, SavedAt: time.Now().UTC()}},
	}
	for _, d := range docs {
		raw, err := json.Marshal(d.val)
		if err != nil {
			return fmt.Errorf("encode %s: %w", d.key, err)
		}
		if err := s.backend.Put(ctx, d.key, raw); err != nil {
			return fmt.Errorf("write %s: %w", d.key, err)
		}
	}
	return nil
}

// Snapshot returns a deep copy of every collection.
func (s *Store) Snapshot() Snapshot {
	out := Snapshot{
		Hospitals:    append(make([]Hospital, 0, len(s.data.Hospitals)), s.data.Hospitals...),
		Departments:  append(make([]Department, 0, len(s.data.Departments)), s.data.Departments...),
		Doctors:      make([]Doctor, len(s.data.Doctors)),
		Patients:     append(make([]Patient, 0, len(s.data.Patients)), s.data.Patients...),
		Appointments: append(make([]Appointment, 0, len(s.data.Appointments)), s.data.Appointments...),
	}
	for i, d := range s.data.Doctors {
		out.Doctors[i] = cloneDoctor(d)
	}
	return out
}

func (s *Store) hospital(id string) (Hospital, bool) {
	for _, h := range s.data.Hospitals {
		if h.ID == id {
			return h, true
		}
	}
	return Hospital{}, false
}

func (s *Store) doctorIndex(id string) (int, bool) {
	for i, d := range s.data.Doctors {
		if d.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (s *Store) patient(id string) (Patient, bool) {
	for _, p := range s.data.Patients {
		if p.ID == id {
			return p, true
		}
	}
	return Patient{}, false
}

// slotTaken scans the appointment table, the source of truth for bookings.
func (s *Store) slotTaken(doctorID, hospitalID, date, clock string) bool {
	for _, a := range s.data.Appointments {
		if a.occupies(doctorID, hospitalID, date, clock) {
			return true
		}
	}
	return false
}

// replaceDoctor swaps in a new doctor value so earlier snapshots stay untouched.
func (s *Store) replaceDoctor(i int, d Doctor) {
	doctors := make([]Doctor, len(s.data.Doctors))
	copy(doctors, s.data.Doctors)
	doctors[i] = d
	s.data.Doctors = doctors
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
