package appointment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	redisclient "github.com/hackgods/hospital-booking/internal/redis"
)

// Notifier shows the transient user-facing outcome of an operation.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

type discardNotifier struct{}

func (discardNotifier) Success(string) {}
func (discardNotifier) Error(string)   {}

// Service is the only writer of the store. Every operation holds mu for its
// whole duration, so no caller ever observes a half-applied change.
type Service struct {
	mu       sync.Mutex
	store    *Store
	locker   redisclient.Locker
	events   EventRepository
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(store *Store, locker redisclient.Locker, events EventRepository, notifier Notifier, logger zerolog.Logger) *Service {
	if locker == nil {
		locker = redisclient.NewLocalSlotLocker(5 * time.Second)
	}
	if events == nil {
		events = NewLogEventRepository(logger)
	}
	if notifier == nil {
		notifier = discardNotifier{}
	}
	return &Service{
		store:    store,
		locker:   locker,
		events:   events,
		notifier: notifier,
		logger:   logger.With().Str("component", "appointment").Logger(),
		now:      time.Now,
	}
}

func (s *Service) fail(err error) error {
	s.notifier.Error(err.Error())
	return err
}

// AddHospital registers a hospital under a fresh HOSP id.
func (s *Service) AddHospital(ctx context.Context, h Hospital) (*Hospital, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h.ID = s.store.NextID(PrefixHospital)
	s.store.data.Hospitals = append(s.store.data.Hospitals, h)
	s.store.Save(ctx)

	s.notifier.Success(fmt.Sprintf("Hospital %q registered successfully!", h.Name))
	s.logEvent(ctx, h.ID, EventHospitalAdded, map[string]any{"name": h.Name, "location": h.Location})
	return &h, nil
}

// AddDepartment adds a department; names are unique per hospital ignoring case.
func (s *Service) AddDepartment(ctx context.Context, hospitalID, name string) (*Department, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if _, ok := s.store.hospital(hospitalID); !ok {
		return nil, s.fail(fmt.Errorf("%w: %s", ErrHospitalNotFound, hospitalID))
	}
	for _, d := range s.store.data.Departments {
		if d.HospitalID == hospitalID && strings.EqualFold(d.Name, name) {
			return nil, s.fail(fmt.Errorf("%w: %q", ErrDuplicateDepartment, name))
		}
	}

	dept := Department{
		ID:         s.store.NextID(PrefixDepartment),
		HospitalID: hospitalID,
		Name:       name,
	}
	s.store.data.Departments = append(s.store.data.Departments, dept)
	s.store.Save(ctx)

	s.notifier.Success(fmt.Sprintf("Department %q added successfully.", name))
	s.logEvent(ctx, dept.ID, EventDepartmentAdded, map[string]any{"hospital_id": hospitalID, "name": name})
	return &dept, nil
}

// AddDoctor registers a doctor with no hospital associations.
func (s *Service) AddDoctor(ctx context.Context, d Doctor) (*Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d.ID = s.store.NextID(PrefixDoctor)
	d.Specializations = mergeSpecializations(nil, d.Specializations)
	d.Hospitals = []Association{}
	s.store.data.Doctors = append(s.store.data.Doctors, d)
	s.store.Save(ctx)

	s.notifier.Success(fmt.Sprintf("Doctor %q registered successfully!", d.Name))
	s.logEvent(ctx, d.ID, EventDoctorAdded, map[string]any{"name": d.Name, "specializations": d.Specializations})
	out := cloneDoctor(d)
	return &out, nil
}

// AddPatient registers a patient under a fresh PAT id.
func (s *Service) AddPatient(ctx context.Context, p Patient) (*Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.store.NextID(PrefixPatient)
	s.store.data.Patients = append(s.store.data.Patients, p)
	s.store.Save(ctx)

	s.notifier.Success(fmt.Sprintf("Patient %q registered successfully!", p.Name))
	s.logEvent(ctx, p.ID, EventPatientAdded, map[string]any{"name": p.Name})
	return &p, nil
}

func (s *Service) Hospitals() []Hospital {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Snapshot().Hospitals
}

func (s *Service) Hospital(id string) (*Hospital, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.store.hospital(id)
	if !ok {
		return nil, ErrHospitalNotFound
	}
	return &h, nil
}

// Departments lists departments, optionally only those of one hospital.
func (s *Service) Departments(hospitalID string) []Department {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []Department{}
	for _, d := range s.store.data.Departments {
		if hospitalID == "" || d.HospitalID == hospitalID {
			out = append(out, d)
		}
	}
	return out
}

func (s *Service) Doctors() []Doctor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Snapshot().Doctors
}

func (s *Service) Doctor(id string) (*Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.store.doctorIndex(id)
	if !ok {
		return nil, ErrDoctorNotFound
	}
	d := cloneDoctor(s.store.data.Doctors[i])
	return &d, nil
}

func (s *Service) Patients() []Patient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Snapshot().Patients
}

func (s *Service) Appointments() []Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Snapshot().Appointments
}

// Snapshot returns a deep copy of all collections.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Snapshot()
}

// ReconcileSlots recomputes every slot's booked flag from the appointment
// table and saves if anything changed. It returns the number of slots fixed.
func (s *Service) ReconcileSlots(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for i, d := range s.store.data.Doctors {
		var updated *Doctor
		for ai, a := range d.Hospitals {
			for si, slot := range a.Availability {
				taken := s.store.slotTaken(d.ID, a.HospitalID, slot.Date, slot.Time)
				if slot.IsBooked == taken {
					continue
				}
				if updated == nil {
					c := cloneDoctor(d)
					updated = &c
				}
				updated.Hospitals[ai].Availability[si].IsBooked = taken
				changed++
			}
		}
		if updated != nil {
			s.store.replaceDoctor(i, *updated)
		}
	}

	if changed > 0 {
		s.store.Save(ctx)
		s.logEvent(ctx, "", EventSlotsReconciled, map[string]any{"changed": changed})
	}
	return changed
}

func (s *Service) logEvent(ctx context.Context, entityID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	ev := EventLog{
		EventType: eventType,
		EntityID:  entityID,
		Payload:   data,
		CreatedAt: s.now(),
	}

	if err := s.events.InsertEvent(ctx, ev); err != nil {
		s.logger.Error().Err(err).
			Str("event_type", eventType).
			Str("entity_id", entityID).
			Msg("failed to insert event log")
	}
}
