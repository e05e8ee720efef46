package appointment

import (
	"context"
	"errors"
	"fmt"
	"math"

	redisclient "github.com/hackgods/hospital-booking/internal/redis"
)

type BookingRequest struct {
	PatientID       string
	DoctorID        string
	HospitalID      string
	Date            string
	Time            string
	ConsultationFee float64
}

// BookAppointment books a doctor's slot for a patient.
//
// The appointment table decides whether a slot is taken; the slot's IsBooked
// flag is a display cache updated in the same critical section. Concurrent
// attempts on the same slot are rejected by the slot lock before they reach
// the table.
func (s *Service) BookAppointment(ctx context.Context, req BookingRequest) (*Appointment, error) {
	var created *Appointment

	key := redisclient.SlotKey(req.DoctorID, req.HospitalID, req.Date, req.Time)
	err := s.locker.WithSlotLock(ctx, key, func(context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		appt, err := s.book(req)
		if err != nil {
			return err
		}
		// The lock deadline bounds the critical section, not the write of a
		// booking that is already committed in memory.
		s.store.Save(ctx)
		created = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			err = ErrSlotBeingBooked
		}
		return nil, s.fail(err)
	}

	s.notifier.Success("Appointment booked successfully!")
	s.logEvent(ctx, created.ID, EventAppointmentBooked, map[string]any{
		"patient_id":  created.PatientID,
		"doctor_id":   created.DoctorID,
		"hospital_id": created.HospitalID,
		"date":        created.Date,
		"time":        created.Time,
	})

	return created, nil
}

func (s *Service) book(req BookingRequest) (*Appointment, error) {
	if math.IsNaN(req.ConsultationFee) || math.IsInf(req.ConsultationFee, 0) || req.ConsultationFee < 0 {
		return nil, ErrInvalidFee
	}
	if _, ok := s.store.patient(req.PatientID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrPatientNotFound, req.PatientID)
	}
	idx, ok := s.store.doctorIndex(req.DoctorID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDoctorNotFound, req.DoctorID)
	}
	if _, ok := s.store.hospital(req.HospitalID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrHospitalNotFound, req.HospitalID)
	}

	if s.store.slotTaken(req.DoctorID, req.HospitalID, req.Date, req.Time) {
		return nil, fmt.Errorf("%w: %s at %s", ErrSlotAlreadyBooked, req.Date, req.Time)
	}

	doc := s.store.data.Doctors[idx]
	ai, ok := doc.association(req.HospitalID)
	if !ok {
		return nil, fmt.Errorf("%w: not associated with %s", ErrSlotNotOffered, req.HospitalID)
	}
	si := -1
	want := Slot{Date: req.Date, Time: req.Time}
	for i, slot := range doc.Hospitals[ai].Availability {
		if slot.SameSlot(want) {
			si = i
			break
		}
	}
	if si < 0 {
		return nil, fmt.Errorf("%w: %s at %s", ErrSlotNotOffered, req.Date, req.Time)
	}

	appt := Appointment{
		ID:              s.store.NextID(PrefixAppointment),
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		HospitalID:      req.HospitalID,
		Date:            req.Date,
		Time:            req.Time,
		ConsultationFee: req.ConsultationFee,
		Status:          StatusBooked,
		BookingDate:     s.now().UTC().Format(DateLayout),
	}

	updated := cloneDoctor(doc)
	updated.Hospitals[ai].Availability[si].IsBooked = true

	s.store.replaceDoctor(idx, updated)
	s.store.data.Appointments = append(s.store.data.Appointments, appt)
	return &appt, nil
}
