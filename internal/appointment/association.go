package appointment

import (
	"context"
	"fmt"
	"math"
	"strings"
)

type AssociationRequest struct {
	DoctorID        string
	HospitalID      string
	ConsultationFee float64
	// Slots is the complete desired availability for this hospital; slots
	// left out are dropped.
	Slots []Slot
	// Specializations snapshotted on the association and unioned into the
	// doctor's set. Empty means the doctor's current set.
	Specializations []string
}

// UpdateDoctorAssociation creates or replaces the doctor's association with a
// hospital. It is all-or-nothing: any failure leaves the doctor untouched.
func (s *Service) UpdateDoctorAssociation(ctx context.Context, req AssociationRequest) (*Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, hospital, err := s.associate(req)
	if err != nil {
		return nil, s.fail(err)
	}
	s.store.Save(ctx)

	s.notifier.Success(fmt.Sprintf("Doctor %s association with %s updated.", doc.Name, hospital.Name))
	s.logEvent(ctx, doc.ID, EventAssociationUpdated, map[string]any{
		"hospital_id":      req.HospitalID,
		"consultation_fee": req.ConsultationFee,
		"slots":            len(req.Slots),
	})

	out := cloneDoctor(doc)
	return &out, nil
}

func (s *Service) associate(req AssociationRequest) (Doctor, Hospital, error) {
	if math.IsNaN(req.ConsultationFee) || math.IsInf(req.ConsultationFee, 0) || req.ConsultationFee < 0 {
		return Doctor{}, Hospital{}, ErrInvalidFee
	}

	idx, ok := s.store.doctorIndex(req.DoctorID)
	if !ok {
		return Doctor{}, Hospital{}, fmt.Errorf("%w: %s", ErrDoctorNotFound, req.DoctorID)
	}
	doc := s.store.data.Doctors[idx]

	hospital, ok := s.store.hospital(req.HospitalID)
	if !ok {
		return Doctor{}, Hospital{}, fmt.Errorf("%w: %s", ErrHospitalNotFound, req.HospitalID)
	}

	seen := make(map[Slot]struct{}, len(req.Slots))
	for _, slot := range req.Slots {
		k := Slot{Date: slot.Date, Time: slot.Time}
		if _, dup := seen[k]; dup {
			return Doctor{}, Hospital{}, fmt.Errorf("%w: %s at %s", ErrDuplicateSlot, slot.Date, slot.Time)
		}
		seen[k] = struct{}{}
	}

	if !s.hasMatchingDepartment(doc, req.HospitalID) {
		return Doctor{}, Hospital{}, fmt.Errorf("%w: specializations (%s) do not match any department in %s",
			ErrNoMatchingDepartment, strings.Join(doc.Specializations, ", "), hospital.Name)
	}

	if err := s.checkCrossHospitalConflict(doc, req.HospitalID, req.Slots); err != nil {
		return Doctor{}, Hospital{}, err
	}

	availability := make([]Slot, len(req.Slots))
	for i, slot := range req.Slots {
		availability[i] = Slot{
			Date:     slot.Date,
			Time:     slot.Time,
			IsBooked: s.store.slotTaken(doc.ID, req.HospitalID, slot.Date, slot.Time),
		}
	}

	snapshot := mergeSpecializations(nil, req.Specializations)
	if len(snapshot) == 0 {
		snapshot = cloneStrings(doc.Specializations)
	}

	assoc := Association{
		HospitalID:      req.HospitalID,
		ConsultationFee: req.ConsultationFee,
		Availability:    availability,
		Specializations: snapshot,
	}

	updated := cloneDoctor(doc)
	if i, ok := updated.association(req.HospitalID); ok {
		updated.Hospitals[i] = assoc
	} else {
		updated.Hospitals = append(updated.Hospitals, assoc)
	}
	updated.Specializations = mergeSpecializations(doc.Specializations, req.Specializations)

	s.store.replaceDoctor(idx, updated)
	return updated, hospital, nil
}

func (s *Service) hasMatchingDepartment(doc Doctor, hospitalID string) bool {
	for _, dept := range s.store.data.Departments {
		if dept.HospitalID == hospitalID && doc.HasSpecialization(dept.Name) {
			return true
		}
	}
	return false
}

// checkCrossHospitalConflict rejects any proposed slot the doctor already
// holds at a different hospital. The target hospital's own slots are
// replaced wholesale, so they never conflict.
func (s *Service) checkCrossHospitalConflict(doc Doctor, hospitalID string, proposed []Slot) error {
	for _, assoc := range doc.Hospitals {
		if assoc.HospitalID == hospitalID {
			continue
		}
		for _, existing := range assoc.Availability {
			for _, slot := range proposed {
				if !existing.SameSlot(slot) {
					continue
				}
				return &SlotConflictError{
					Slot:         Slot{Date: slot.Date, Time: slot.Time},
					DoctorName:   doc.Name,
					HospitalID:   assoc.HospitalID,
					HospitalName: s.hospitalName(assoc.HospitalID),
				}
			}
		}
	}
	return nil
}
