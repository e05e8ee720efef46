package appointment

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestAssociate_MatchingDepartment(t *testing.T) {
	env := newTestEnv(t)
	h := env.hospital(t, "City Hospital", "Cardiology")
	d := env.doctor(t, "House", "cardiology")

	got := env.associate(t, d.ID, h.ID, 50, slot("2024-01-10", "10:00"))

	if len(got.Hospitals) != 1 {
		t.Fatalf("expected one association, got %d", len(got.Hospitals))
	}
	a := got.Hospitals[0]
	if a.HospitalID != h.ID || a.ConsultationFee != 50 || len(a.Availability) != 1 {
		t.Errorf("unexpected association %+v", a)
	}
	if a.Availability[0].IsBooked {
		t.Error("new slot should not be booked")
	}
	if kind, msg := env.notifier.last(); kind != "success" || msg == "" {
		t.Errorf("expected success notification, got %s %q", kind, msg)
	}
}

func TestAssociate_NoMatchingDepartment(t *testing.T) {
	env := newTestEnv(t)
	h := env.hospital(t, "City Hospital", "Cardiology")
	d := env.doctor(t, "Strange", "Neurology")

	_, err := env.svc.UpdateDoctorAssociation(context.Background(), AssociationRequest{
		DoctorID:        d.ID,
		HospitalID:      h.ID,
		ConsultationFee: 80,
		Slots:           []Slot{slot("2024-01-10", "10:00")},
	})
	if !errors.Is(err, ErrNoMatchingDepartment) {
		t.Fatalf("expected ErrNoMatchingDepartment, got %v", err)
	}

	doc, _ := env.svc.Doctor(d.ID)
	if len(doc.Hospitals) != 0 {
		t.Errorf("no association should have been added, got %+v", doc.Hospitals)
	}
	if kind, _ := env.notifier.last(); kind != "error" {
		t.Errorf("expected error notification, got %s", kind)
	}
}

func TestAssociate_HospitalWithoutDepartments(t *testing.T) {
	env := newTestEnv(t)
	h := env.hospital(t, "Empty Clinic")
	d := env.doctor(t, "House", "Cardiology")

	_, err := env.svc.UpdateDoctorAssociation(context.Background(), AssociationRequest{
		DoctorID: d.ID, HospitalID: h.ID, ConsultationFee: 10,
	})
	if !errors.Is(err, ErrNoMatchingDepartment) {
		t.Fatalf("expected ErrNoMatchingDepartment, got %v", err)
	}
}

func TestAssociate_CrossHospitalConflict(t *testing.T) {
	env := newTestEnv(t)
	h1 := env.hospital(t, "City Hospital", "Cardiology")
	h2 := env.hospital(t, "General Hospital", "Cardiology")
	d := env.doctor(t, "House", "Cardiology")

	env.associate(t, d.ID, h1.ID, 50, slot("2024-01-10", "10:00"), slot("2024-01-10", "11:00"))
	before, _ := env.svc.Doctor(d.ID)

	_, err := env.svc.UpdateDoctorAssociation(context.Background(), AssociationRequest{
		DoctorID:        d.ID,
		HospitalID:      h2.ID,
		ConsultationFee: 70,
		Slots:           []Slot{slot("2024-01-11", "09:00"), slot("2024-01-10", "11:00")},
	})
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected ErrSlotConflict, got %v", err)
	}

	var conflict *SlotConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected *SlotConflictError, got %T", err)
	}
	if conflict.HospitalID != h1.ID || conflict.HospitalName != "City Hospital" {
		t.Errorf("conflict should name the other hospital, got %+v", conflict)
	}
	if conflict.Slot.Date != "2024-01-10" || conflict.Slot.Time != "11:00" {
		t.Errorf("conflict should name the slot, got %+v", conflict.Slot)
	}

	after, _ := env.svc.Doctor(d.ID)
	if !reflect.DeepEqual(before, after) {
		t.Errorf("doctor changed despite conflict:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestAssociate_SameHospitalSlotsAreReplacedNotConflicting(t *testing.T) {
	env := newTestEnv(t)
	h := env.hospital(t, "City Hospital", "Cardiology")
	d := env.doctor(t, "House", "Cardiology")

	env.associate(t, d.ID, h.ID, 50, slot("2024-01-10", "10:00"), slot("2024-01-10", "11:00"))
	got := env.associate(t, d.ID, h.ID, 65, slot("2024-01-10", "11:00"), slot("2024-01-12", "09:30"))

	if len(got.Hospitals) != 1 {
		t.Fatalf("association must be keyed by hospital, got %d", len(got.Hospitals))
	}
	a := got.Hospitals[0]
	if a.ConsultationFee != 65 {
		t.Errorf("fee not replaced: %v", a.ConsultationFee)
	}
	want := []Slot{slot("2024-01-10", "11:00"), slot("2024-01-12", "09:30")}
	if !reflect.DeepEqual(a.Availability, want) {
		t.Errorf("availability not replaced wholesale: %+v", a.Availability)
	}
}

func TestAssociate_DuplicateProposedSlot(t *testing.T) {
	env := newTestEnv(t)
	h := env.hospital(t, "City Hospital", "Cardiology")
	d := env.doctor(t, "House", "Cardiology")

	_, err := env.svc.UpdateDoctorAssociation(context.Background(), AssociationRequest{
		DoctorID:        d.ID,
		HospitalID:      h.ID,
		ConsultationFee: 50,
		Slots:           []Slot{slot("2024-01-10", "10:00"), slot("2024-01-10", "10:00")},
	})
	if !errors.Is(err, ErrDuplicateSlot) {
		t.Fatalf("expected ErrDuplicateSlot, got %v", err)
	}
}

func TestAssociate_InvalidInputs(t *testing.T) {
	env := newTestEnv(t)
	h := env.hospital(t, "City Hospital", "Cardiology")
	d := env.doctor(t, "House", "Cardiology")

	tests := []struct {
		name string
		req  AssociationRequest
		want error
	}{
		{"negative fee", AssociationRequest{DoctorID: d.ID, HospitalID: h.ID, ConsultationFee: -1}, ErrInvalidFee},
		{"nan fee", AssociationRequest{DoctorID: d.ID, HospitalID: h.ID, ConsultationFee: math.NaN()}, ErrInvalidFee},
		{"unknown doctor", AssociationRequest{DoctorID: "DOC99", HospitalID: h.ID}, ErrDoctorNotFound},
		{"unknown hospital", AssociationRequest{DoctorID: d.ID, HospitalID: "HOSP99"}, ErrHospitalNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.svc.UpdateDoctorAssociation(context.Background(), tt.req); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAssociate_SpecializationsOnlyGrow(t *testing.T) {
	env := newTestEnv(t)
	h := env.hospital(t, "City Hospital", "Cardiology", "Internal Medicine")
	d := env.doctor(t, "House", "Cardiology", "Diagnostics")

	got, err := env.svc.UpdateDoctorAssociation(context.Background(), AssociationRequest{
		DoctorID:        d.ID,
		HospitalID:      h.ID,
		ConsultationFee: 50,
		Specializations: []string{"cardiology", "Internal Medicine", " "},
	})
	if err != nil {
		t.Fatalf("associate: %v", err)
	}

	want := []string{"Cardiology", "Diagnostics", "Internal Medicine"}
	if !reflect.DeepEqual(got.Specializations, want) {
		t.Errorf("expected union %v, got %v", want, got.Specializations)
	}
	if snap := got.Hospitals[0].Specializations; !reflect.DeepEqual(snap, []string{"cardiology", "Internal Medicine"}) {
		t.Errorf("unexpected association snapshot %v", snap)
	}

	// A later update with fewer specializations never shrinks the doctor's set.
	updated := env.associate(t, d.ID, h.ID, 55)
	got = &updated
	if !reflect.DeepEqual(got.Specializations, want) {
		t.Errorf("specializations shrank: %v", got.Specializations)
	}
	if snap := got.Hospitals[0].Specializations; !reflect.DeepEqual(snap, want) {
		t.Errorf("empty request should snapshot the doctor's set, got %v", snap)
	}
}

func TestAssociate_ResubmittedSlotKeepsBookedFlag(t *testing.T) {
	env := newTestEnv(t)
	h := env.hospital(t, "City Hospital", "Cardiology")
	d := env.doctor(t, "House", "Cardiology")
	p := env.patient(t, "Ada")
	env.associate(t, d.ID, h.ID, 50, slot("2024-01-10", "10:00"))

	if _, err := env.svc.BookAppointment(context.Background(), BookingRequest{
		PatientID: p.ID, DoctorID: d.ID, HospitalID: h.ID, Date: "2024-01-10", Time: "10:00", ConsultationFee: 50,
	}); err != nil {
		t.Fatalf("book: %v", err)
	}

	// The caller re-submits the slot without the flag; the cache follows the appointment table.
	got := env.associate(t, d.ID, h.ID, 50, slot("2024-01-10", "10:00"), slot("2024-01-10", "11:00"))
	if !got.Hospitals[0].Availability[0].IsBooked {
		t.Error("booked slot lost its flag after re-association")
	}
	if got.Hospitals[0].Availability[1].IsBooked {
		t.Error("new slot should not be booked")
	}
}

func TestAssociate_CopyOnWrite(t *testing.T) {
	env := newTestEnv(t)
	h := env.hospital(t, "City Hospital", "Cardiology")
	d := env.doctor(t, "House", "Cardiology")
	env.associate(t, d.ID, h.ID, 50, slot("2024-01-10", "10:00"))

	before := env.store.data.Doctors
	env.associate(t, d.ID, h.ID, 60, slot("2024-01-11", "10:00"))

	if before[0].Hospitals[0].ConsultationFee != 50 {
		t.Error("previous doctors slice was mutated in place")
	}
}
