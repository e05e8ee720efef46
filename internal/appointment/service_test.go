package appointment

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-booking/internal/storage"
)

func TestAddDepartment_UniquePerHospitalIgnoringCase(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	h := env.hospital(t, "City Hospital", "ICU")
	other := env.hospital(t, "General Hospital")

	_, err := env.svc.AddDepartment(ctx, h.ID, "icu")
	if !errors.Is(err, ErrDuplicateDepartment) {
		t.Fatalf("expected ErrDuplicateDepartment, got %v", err)
	}
	if kind, _ := env.notifier.last(); kind != "error" {
		t.Errorf("expected error notification, got %s", kind)
	}

	if _, err := env.svc.AddDepartment(ctx, other.ID, "ICU"); err != nil {
		t.Errorf("same name at another hospital should be allowed: %v", err)
	}
	if got := env.svc.Departments(h.ID); len(got) != 1 {
		t.Errorf("expected one department at %s, got %d", h.ID, len(got))
	}
	if got := env.svc.Departments(""); len(got) != 2 {
		t.Errorf("expected two departments overall, got %d", len(got))
	}
}

func TestAddDepartment_UnknownHospital(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.svc.AddDepartment(context.Background(), "HOSP42", "ICU"); !errors.Is(err, ErrHospitalNotFound) {
		t.Fatalf("expected ErrHospitalNotFound, got %v", err)
	}
}

func TestRegistration_AssignsSequentialIDs(t *testing.T) {
	env := newTestEnv(t)
	h1 := env.hospital(t, "City Hospital", "Cardiology", "Neurology")
	h2 := env.hospital(t, "General Hospital")
	d := env.doctor(t, "House", "Cardiology", " cardiology ", "")
	p := env.patient(t, "Ada")

	if h1.ID != "HOSP1" || h2.ID != "HOSP2" {
		t.Errorf("unexpected hospital ids %s %s", h1.ID, h2.ID)
	}
	if depts := env.svc.Departments(h1.ID); depts[0].ID != "DEPT1" || depts[1].ID != "DEPT2" {
		t.Errorf("unexpected department ids %+v", depts)
	}
	if d.ID != "DOC1" || p.ID != "PAT1" {
		t.Errorf("unexpected ids %s %s", d.ID, p.ID)
	}
	if len(d.Specializations) != 1 || d.Specializations[0] != "Cardiology" {
		t.Errorf("specializations should be normalized, got %v", d.Specializations)
	}
	if d.Hospitals == nil || len(d.Hospitals) != 0 {
		t.Errorf("new doctor should have an empty association list, got %v", d.Hospitals)
	}
	if kind, msg := env.notifier.last(); kind != "success" || msg == "" {
		t.Errorf("expected success notification, got %s %q", kind, msg)
	}
}

func TestReads_UnknownIDs(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.svc.Hospital("HOSP1"); !errors.Is(err, ErrHospitalNotFound) {
		t.Errorf("expected ErrHospitalNotFound, got %v", err)
	}
	if _, err := env.svc.Doctor("DOC1"); !errors.Is(err, ErrDoctorNotFound) {
		t.Errorf("expected ErrDoctorNotFound, got %v", err)
	}
	if _, err := env.svc.DoctorSlots("DOC1", ""); !errors.Is(err, ErrDoctorNotFound) {
		t.Errorf("expected ErrDoctorNotFound, got %v", err)
	}
}

func TestReconcileSlots_FollowsAppointmentTable(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	h := env.hospital(t, "City Hospital", "Cardiology")
	d := env.doctor(t, "House", "Cardiology")
	p := env.patient(t, "Ada")
	env.associate(t, d.ID, h.ID, 50, slot("2024-01-10", "10:00"), slot("2024-01-10", "11:00"))
	if _, err := env.svc.BookAppointment(ctx, bookingFor(p, d, h, "2024-01-10", "10:00", 50)); err != nil {
		t.Fatalf("book: %v", err)
	}

	// Drift the cache both ways.
	i, _ := env.store.doctorIndex(d.ID)
	drifted := cloneDoctor(env.store.data.Doctors[i])
	drifted.Hospitals[0].Availability[0].IsBooked = false
	drifted.Hospitals[0].Availability[1].IsBooked = true
	env.store.replaceDoctor(i, drifted)

	if got := env.svc.ReconcileSlots(ctx); got != 2 {
		t.Fatalf("expected 2 slots fixed, got %d", got)
	}
	doc, _ := env.svc.Doctor(d.ID)
	if !doc.Hospitals[0].Availability[0].IsBooked || doc.Hospitals[0].Availability[1].IsBooked {
		t.Errorf("flags not reconciled: %+v", doc.Hospitals[0].Availability)
	}

	if got := env.svc.ReconcileSlots(ctx); got != 0 {
		t.Errorf("second pass should be a no-op, got %d", got)
	}

	events := env.events.Events()
	if last := events[len(events)-1]; last.EventType != EventSlotsReconciled {
		t.Errorf("expected reconcile event, got %s", last.EventType)
	}
}

func TestService_StatePersistsAcrossRestart(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	h := env.hospital(t, "City Hospital", "Cardiology")
	d := env.doctor(t, "House", "Cardiology")
	p := env.patient(t, "Ada")
	env.associate(t, d.ID, h.ID, 50, slot("2024-01-10", "10:00"))
	if _, err := env.svc.BookAppointment(ctx, bookingFor(p, d, h, "2024-01-10", "10:00", 50)); err != nil {
		t.Fatalf("book: %v", err)
	}

	store := NewStore(env.backend, zerolog.Nop())
	store.Load(ctx)
	restarted := NewService(store, nil, &MemoryEventRepository{}, nil, zerolog.Nop())

	_, err := restarted.BookAppointment(ctx, BookingRequest{
		PatientID: p.ID, DoctorID: d.ID, HospitalID: h.ID, Date: "2024-01-10", Time: "10:00", ConsultationFee: 50,
	})
	if !errors.Is(err, ErrSlotAlreadyBooked) {
		t.Fatalf("booking must survive a restart, got %v", err)
	}

	p2, err := restarted.AddPatient(ctx, Patient{Name: "Bob"})
	if err != nil {
		t.Fatalf("add patient: %v", err)
	}
	if p2.ID != "PAT2" {
		t.Errorf("ids must continue after restart, got %s", p2.ID)
	}
}

func TestService_EventsRecordedPerOperation(t *testing.T) {
	env := newTestEnv(t)
	h := env.hospital(t, "City Hospital", "Cardiology")
	d := env.doctor(t, "House", "Cardiology")
	env.patient(t, "Ada")
	env.associate(t, d.ID, h.ID, 50)

	want := []string{
		EventHospitalAdded,
		EventDepartmentAdded,
		EventDoctorAdded,
		EventPatientAdded,
		EventAssociationUpdated,
	}
	events := env.events.Events()
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, ev := range events {
		if ev.EventType != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], ev.EventType)
		}
		if !ev.CreatedAt.Equal(fixedNow) {
			t.Errorf("event %d: unexpected timestamp %v", i, ev.CreatedAt)
		}
	}
}

func TestNewService_Defaults(t *testing.T) {
	store := NewStore(storage.NewMemoryBackend(), zerolog.Nop())
	svc := NewService(store, nil, nil, nil, zerolog.Nop())

	if _, err := svc.AddHospital(context.Background(), Hospital{Name: "City"}); err != nil {
		t.Fatalf("add hospital with default collaborators: %v", err)
	}
}
