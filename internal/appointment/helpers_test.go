package appointment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	redisclient "github.com/hackgods/hospital-booking/internal/redis"
	"github.com/hackgods/hospital-booking/internal/storage"
)

// ---------- Helpers ----------

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	kinds    []string
}

func (n *recordingNotifier) Success(msg string) { n.record("success", msg) }
func (n *recordingNotifier) Error(msg string)   { n.record("error", msg) }

func (n *recordingNotifier) record(kind, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, kind)
	n.messages = append(n.messages, msg)
}

func (n *recordingNotifier) last() (string, string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.kinds) == 0 {
		return "", ""
	}
	return n.kinds[len(n.kinds)-1], n.messages[len(n.messages)-1]
}

type testEnv struct {
	svc      *Service
	store    *Store
	backend  *storage.MemoryBackend
	events   *MemoryEventRepository
	notifier *recordingNotifier
}

var fixedNow = time.Date(2024, 1, 5, 15, 30, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	backend := storage.NewMemoryBackend()
	store := NewStore(backend, zerolog.Nop())
	store.Load(context.Background())

	events := &MemoryEventRepository{}
	notifier := &recordingNotifier{}
	svc := NewService(store, redisclient.NewLocalSlotLocker(time.Second), events, notifier, zerolog.Nop())
	svc.now = func() time.Time { return fixedNow }

	return &testEnv{svc: svc, store: store, backend: backend, events: events, notifier: notifier}
}

func (e *testEnv) hospital(t *testing.T, name string, departments ...string) Hospital {
	t.Helper()
	h, err := e.svc.AddHospital(context.Background(), Hospital{Name: name, Location: "Downtown"})
	if err != nil {
		t.Fatalf("add hospital: %v", err)
	}
	for _, d := range departments {
		if _, err := e.svc.AddDepartment(context.Background(), h.ID, d); err != nil {
			t.Fatalf("add department %s: %v", d, err)
		}
	}
	return *h
}

func (e *testEnv) doctor(t *testing.T, name string, specs ...string) Doctor {
	t.Helper()
	d, err := e.svc.AddDoctor(context.Background(), Doctor{
		Name:            name,
		Qualifications:  "MBBS, MD",
		Specializations: specs,
		Experience:      10,
	})
	if err != nil {
		t.Fatalf("add doctor: %v", err)
	}
	return *d
}

func (e *testEnv) patient(t *testing.T, name string) Patient {
	t.Helper()
	p, err := e.svc.AddPatient(context.Background(), Patient{Name: name, Gender: "Female", DOB: "1990-04-01", UniqueID: "P-" + name})
	if err != nil {
		t.Fatalf("add patient: %v", err)
	}
	return *p
}

func (e *testEnv) associate(t *testing.T, doctorID, hospitalID string, fee float64, slots ...Slot) Doctor {
	t.Helper()
	d, err := e.svc.UpdateDoctorAssociation(context.Background(), AssociationRequest{
		DoctorID:        doctorID,
		HospitalID:      hospitalID,
		ConsultationFee: fee,
		Slots:           slots,
	})
	if err != nil {
		t.Fatalf("associate %s with %s: %v", doctorID, hospitalID, err)
	}
	return *d
}

func slot(date, clock string) Slot {
	return Slot{Date: date, Time: clock}
}
