package appointment

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

const (
	EventHospitalAdded      = "HOSPITAL_ADDED"
	EventDepartmentAdded    = "DEPARTMENT_ADDED"
	EventDoctorAdded        = "DOCTOR_ADDED"
	EventAssociationUpdated = "ASSOCIATION_UPDATED"
	EventPatientAdded       = "PATIENT_ADDED"
	EventAppointmentBooked  = "APPOINTMENT_BOOKED"
	EventSlotsReconciled    = "SLOTS_RECONCILED"
)

// LogEventRepository writes events to the structured log instead of a table.
type LogEventRepository struct {
	logger zerolog.Logger
}

func NewLogEventRepository(logger zerolog.Logger) *LogEventRepository {
	return &LogEventRepository{logger: logger.With().Str("component", "events").Logger()}
}

func (r *LogEventRepository) InsertEvent(_ context.Context, ev EventLog) error {
	evt := r.logger.Info().
		Str("event_type", ev.EventType).
		Str("entity_id", ev.EntityID).
		Time("created_at", ev.CreatedAt)
	if len(ev.Payload) > 0 {
		evt = evt.RawJSON("payload", ev.Payload)
	}
	evt.Msg("event")
	return nil
}

// MemoryEventRepository keeps events in memory.
type MemoryEventRepository struct {
	mu     sync.Mutex
	events []EventLog
}

func (r *MemoryEventRepository) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.ID = int64(len(r.events) + 1)
	r.events = append(r.events, ev)
	return nil
}

func (r *MemoryEventRepository) Events() []EventLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]EventLog(nil), r.events...)
}
