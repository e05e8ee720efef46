package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-booking/internal/appointment"
	"github.com/hackgods/hospital-booking/internal/notify"
)

type RouterConfig struct {
	Service  *appointment.Service
	Notifier *notify.Notifier
	Deps     map[string]Pinger
	Logger   zerolog.Logger
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.Deps, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	svc := cfg.Service
	var notifier errorNotifier = discardNotifier{}
	if cfg.Notifier != nil {
		notifier = cfg.Notifier
	}

	r.Route("/hospitals", func(r chi.Router) {
		r.Post("/", createHospitalHandler(svc, notifier))
		r.Get("/", listHospitalsHandler(svc))
		r.Get("/{id}/report", hospitalReportHandler(svc))
		r.Post("/{id}/departments", createDepartmentHandler(svc, notifier))
	})
	r.Get("/departments", listDepartmentsHandler(svc))

	r.Route("/doctors", func(r chi.Router) {
		r.Post("/", createDoctorHandler(svc, notifier))
		r.Get("/", searchDoctorsHandler(svc))
		r.Get("/{id}", getDoctorHandler(svc))
		r.Put("/{id}/associations/{hospitalId}", updateAssociationHandler(svc, notifier))
		r.Get("/{id}/slots", doctorSlotsHandler(svc))
		r.Get("/{id}/earnings", doctorEarningsHandler(svc))
	})

	r.Route("/patients", func(r chi.Router) {
		r.Post("/", createPatientHandler(svc, notifier))
		r.Get("/", listPatientsHandler(svc))
		r.Get("/{id}/appointments", patientHistoryHandler(svc))
	})

	r.Post("/appointments", createAppointmentHandler(svc, notifier))
	r.Get("/appointments", listAppointmentsHandler(svc))

	r.Get("/notification", notificationHandler(cfg.Notifier))

	return r
}
