package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/hospital-booking/internal/appointment"
	"github.com/hackgods/hospital-booking/internal/notify"
)

// ---------- Hospitals ----------

func createHospitalHandler(svc *appointment.Service, n errorNotifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateHospitalRequest
		if err := decodeJSON(r, &req); err != nil {
			rejectInput(w, n, "invalid_request_body", "could not parse JSON")
			return
		}
		if msg := missing(field{"name", req.Name}, field{"location", req.Location}); msg != "" {
			rejectInput(w, n, "validation_error", msg)
			return
		}

		h, err := svc.AddHospital(r.Context(), appointment.Hospital{
			Name:     strings.TrimSpace(req.Name),
			Location: strings.TrimSpace(req.Location),
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, h)
	}
}

func listHospitalsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, listOf(svc.Hospitals()))
	}
}

func hospitalReportHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.HospitalReport(chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func createDepartmentHandler(svc *appointment.Service, n errorNotifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateDepartmentRequest
		if err := decodeJSON(r, &req); err != nil {
			rejectInput(w, n, "invalid_request_body", "could not parse JSON")
			return
		}
		if msg := missing(field{"name", req.Name}); msg != "" {
			rejectInput(w, n, "validation_error", msg)
			return
		}

		dept, err := svc.AddDepartment(r.Context(), chi.URLParam(r, "id"), req.Name)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, dept)
	}
}

func listDepartmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, listOf(svc.Departments(r.URL.Query().Get("hospital_id"))))
	}
}

// ---------- Doctors ----------

func createDoctorHandler(svc *appointment.Service, n errorNotifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateDoctorRequest
		if err := decodeJSON(r, &req); err != nil {
			rejectInput(w, n, "invalid_request_body", "could not parse JSON")
			return
		}
		if msg := missing(field{"name", req.Name}, field{"qualifications", req.Qualifications}); msg != "" {
			rejectInput(w, n, "validation_error", msg)
			return
		}
		if !hasNonBlank(req.Specializations) {
			rejectInput(w, n, "validation_error", "at least one specialization is required")
			return
		}
		if req.Experience < 0 {
			rejectInput(w, n, "validation_error", "experience must not be negative")
			return
		}

		d, err := svc.AddDoctor(r.Context(), appointment.Doctor{
			Name:            strings.TrimSpace(req.Name),
			Qualifications:  strings.TrimSpace(req.Qualifications),
			Specializations: req.Specializations,
			Experience:      req.Experience,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, d)
	}
}

func searchDoctorsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		writeJSON(w, http.StatusOK, listOf(svc.SearchDoctors(q.Get("specialization"), q.Get("hospital_id"))))
	}
}

func getDoctorHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := svc.Doctor(chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func updateAssociationHandler(svc *appointment.Service, n errorNotifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateAssociationRequest
		if err := decodeJSON(r, &req); err != nil {
			rejectInput(w, n, "invalid_request_body", "could not parse JSON")
			return
		}
		if msg := validateFee(req.ConsultationFee); msg != "" {
			rejectInput(w, n, "validation_error", msg)
			return
		}

		slots := make([]appointment.Slot, 0, len(req.Slots))
		for i, s := range req.Slots {
			if msg := validateSlot(s.Date, s.Time); msg != "" {
				rejectInput(w, n, "validation_error", fmt.Sprintf("slots[%d]: %s", i, msg))
				return
			}
			slots = append(slots, appointment.Slot{Date: s.Date, Time: s.Time})
		}

		d, err := svc.UpdateDoctorAssociation(r.Context(), appointment.AssociationRequest{
			DoctorID:        chi.URLParam(r, "id"),
			HospitalID:      chi.URLParam(r, "hospitalId"),
			ConsultationFee: *req.ConsultationFee,
			Slots:           slots,
			Specializations: req.Specializations,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func doctorSlotsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slots, err := svc.DoctorSlots(chi.URLParam(r, "id"), r.URL.Query().Get("hospital_id"))
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, listOf(slots))
	}
}

func doctorEarningsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.DoctorEarnings(chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// ---------- Patients ----------

func createPatientHandler(svc *appointment.Service, n errorNotifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePatientRequest
		if err := decodeJSON(r, &req); err != nil {
			rejectInput(w, n, "invalid_request_body", "could not parse JSON")
			return
		}
		if msg := missing(
			field{"name", req.Name},
			field{"gender", req.Gender},
			field{"dob", req.DOB},
			field{"uniqueId", req.UniqueID},
		); msg != "" {
			rejectInput(w, n, "validation_error", msg)
			return
		}
		if _, err := time.Parse(appointment.DateLayout, req.DOB); err != nil {
			rejectInput(w, n, "validation_error", "dob must be YYYY-MM-DD")
			return
		}

		p, err := svc.AddPatient(r.Context(), appointment.Patient{
			Name:     strings.TrimSpace(req.Name),
			Gender:   strings.TrimSpace(req.Gender),
			DOB:      req.DOB,
			UniqueID: strings.TrimSpace(req.UniqueID),
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func listPatientsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, listOf(svc.Patients()))
	}
}

func patientHistoryHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		history, err := svc.PatientHistory(chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, listOf(history))
	}
}

// ---------- Appointments ----------

func createAppointmentHandler(svc *appointment.Service, n errorNotifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := decodeJSON(r, &req); err != nil {
			rejectInput(w, n, "invalid_request_body", "could not parse JSON")
			return
		}
		if msg := missing(
			field{"patientId", req.PatientID},
			field{"doctorId", req.DoctorID},
			field{"hospitalId", req.HospitalID},
		); msg != "" {
			rejectInput(w, n, "validation_error", msg)
			return
		}
		if msg := validateSlot(req.Date, req.Time); msg != "" {
			rejectInput(w, n, "validation_error", msg)
			return
		}
		if msg := validateFee(req.ConsultationFee); msg != "" {
			rejectInput(w, n, "validation_error", msg)
			return
		}

		appt, err := svc.BookAppointment(r.Context(), appointment.BookingRequest{
			PatientID:       req.PatientID,
			DoctorID:        req.DoctorID,
			HospitalID:      req.HospitalID,
			Date:            req.Date,
			Time:            req.Time,
			ConsultationFee: *req.ConsultationFee,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, appt)
	}
}

func listAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, listOf(svc.Appointments()))
	}
}

// ---------- Notification ----------

func notificationHandler(n *notify.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if n == nil {
			writeJSON(w, http.StatusOK, NotificationResponse{})
			return
		}
		current, ok := n.Current()
		if !ok {
			writeJSON(w, http.StatusOK, NotificationResponse{})
			return
		}
		writeJSON(w, http.StatusOK, NotificationResponse{Visible: true, Notification: &current})
	}
}

// ---------- Validation ----------

type field struct {
	name  string
	value string
}

// missing names the blank required fields, or returns "".
func missing(fields ...field) string {
	var names []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			names = append(names, f.name)
		}
	}
	if len(names) == 0 {
		return ""
	}
	return "missing required fields: " + strings.Join(names, ", ")
}

func hasNonBlank(list []string) bool {
	for _, s := range list {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}

func validateSlot(date, clock string) string {
	if _, err := time.Parse(appointment.DateLayout, date); err != nil {
		return "date must be YYYY-MM-DD"
	}
	if len(clock) != len(appointment.TimeLayout) {
		return "time must be HH:MM"
	}
	if _, err := time.Parse(appointment.TimeLayout, clock); err != nil {
		return "time must be HH:MM"
	}
	return ""
}

func validateFee(fee *float64) string {
	switch {
	case fee == nil:
		return "consultationFee is required"
	case math.IsNaN(*fee) || math.IsInf(*fee, 0) || *fee < 0:
		return "consultationFee must be a non-negative number"
	}
	return ""
}

// ---------- Errors ----------

// errorNotifier receives the user-facing message of a failed request.
type errorNotifier interface {
	Error(msg string)
}

type discardNotifier struct{}

func (discardNotifier) Error(string) {}

// rejectInput answers a request that never reached the service. Service
// failures notify on their own; this covers the rest.
func rejectInput(w http.ResponseWriter, n errorNotifier, code, msg string) {
	n.Error(msg)
	writeError(w, http.StatusBadRequest, code, msg)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrHospitalNotFound):
		writeError(w, http.StatusNotFound, "hospital_not_found", err.Error())
	case errors.Is(err, appointment.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, appointment.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, appointment.ErrInvalidFee):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, appointment.ErrDuplicateDepartment):
		writeError(w, http.StatusConflict, "duplicate_department", err.Error())
	case errors.Is(err, appointment.ErrNoMatchingDepartment):
		writeError(w, http.StatusConflict, "no_matching_department", err.Error())
	case errors.Is(err, appointment.ErrSlotConflict):
		writeError(w, http.StatusConflict, "slot_conflict", err.Error())
	case errors.Is(err, appointment.ErrDuplicateSlot):
		writeError(w, http.StatusConflict, "duplicate_slot", err.Error())
	case errors.Is(err, appointment.ErrSlotAlreadyBooked):
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, appointment.ErrSlotBeingBooked):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, appointment.ErrSlotNotOffered):
		writeError(w, http.StatusConflict, "slot_not_offered", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
