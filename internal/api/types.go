package api

import (
	"github.com/hackgods/hospital-booking/internal/notify"
)

type CreateHospitalRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

type CreateDepartmentRequest struct {
	Name string `json:"name"`
}

type CreateDoctorRequest struct {
	Name            string   `json:"name"`
	Qualifications  string   `json:"qualifications"`
	Specializations []string `json:"specializations"`
	Experience      int      `json:"experience"`
}

type SlotRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type UpdateAssociationRequest struct {
	ConsultationFee *float64      `json:"consultationFee"`
	Slots           []SlotRequest `json:"slots"`
	Specializations []string      `json:"specializations"`
}

type CreatePatientRequest struct {
	Name     string `json:"name"`
	Gender   string `json:"gender"`
	DOB      string `json:"dob"`
	UniqueID string `json:"uniqueId"`
}

type CreateAppointmentRequest struct {
	PatientID       string   `json:"patientId"`
	DoctorID        string   `json:"doctorId"`
	HospitalID      string   `json:"hospitalId"`
	Date            string   `json:"date"`
	Time            string   `json:"time"`
	ConsultationFee *float64 `json:"consultationFee"`
}

type ListResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func listOf[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Count: len(items)}
}

type NotificationResponse struct {
	Visible      bool                 `json:"visible"`
	Notification *notify.Notification `json:"notification,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
