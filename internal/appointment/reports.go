package appointment

import (
	"math"
	"sort"
	"strings"
)

// Consultation fees are split between the doctor and the hospital.
const (
	DoctorShare   = 0.60
	HospitalShare = 0.40
)

const unknownHospital = "Unknown Hospital"

type SlotView struct {
	HospitalID      string  `json:"hospitalId"`
	HospitalName    string  `json:"hospitalName"`
	Date            string  `json:"date"`
	Time            string  `json:"time"`
	ConsultationFee float64 `json:"consultationFee"`
	Booked          bool    `json:"booked"`
}

type AppointmentDetail struct {
	Appointment
	DoctorName   string `json:"doctorName"`
	HospitalName string `json:"hospitalName"`
}

type HospitalEarnings struct {
	HospitalID    string  `json:"hospitalId"`
	HospitalName  string  `json:"hospitalName"`
	Consultations int     `json:"consultations"`
	Earnings      float64 `json:"earnings"`
}

type EarningsReport struct {
	DoctorID           string             `json:"doctorId"`
	DoctorName         string             `json:"doctorName"`
	TotalConsultations int                `json:"totalConsultations"`
	TotalEarnings      float64            `json:"totalEarnings"`
	ByHospital         []HospitalEarnings `json:"byHospital"`
}

type DoctorSummary struct {
	DoctorID        string  `json:"doctorId"`
	Name            string  `json:"name"`
	ConsultationFee float64 `json:"consultationFee"`
	Slots           int     `json:"slots"`
	BookedSlots     int     `json:"bookedSlots"`
}

type HospitalReport struct {
	Hospital          Hospital        `json:"hospital"`
	Departments       []Department    `json:"departments"`
	Doctors           []DoctorSummary `json:"doctors"`
	TotalAppointments int             `json:"totalAppointments"`
	TotalRevenue      float64         `json:"totalRevenue"`
	HospitalEarnings  float64         `json:"hospitalEarnings"`
}

// SearchDoctors filters doctors by a case-insensitive specialization
// substring and by hospital association. Empty filters match everything.
func (s *Service) SearchDoctors(specialization, hospitalID string) []Doctor {
	s.mu.Lock()
	defer s.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(specialization))
	out := []Doctor{}
	for _, d := range s.store.data.Doctors {
		if needle != "" && !anyContains(d.Specializations, needle) {
			continue
		}
		if hospitalID != "" {
			if _, ok := d.association(hospitalID); !ok {
				continue
			}
		}
		out = append(out, cloneDoctor(d))
	}
	return out
}

func anyContains(list []string, needle string) bool {
	for _, s := range list {
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

// DoctorSlots lists the doctor's slots in chronological order, optionally for
// one hospital. Booked is derived from the appointment table.
func (s *Service) DoctorSlots(doctorID, hospitalID string) ([]SlotView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.store.doctorIndex(doctorID)
	if !ok {
		return nil, ErrDoctorNotFound
	}
	doc := s.store.data.Doctors[i]

	out := []SlotView{}
	for _, a := range doc.Hospitals {
		if hospitalID != "" && a.HospitalID != hospitalID {
			continue
		}
		name := s.hospitalName(a.HospitalID)
		for _, slot := range a.Availability {
			out = append(out, SlotView{
				HospitalID:      a.HospitalID,
				HospitalName:    name,
				Date:            slot.Date,
				Time:            slot.Time,
				ConsultationFee: a.ConsultationFee,
				Booked:          s.store.slotTaken(doc.ID, a.HospitalID, slot.Date, slot.Time),
			})
		}
	}

	sort.SliceStable(out, func(a, b int) bool {
		return Slot{Date: out[a].Date, Time: out[a].Time}.Start().
			Before(Slot{Date: out[b].Date, Time: out[b].Time}.Start())
	})
	return out, nil
}

// PatientHistory returns the patient's appointments, most recent first.
func (s *Service) PatientHistory(patientID string) ([]AppointmentDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.store.patient(patientID); !ok {
		return nil, ErrPatientNotFound
	}

	out := []AppointmentDetail{}
	for _, a := range s.store.data.Appointments {
		if a.PatientID != patientID {
			continue
		}
		detail := AppointmentDetail{Appointment: a, HospitalName: s.hospitalName(a.HospitalID)}
		if i, ok := s.store.doctorIndex(a.DoctorID); ok {
			detail.DoctorName = s.store.data.Doctors[i].Name
		}
		out = append(out, detail)
	}

	sort.SliceStable(out, func(a, b int) bool {
		return Slot{Date: out[a].Date, Time: out[a].Time}.Start().
			After(Slot{Date: out[b].Date, Time: out[b].Time}.Start())
	})
	return out, nil
}

// DoctorEarnings totals the doctor's share of booked consultation fees.
func (s *Service) DoctorEarnings(doctorID string) (*EarningsReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.store.doctorIndex(doctorID)
	if !ok {
		return nil, ErrDoctorNotFound
	}

	report := &EarningsReport{
		DoctorID:   doctorID,
		DoctorName: s.store.data.Doctors[i].Name,
		ByHospital: []HospitalEarnings{},
	}
	byHospital := map[string]*HospitalEarnings{}

	for _, a := range s.store.data.Appointments {
		if a.DoctorID != doctorID || a.Status != StatusBooked {
			continue
		}
		share := a.ConsultationFee * DoctorShare
		report.TotalConsultations++
		report.TotalEarnings += share

		he, ok := byHospital[a.HospitalID]
		if !ok {
			he = &HospitalEarnings{HospitalID: a.HospitalID, HospitalName: s.hospitalName(a.HospitalID)}
			byHospital[a.HospitalID] = he
		}
		he.Consultations++
		he.Earnings += share
	}

	for _, he := range byHospital {
		he.Earnings = roundCents(he.Earnings)
		report.ByHospital = append(report.ByHospital, *he)
	}
	sort.Slice(report.ByHospital, func(a, b int) bool {
		return report.ByHospital[a].HospitalName < report.ByHospital[b].HospitalName
	})
	report.TotalEarnings = roundCents(report.TotalEarnings)
	return report, nil
}

// HospitalReport summarises a hospital's departments, doctors and revenue.
func (s *Service) HospitalReport(hospitalID string) (*HospitalReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.store.hospital(hospitalID)
	if !ok {
		return nil, ErrHospitalNotFound
	}

	report := &HospitalReport{
		Hospital:    h,
		Departments: []Department{},
		Doctors:     []DoctorSummary{},
	}
	for _, d := range s.store.data.Departments {
		if d.HospitalID == hospitalID {
			report.Departments = append(report.Departments, d)
		}
	}
	for _, d := range s.store.data.Doctors {
		ai, ok := d.association(hospitalID)
		if !ok {
			continue
		}
		a := d.Hospitals[ai]
		summary := DoctorSummary{
			DoctorID:        d.ID,
			Name:            d.Name,
			ConsultationFee: a.ConsultationFee,
			Slots:           len(a.Availability),
		}
		for _, slot := range a.Availability {
			if s.store.slotTaken(d.ID, hospitalID, slot.Date, slot.Time) {
				summary.BookedSlots++
			}
		}
		report.Doctors = append(report.Doctors, summary)
	}
	for _, a := range s.store.data.Appointments {
		if a.HospitalID != hospitalID || a.Status != StatusBooked {
			continue
		}
		report.TotalAppointments++
		report.TotalRevenue += a.ConsultationFee
	}
	report.HospitalEarnings = roundCents(report.TotalRevenue * HospitalShare)
	report.TotalRevenue = roundCents(report.TotalRevenue)
	return report, nil
}

func (s *Service) hospitalName(id string) string {
	if h, ok := s.store.hospital(id); ok {
		return h.Name
	}
	return unknownHospital
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
