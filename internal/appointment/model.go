package appointment

import (
	"strings"
	"time"
)

type AppointmentStatus string

const (
	StatusBooked AppointmentStatus = "booked"
)

// ID prefixes, one counter each.
const (
	PrefixHospital    = "HOSP"
	PrefixDepartment  = "DEPT"
	PrefixDoctor      = "DOC"
	PrefixPatient     = "PAT"
	PrefixAppointment = "APT"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type Hospital struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

type Department struct {
	ID         string `json:"id"`
	HospitalID string `json:"hospitalId"`
	Name       string `json:"name"`
}

type Doctor struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Qualifications  string        `json:"qualifications"`
	Specializations []string      `json:"specializations"`
	Experience      int           `json:"experience"`
	Hospitals       []Association `json:"hospitals"`
}

// Association is a doctor's engagement with one hospital.
type Association struct {
	HospitalID      string   `json:"hospitalId"`
	ConsultationFee float64  `json:"consultationFee"`
	Availability    []Slot   `json:"availability"`
	Specializations []string `json:"specializations"`
}

type Slot struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	IsBooked bool   `json:"isBooked"`
}

type Patient struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Gender   string `json:"gender"`
	DOB      string `json:"dob"`
	UniqueID string `json:"uniqueId"`
}

type Appointment struct {
	ID              string            `json:"id"`
	PatientID       string            `json:"patientId"`
	DoctorID        string            `json:"doctorId"`
	HospitalID      string            `json:"hospitalId"`
	Date            string            `json:"date"`
	Time            string            `json:"time"`
	ConsultationFee float64           `json:"consultationFee"`
	Status          AppointmentStatus `json:"status"`
	BookingDate     string            `json:"bookingDate"`
}

type EventLog struct {
	ID        int64
	EventType string
	EntityID  string
	Payload   []byte
	CreatedAt time.Time
}

// SameSlot reports whether two slots share (date, time).
func (s Slot) SameSlot(o Slot) bool {
	return s.Date == o.Date && s.Time == o.Time
}

// Start is the slot's wall-clock start, used for ordering.
// Malformed values sort as the zero time.
func (s Slot) Start() time.Time {
	t, _ := time.Parse(DateLayout+" "+TimeLayout, s.Date+" "+s.Time)
	return t
}

func (d *Doctor) association(hospitalID string) (int, bool) {
	for i, a := range d.Hospitals {
		if a.HospitalID == hospitalID {
			return i, true
		}
	}
	return -1, false
}

// HasSpecialization matches case-insensitively.
func (d *Doctor) HasSpecialization(name string) bool {
	for _, s := range d.Specializations {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

func (a Appointment) occupies(doctorID, hospitalID, date, clock string) bool {
	return a.Status == StatusBooked &&
		a.DoctorID == doctorID &&
		a.HospitalID == hospitalID &&
		a.Date == date &&
		a.Time == clock
}

func cloneDoctor(d Doctor) Doctor {
	out := d
	out.Specializations = cloneStrings(d.Specializations)
	out.Hospitals = make([]Association, len(d.Hospitals))
	for i, a := range d.Hospitals {
		out.Hospitals[i] = cloneAssociation(a)
	}
	return out
}

func cloneAssociation(a Association) Association {
	out := a
	out.Availability = make([]Slot, len(a.Availability))
	copy(out.Availability, a.Availability)
	out.Specializations = cloneStrings(a.Specializations)
	return out
}

func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// mergeSpecializations unions b into a, dropping blanks and case-insensitive
// duplicates while keeping the first spelling seen.
func mergeSpecializations(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			k := strings.ToLower(s)
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
