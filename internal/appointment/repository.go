package appointment

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrHospitalNotFound     = errors.New("hospital not found")
	ErrDoctorNotFound       = errors.New("doctor not found")
	ErrPatientNotFound      = errors.New("patient not found")
	ErrDuplicateDepartment  = errors.New("department already exists in this hospital")
	ErrNoMatchingDepartment = errors.New("doctor's specializations do not match any department of the hospital")
	ErrSlotConflict         = errors.New("slot conflicts with another hospital association")
	ErrDuplicateSlot        = errors.New("slot is listed more than once")
	ErrSlotAlreadyBooked    = errors.New("slot already booked")
	ErrSlotBeingBooked      = errors.New("slot is currently being booked, please retry")
	ErrSlotNotOffered       = errors.New("doctor does not offer this slot at this hospital")
	ErrInvalidFee           = errors.New("consultation fee must be a non-negative number")
)

// SlotConflictError names the slot and the other hospital it collides with.
type SlotConflictError struct {
	Slot         Slot
	DoctorName   string
	HospitalID   string
	HospitalName string
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("conflicting slot: %s at %s is already set for %s at %s",
		e.Slot.Date, e.Slot.Time, e.DoctorName, e.HospitalName)
}

func (e *SlotConflictError) Unwrap() error { return ErrSlotConflict }

// EventRepository records domain events for auditing.
type EventRepository interface {
	InsertEvent(ctx context.Context, ev EventLog) error
}
