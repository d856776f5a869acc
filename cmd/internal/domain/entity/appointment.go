package entity

import "errors"

// Insert failures caused by the uniqueness indexes below. The repository
// maps driver constraint violations onto these so callers can tell which
// invariant lost a race.
var (
	ErrDuplicateUser = errors.New("user already owns an appointment")
	ErrDuplicateSlot = errors.New("slot is already booked")
)

// Appointment is one booked slot. Date and Time carry the wire formats
// "YYYY-MM-DD" and "HH:MM"; lexicographic order on (Date, Time) matches
// chronological order, which the slot range queries rely on.
type Appointment struct {
	ID        int    `gorm:"primaryKey"`
	UserID    string `gorm:"not null;uniqueIndex:idx_appointments_user"`
	Date      string `gorm:"not null;uniqueIndex:idx_appointments_slot"`
	Time      string `gorm:"not null;uniqueIndex:idx_appointments_slot"`
	CreatedAt int64  `gorm:"not null"`
}
