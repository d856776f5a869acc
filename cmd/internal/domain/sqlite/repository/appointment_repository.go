package repository

import (
	"errors"
	"strings"

	"bookline/cmd/internal/domain/entity"
	"bookline/cmd/internal/slot"

	"gorm.io/gorm"
)

type DefaultAppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *DefaultAppointmentRepository {
	return &DefaultAppointmentRepository{db: db}
}

func (a *DefaultAppointmentRepository) FindByUser(userID string) (*entity.Appointment, error) {
	var appt entity.Appointment
	err := a.db.Where("user_id = ?", userID).First(&appt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (a *DefaultAppointmentRepository) FindBySlot(s slot.Slot) (*entity.Appointment, error) {
	var appt entity.Appointment
	err := a.db.Where("date = ? AND time = ?", s.DateString(), s.TimeString()).First(&appt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

// FindFrom returns up to limit occupied slots at or after s, in slot order.
// This method returns PARTIAL appointment entities, having only the `Date`
// and `Time` fields.
func (a *DefaultAppointmentRepository) FindFrom(s slot.Slot, limit int) ([]*entity.Appointment, error) {
	var results []*entity.Appointment

	d, t := s.DateString(), s.TimeString()
	err := a.db.Model(&entity.Appointment{}).
		Select("date, time").
		Where("date > ? OR (date = ? AND time >= ?)", d, d, t).
		Order("date asc, time asc").
		Limit(limit).
		Find(&results).Error

	if err != nil {
		return nil, err
	}
	return results, nil
}

// Insert persists a new appointment. The unique indexes on user_id and
// (date, time) are the authoritative uniqueness guard: a violation is
// reported as ErrDuplicateUser or ErrDuplicateSlot so the caller can
// recover from a lost race instead of pre-checking.
func (a *DefaultAppointmentRepository) Insert(appt *entity.Appointment) error {
	err := a.db.Create(appt).Error
	if err == nil {
		return nil
	}

	// SQLite names the violated columns, e.g.
	// "UNIQUE constraint failed: appointments.user_id".
	msg := err.Error()
	switch {
	case strings.Contains(msg, "appointments.user_id"):
		return entity.ErrDuplicateUser
	case strings.Contains(msg, "appointments.date"):
		return entity.ErrDuplicateSlot
	}
	return err
}
