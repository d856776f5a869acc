package validators

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Register wires the booking-specific validators into a validator instance.
func Register(validate *validator.Validate) {
	_ = validate.RegisterValidation("slotdate", IsSlotDate)
	_ = validate.RegisterValidation("slottime", IsSlotTime)
}

// IsSlotDate accepts calendar dates in the "YYYY-MM-DD" wire format.
func IsSlotDate(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01-02", fl.Field().String())
	return err == nil
}

// IsSlotTime accepts "HH:MM" times that fall on the half-hour grid.
func IsSlotTime(fl validator.FieldLevel) bool {
	t, err := time.Parse("15:04", fl.Field().String())
	if err != nil {
		return false
	}
	return t.Minute()%30 == 0
}
