package service

import (
	"errors"

	"bookline/cmd/internal/domain/entity"
	"bookline/cmd/internal/metrics"
	"bookline/cmd/internal/slot"
	"bookline/cmd/internal/utils"
	"bookline/cmd/internal/utils/apierror"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
)

type AppointmentRepository interface {
	FindByUser(userID string) (*entity.Appointment, error)
	FindBySlot(s slot.Slot) (*entity.Appointment, error)
	FindFrom(s slot.Slot, limit int) ([]*entity.Appointment, error)
	Insert(appointment *entity.Appointment) error
}

type BookingRequest struct {
	UserID string `json:"user_id" validate:"required,max=80"`
	Date   string `json:"date" validate:"required,slotdate"`
	Time   string `json:"time" validate:"required,slottime"`
}

type AppointmentResponse struct {
	ID     int    `json:"id"`
	UserID string `json:"user_id"`
	Date   string `json:"date"`
	Time   string `json:"time"`
}

// Outcome is the terminal state of a booking request. All three are
// successes on the wire; only validation and allocation failures are
// reported as errors.
type Outcome string

const (
	OutcomeCreated       Outcome = "created"
	OutcomeAlreadyBooked Outcome = "already_booked"
	OutcomeSlotSuggested Outcome = "slot_suggested"
)

type BookingResult struct {
	Outcome       Outcome
	Appointment   *AppointmentResponse
	SuggestedDate string
	SuggestedTime string
}

type DefaultBookingService struct {
	AppointmentRepo AppointmentRepository
	Availability    *AvailabilityIndex
	Validate        *validator.Validate
	CommitRetries   int
}

func NewBookingService(apptRepo AppointmentRepository, validate *validator.Validate, horizonDays, commitRetries int) *DefaultBookingService {
	return &DefaultBookingService{
		AppointmentRepo: apptRepo,
		Availability:    NewAvailabilityIndex(apptRepo, horizonDays),
		Validate:        validate,
		CommitRetries:   commitRetries,
	}
}

// CreateBooking runs one booking request to a terminal outcome:
//
//  1. validate the request;
//  2. a user with an existing appointment gets it back unchanged;
//  3. a taken slot yields the nearest free slot as a suggestion, without
//     committing anything - the caller must re-submit for the suggested
//     slot;
//  4. otherwise the slot is committed. The insert's uniqueness indexes
//     are the authoritative guard: losing a slot race loops back to
//     step 3, so the loser is answered with a suggestion, never a
//     silent booking of a slot they did not ask for.
//
// The commit loop is bounded; exhausting it reports the booking as
// unavailable rather than spinning under pathological contention.
func (b *DefaultBookingService) CreateBooking(req *BookingRequest) (*BookingResult, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if valerr := b.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	requested, err := slot.Normalize(req.Date, req.Time)
	if err != nil {
		return nil, apierror.MalformedSlotError
	}

	existing, err := b.AppointmentRepo.FindByUser(req.UserID)
	if err != nil {
		log.Errorf("failed to look up appointment for user %s: %v", req.UserID, err)
		return nil, apierror.InternalServerError
	}
	if existing != nil {
		return b.alreadyBooked(existing), nil
	}

	for attempt := 0; attempt < b.CommitRetries; attempt++ {
		occupant, err := b.AppointmentRepo.FindBySlot(requested)
		if err != nil {
			log.Errorf("failed to check slot %s: %v", requested, err)
			return nil, apierror.InternalServerError
		}
		if occupant != nil {
			if occupant.UserID == req.UserID {
				return b.alreadyBooked(occupant), nil
			}
			return b.suggestFrom(requested.Next())
		}

		appt := &entity.Appointment{
			UserID:    req.UserID,
			Date:      requested.DateString(),
			Time:      requested.TimeString(),
			CreatedAt: utils.NowUTC(),
		}

		err = b.AppointmentRepo.Insert(appt)
		if err == nil {
			metrics.BookingsTotal.WithLabelValues(string(OutcomeCreated)).Inc()
			return &BookingResult{Outcome: OutcomeCreated, Appointment: toAppointmentResponse(appt)}, nil
		}

		switch {
		case errors.Is(err, entity.ErrDuplicateUser):
			// Lost a same-user race; answer with whatever got stored.
			winner, ferr := b.AppointmentRepo.FindByUser(req.UserID)
			if ferr != nil {
				log.Errorf("failed to re-read appointment for user %s: %v", req.UserID, ferr)
				return nil, apierror.InternalServerError
			}
			if winner == nil {
				continue
			}
			return b.alreadyBooked(winner), nil

		case errors.Is(err, entity.ErrDuplicateSlot):
			// Lost the slot race between check and insert. The next
			// iteration re-checks the slot and resolves a suggestion
			// from the step after it.
			log.Warnf("slot %s lost to a concurrent booking, re-resolving", requested)
			metrics.CommitRetries.Inc()

		default:
			log.Errorf("failed to save appointment for user %s: %v", req.UserID, err)
			return nil, apierror.InternalServerError
		}
	}

	metrics.BookingsTotal.WithLabelValues("unavailable").Inc()
	return nil, apierror.BookingUnavailableError
}

// GetUserAppointment returns the user's active appointment, if any.
func (b *DefaultBookingService) GetUserAppointment(userID string) (*AppointmentResponse, apierror.ErrorResponse) {
	appt, err := b.AppointmentRepo.FindByUser(userID)
	if err != nil {
		log.Errorf("failed to look up appointment for user %s: %v", userID, err)
		return nil, apierror.InternalServerError
	}
	if appt == nil {
		return nil, apierror.NotFoundError
	}
	return toAppointmentResponse(appt), nil
}

func (b *DefaultBookingService) alreadyBooked(appt *entity.Appointment) *BookingResult {
	metrics.BookingsTotal.WithLabelValues(string(OutcomeAlreadyBooked)).Inc()
	return &BookingResult{Outcome: OutcomeAlreadyBooked, Appointment: toAppointmentResponse(appt)}
}

func (b *DefaultBookingService) suggestFrom(start slot.Slot) (*BookingResult, apierror.ErrorResponse) {
	suggestion, err := b.Availability.FindNearestFree(start)
	if errors.Is(err, ErrNoAvailability) {
		metrics.BookingsTotal.WithLabelValues("no_availability").Inc()
		return nil, apierror.NoAvailabilityError
	}
	if err != nil {
		log.Errorf("failed to resolve a free slot from %s: %v", start, err)
		return nil, apierror.InternalServerError
	}

	metrics.BookingsTotal.WithLabelValues(string(OutcomeSlotSuggested)).Inc()
	return &BookingResult{
		Outcome:       OutcomeSlotSuggested,
		SuggestedDate: suggestion.DateString(),
		SuggestedTime: suggestion.TimeString(),
	}, nil
}

func toAppointmentResponse(appt *entity.Appointment) *AppointmentResponse {
	return &AppointmentResponse{
		ID:     appt.ID,
		UserID: appt.UserID,
		Date:   appt.Date,
		Time:   appt.Time,
	}
}
