// Package ivr is the boundary to the voice layer. The telephony side
// owns speech recognition and intent extraction; what arrives here is
// already a structured intent, and the dispatcher feeds it through the
// same booking entry point the HTTP surface uses.
package ivr

import (
	"fmt"
	"net/http"

	"bookline/cmd/internal/service"
	"bookline/cmd/internal/utils/apierror"

	"github.com/google/uuid"
)

const IntentScheduleAppointment = "schedule_appointment"

// Intent is one recognized conversational turn. Parameters carry the
// entity values the speech layer extracted (user_id, date, time).
type Intent struct {
	SessionID  string            `json:"session_id"`
	Name       string            `json:"intent"`
	Parameters map[string]string `json:"parameters"`
}

// Reply is what the voice layer speaks back to the caller.
type Reply struct {
	SessionID string `json:"session_id"`
	Speech    string `json:"speech"`
}

type BookingService interface {
	CreateBooking(req *service.BookingRequest) (*service.BookingResult, apierror.ErrorResponse)
}

type Dispatcher struct {
	Booking BookingService
}

func NewDispatcher(booking BookingService) *Dispatcher {
	return &Dispatcher{Booking: booking}
}

// Dispatch routes an intent to the booking service and phrases the
// outcome as speech. Invalid slot utterances become a clarifying prompt
// rather than an error: a caller mid-conversation can only be helped by
// being asked again.
func (d *Dispatcher) Dispatch(intent *Intent) (*Reply, apierror.ErrorResponse) {
	sessionID := intent.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	switch intent.Name {
	case IntentScheduleAppointment:
		return d.scheduleAppointment(sessionID, intent.Parameters)
	default:
		return &Reply{
			SessionID: sessionID,
			Speech:    "Sorry, I can only help with booking appointments right now.",
		}, nil
	}
}

func (d *Dispatcher) scheduleAppointment(sessionID string, params map[string]string) (*Reply, apierror.ErrorResponse) {
	req := &service.BookingRequest{
		UserID: params["user_id"],
		Date:   params["date"],
		Time:   params["time"],
	}

	result, apierr := d.Booking.CreateBooking(req)
	if apierr != nil {
		if apierr.Code() == http.StatusBadRequest {
			return &Reply{
				SessionID: sessionID,
				Speech:    "I didn't catch a valid date and time. Please say them again, on the hour or half hour.",
			}, nil
		}
		return nil, apierr
	}

	var speech string
	switch result.Outcome {
	case service.OutcomeAlreadyBooked:
		speech = fmt.Sprintf("You already have an appointment on %s at %s.",
			result.Appointment.Date, result.Appointment.Time)
	case service.OutcomeSlotSuggested:
		speech = fmt.Sprintf("That time is taken. The nearest available slot is %s at %s. Would you like it?",
			result.SuggestedDate, result.SuggestedTime)
	default:
		speech = fmt.Sprintf("Your appointment is booked for %s at %s.",
			result.Appointment.Date, result.Appointment.Time)
	}

	return &Reply{SessionID: sessionID, Speech: speech}, nil
}
