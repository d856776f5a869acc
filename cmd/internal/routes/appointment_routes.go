package routes

import (
	"net/http"
	"strings"

	"bookline/cmd/internal/service"
	"bookline/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
)

type BookingService interface {
	CreateBooking(req *service.BookingRequest) (*service.BookingResult, apierror.ErrorResponse)
	GetUserAppointment(userID string) (*service.AppointmentResponse, apierror.ErrorResponse)
}

type DefaultAppointmentRoute struct {
	BookingService BookingService
}

func NewAppointmentDefault(bookingService BookingService) *DefaultAppointmentRoute {
	return &DefaultAppointmentRoute{BookingService: bookingService}
}

// CreateAppointment handles POST /appointment. Every terminal booking
// outcome is a 200 disambiguated by its message, matching the contract
// voice clients already depend on; only validation and allocation
// failures surface as error statuses.
func (a *DefaultAppointmentRoute) CreateAppointment(c echo.Context) error {
	var req service.BookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	result, apierr := a.BookingService.CreateBooking(&req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	switch result.Outcome {
	case service.OutcomeAlreadyBooked:
		return c.JSON(http.StatusOK, echo.Map{
			"message":     "User already has an appointment",
			"appointment": result.Appointment,
		})

	case service.OutcomeSlotSuggested:
		return c.JSON(http.StatusOK, echo.Map{
			"message":        "The requested time slot is already taken. Suggested nearest available slot:",
			"suggested_date": result.SuggestedDate,
			"suggested_time": result.SuggestedTime,
		})

	default:
		return c.JSON(http.StatusOK, echo.Map{
			"message":     "Appointment created",
			"appointment": result.Appointment,
		})
	}
}

func (a *DefaultAppointmentRoute) GetAppointment(c echo.Context) error {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("user_id"))
	}

	appt, apierr := a.BookingService.GetUserAppointment(userID)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"appointment": appt}
	return c.JSON(http.StatusOK, &resp)
}
