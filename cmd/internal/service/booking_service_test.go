package service_test

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"bookline/cmd/internal/domain/entity"
	"bookline/cmd/internal/domain/sqlite"
	"bookline/cmd/internal/domain/sqlite/repository"
	"bookline/cmd/internal/service"
	"bookline/cmd/internal/slot"
	"bookline/cmd/internal/utils/apierror"
	"bookline/cmd/internal/utils/validators"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New()
	validators.Register(v)
	return v
}

func setup(t *testing.T) (*service.DefaultBookingService, *repository.DefaultAppointmentRepository) {
	t.Helper()
	db, err := sqlite.Init(":memory:")
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	repo := repository.NewAppointmentRepository(db)
	return service.NewBookingService(repo, newValidator(), 365, 16), repo
}

func mustSlot(t *testing.T, date, clock string) slot.Slot {
	t.Helper()
	s, err := slot.Normalize(date, clock)
	if err != nil {
		t.Fatalf("normalize %s %s: %v", date, clock, err)
	}
	return s
}

func seed(t *testing.T, repo *repository.DefaultAppointmentRepository, userID, date, clock string) {
	t.Helper()
	if err := repo.Insert(&entity.Appointment{UserID: userID, Date: date, Time: clock}); err != nil {
		t.Fatalf("seed %s %s %s: %v", userID, date, clock, err)
	}
}

func seedFullDay(t *testing.T, repo *repository.DefaultAppointmentRepository, date, userPrefix string) {
	t.Helper()
	s := mustSlot(t, date, "00:00")
	for i := 0; i < slot.StepsPerDay; i++ {
		seed(t, repo, fmt.Sprintf("%s-%02d", userPrefix, i), s.DateString(), s.TimeString())
		s = s.Next()
	}
}

func book(t *testing.T, svc *service.DefaultBookingService, userID, date, clock string) *service.BookingResult {
	t.Helper()
	result, apierr := svc.CreateBooking(&service.BookingRequest{UserID: userID, Date: date, Time: clock})
	if apierr != nil {
		t.Fatalf("book %s %s %s: %v", userID, date, clock, apierr)
	}
	return result
}

func TestDirectBooking(t *testing.T) {
	svc, repo := setup(t)

	result := book(t, svc, "u1", "2024-01-01", "09:00")

	if result.Outcome != service.OutcomeCreated {
		t.Fatalf("outcome = %s, want created", result.Outcome)
	}
	if result.Appointment.Date != "2024-01-01" || result.Appointment.Time != "09:00" {
		t.Fatalf("appointment slot = %s %s", result.Appointment.Date, result.Appointment.Time)
	}

	stored, err := repo.FindBySlot(mustSlot(t, "2024-01-01", "09:00"))
	if err != nil || stored == nil || stored.UserID != "u1" {
		t.Fatalf("stored = %+v, %v; want u1's appointment", stored, err)
	}
}

func TestSecondBookingReturnsExistingAppointment(t *testing.T) {
	svc, _ := setup(t)

	first := book(t, svc, "u1", "2024-01-01", "09:00")
	second := book(t, svc, "u1", "2024-01-01", "10:00")

	if second.Outcome != service.OutcomeAlreadyBooked {
		t.Fatalf("outcome = %s, want already_booked", second.Outcome)
	}
	if second.Appointment.ID != first.Appointment.ID {
		t.Fatalf("returned appointment id %d, want original %d", second.Appointment.ID, first.Appointment.ID)
	}
	if second.Appointment.Time != "09:00" {
		t.Fatalf("returned slot %s, want the original 09:00", second.Appointment.Time)
	}
}

func TestConflictSuggestsNextSlotWithoutBooking(t *testing.T) {
	svc, repo := setup(t)
	book(t, svc, "u1", "2024-01-01", "09:00")

	result := book(t, svc, "u2", "2024-01-01", "09:00")

	if result.Outcome != service.OutcomeSlotSuggested {
		t.Fatalf("outcome = %s, want slot_suggested", result.Outcome)
	}
	if result.SuggestedDate != "2024-01-01" || result.SuggestedTime != "09:30" {
		t.Fatalf("suggested %s %s, want 2024-01-01 09:30", result.SuggestedDate, result.SuggestedTime)
	}

	// The suggestion must not have committed anything for u2.
	appt, err := repo.FindByUser("u2")
	if err != nil || appt != nil {
		t.Fatalf("u2 appointment = %+v, %v; want none", appt, err)
	}
}

func TestSuggestionRollsOverToNextDay(t *testing.T) {
	svc, repo := setup(t)
	seedFullDay(t, repo, "2024-01-01", "seed")

	result := book(t, svc, "late", "2024-01-01", "23:00")

	if result.Outcome != service.OutcomeSlotSuggested {
		t.Fatalf("outcome = %s, want slot_suggested", result.Outcome)
	}
	if result.SuggestedDate != "2024-01-02" || result.SuggestedTime != "00:00" {
		t.Fatalf("suggested %s %s, want 2024-01-02 00:00", result.SuggestedDate, result.SuggestedTime)
	}
}

func TestValidation(t *testing.T) {
	svc, _ := setup(t)

	tests := []struct {
		name string
		req  service.BookingRequest
	}{
		{"missing user", service.BookingRequest{Date: "2024-01-01", Time: "09:00"}},
		{"blank user", service.BookingRequest{UserID: "   ", Date: "2024-01-01", Time: "09:00"}},
		{"missing date", service.BookingRequest{UserID: "u1", Time: "09:00"}},
		{"off-grid time", service.BookingRequest{UserID: "u1", Date: "2024-01-01", Time: "09:15"}},
		{"bad date", service.BookingRequest{UserID: "u1", Date: "2024-13-01", Time: "09:00"}},
		{"bad time", service.BookingRequest{UserID: "u1", Date: "2024-01-01", Time: "9 o'clock"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, apierr := svc.CreateBooking(&tt.req)
			if apierr == nil {
				t.Fatalf("expected validation error, got %+v", result)
			}
			if apierr.Code() != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", apierr.Code())
			}
		})
	}
}

func TestRequestFieldsAreTrimmed(t *testing.T) {
	svc, repo := setup(t)

	result, apierr := svc.CreateBooking(&service.BookingRequest{
		UserID: "  u1  ",
		Date:   " 2024-01-01 ",
		Time:   " 09:00 ",
	})
	if apierr != nil {
		t.Fatalf("unexpected error: %v", apierr)
	}
	if result.Outcome != service.OutcomeCreated {
		t.Fatalf("outcome = %s, want created", result.Outcome)
	}

	stored, err := repo.FindByUser("u1")
	if err != nil || stored == nil {
		t.Fatalf("stored = %+v, %v; want trimmed user id", stored, err)
	}
}

func TestGetUserAppointment(t *testing.T) {
	svc, _ := setup(t)
	book(t, svc, "u1", "2024-01-01", "09:00")

	appt, apierr := svc.GetUserAppointment("u1")
	if apierr != nil {
		t.Fatalf("unexpected error: %v", apierr)
	}
	if appt.Date != "2024-01-01" || appt.Time != "09:00" {
		t.Fatalf("appointment = %+v", appt)
	}

	_, apierr = svc.GetUserAppointment("nobody")
	if apierr == nil || apierr.Code() != http.StatusNotFound {
		t.Fatalf("err = %v, want 404", apierr)
	}
}

func TestFindNearestFreeIdentityOnFreeSlot(t *testing.T) {
	svc, _ := setup(t)

	start := mustSlot(t, "2024-01-01", "09:00")
	got, err := svc.Availability.FindNearestFree(start)
	if err != nil {
		t.Fatalf("find nearest free: %v", err)
	}
	if !got.Equal(start) {
		t.Fatalf("free start moved: got %s, want %s", got, start)
	}
}

func TestFindNearestFreeReturnsMinimumFreeSlot(t *testing.T) {
	svc, repo := setup(t)
	seed(t, repo, "a", "2024-01-01", "09:00")
	seed(t, repo, "b", "2024-01-01", "09:30")
	seed(t, repo, "c", "2024-01-01", "10:30") // gap at 10:00

	got, err := svc.Availability.FindNearestFree(mustSlot(t, "2024-01-01", "09:00"))
	if err != nil {
		t.Fatalf("find nearest free: %v", err)
	}
	if got.String() != "2024-01-01 10:00" {
		t.Fatalf("got %s, want the first gap 2024-01-01 10:00", got)
	}

	taken, terr := svc.Availability.IsTaken(got)
	if terr != nil || taken {
		t.Fatalf("returned slot is occupied (taken=%v, err=%v)", taken, terr)
	}
}

func TestFindNearestFreeCrossesBatchBoundary(t *testing.T) {
	svc, repo := setup(t)
	// Three fully booked days: more occupied slots than one scan batch.
	seedFullDay(t, repo, "2024-01-01", "d1")
	seedFullDay(t, repo, "2024-01-02", "d2")
	seedFullDay(t, repo, "2024-01-03", "d3")

	got, err := svc.Availability.FindNearestFree(mustSlot(t, "2024-01-01", "00:00"))
	if err != nil {
		t.Fatalf("find nearest free: %v", err)
	}
	if got.String() != "2024-01-04 00:00" {
		t.Fatalf("got %s, want 2024-01-04 00:00", got)
	}
}

func TestFindNearestFreeHonorsHorizon(t *testing.T) {
	_, repo := setup(t)
	seedFullDay(t, repo, "2024-01-01", "full")

	index := service.NewAvailabilityIndex(repo, 1)
	_, err := index.FindNearestFree(mustSlot(t, "2024-01-01", "00:00"))
	if !errors.Is(err, service.ErrNoAvailability) {
		t.Fatalf("err = %v, want ErrNoAvailability", err)
	}
}

func TestHorizonExhaustionSurfacesAsServerError(t *testing.T) {
	db, err := sqlite.Init(":memory:")
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	repo := repository.NewAppointmentRepository(db)
	svc := service.NewBookingService(repo, newValidator(), 1, 16)
	seedFullDay(t, repo, "2024-01-01", "d1")
	seedFullDay(t, repo, "2024-01-02", "d2")

	_, apierr := svc.CreateBooking(&service.BookingRequest{UserID: "u1", Date: "2024-01-01", Time: "12:00"})
	if apierr == nil || apierr.Code() != http.StatusServiceUnavailable {
		t.Fatalf("err = %v, want 503 no-availability", apierr)
	}
}

// flakyRepo simulates a commit that keeps losing slot races while the
// pre-check always sees the slot as free.
type flakyRepo struct{}

func (f *flakyRepo) FindByUser(string) (*entity.Appointment, error) { return nil, nil }

func (f *flakyRepo) FindBySlot(slot.Slot) (*entity.Appointment, error) { return nil, nil }

func (f *flakyRepo) FindFrom(slot.Slot, int) ([]*entity.Appointment, error) { return nil, nil }

func (f *flakyRepo) Insert(*entity.Appointment) error { return entity.ErrDuplicateSlot }

func TestCommitRetryBudgetExhaustion(t *testing.T) {
	svc := service.NewBookingService(&flakyRepo{}, newValidator(), 365, 4)

	_, apierr := svc.CreateBooking(&service.BookingRequest{UserID: "u1", Date: "2024-01-01", Time: "09:00"})
	if apierr == nil {
		t.Fatal("expected booking to fail after retry budget")
	}
	if apierr != apierror.BookingUnavailableError {
		t.Fatalf("err = %v, want BookingUnavailableError", apierr)
	}
}

func TestConcurrentRequestsForSameSlot(t *testing.T) {
	svc, repo := setup(t)

	results := make([]*service.BookingResult, 2)
	errs := make([]apierror.ErrorResponse, 2)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.CreateBooking(&service.BookingRequest{
				UserID: fmt.Sprintf("u%d", i),
				Date:   "2024-01-01",
				Time:   "09:00",
			})
		}(i)
	}
	wg.Wait()

	var created, suggested int
	for i := 0; i < 2; i++ {
		if errs[i] != nil {
			t.Fatalf("request %d failed: %v", i, errs[i])
		}
		switch results[i].Outcome {
		case service.OutcomeCreated:
			created++
		case service.OutcomeSlotSuggested:
			suggested++
			if results[i].SuggestedDate != "2024-01-01" || results[i].SuggestedTime != "09:30" {
				t.Fatalf("loser suggested %s %s, want 2024-01-01 09:30",
					results[i].SuggestedDate, results[i].SuggestedTime)
			}
		default:
			t.Fatalf("request %d outcome = %s", i, results[i].Outcome)
		}
	}
	if created != 1 || suggested != 1 {
		t.Fatalf("created = %d, suggested = %d; want exactly one of each", created, suggested)
	}

	// Exactly one row owns the slot.
	winner, err := repo.FindBySlot(mustSlot(t, "2024-01-01", "09:00"))
	if err != nil || winner == nil {
		t.Fatalf("winner = %+v, %v", winner, err)
	}
}

func TestConcurrentRequestsFromSameUser(t *testing.T) {
	svc, repo := setup(t)

	results := make([]*service.BookingResult, 2)
	errs := make([]apierror.ErrorResponse, 2)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.CreateBooking(&service.BookingRequest{
				UserID: "u1",
				Date:   "2024-01-01",
				Time:   "09:00",
			})
		}(i)
	}
	wg.Wait()

	var created, already int
	for i := 0; i < 2; i++ {
		if errs[i] != nil {
			t.Fatalf("request %d failed: %v", i, errs[i])
		}
		switch results[i].Outcome {
		case service.OutcomeCreated:
			created++
		case service.OutcomeAlreadyBooked:
			already++
		default:
			t.Fatalf("request %d outcome = %s", i, results[i].Outcome)
		}
	}
	if created != 1 || already != 1 {
		t.Fatalf("created = %d, already_booked = %d; want exactly one of each", created, already)
	}

	appt, err := repo.FindByUser("u1")
	if err != nil || appt == nil {
		t.Fatalf("u1 appointment = %+v, %v; want exactly one", appt, err)
	}
}
