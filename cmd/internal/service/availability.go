package service

import (
	"errors"
	"fmt"

	"bookline/cmd/internal/metrics"
	"bookline/cmd/internal/slot"
)

var ErrNoAvailability = errors.New("no free slot within the search horizon")

// scanBatchSize is how many occupied slots one repository query covers
// during a nearest-free scan. Two fully booked days fit in one batch.
const scanBatchSize = 96

// AvailabilityIndex answers slot occupancy queries against the current
// appointment set. It holds no state of its own; every query reads the
// store, so the projection can never drift from the committed rows.
type AvailabilityIndex struct {
	Repo        AppointmentRepository
	HorizonDays int
}

func NewAvailabilityIndex(repo AppointmentRepository, horizonDays int) *AvailabilityIndex {
	return &AvailabilityIndex{Repo: repo, HorizonDays: horizonDays}
}

func (a *AvailabilityIndex) IsTaken(s slot.Slot) (bool, error) {
	appt, err := a.Repo.FindBySlot(s)
	if err != nil {
		return false, err
	}
	return appt != nil, nil
}

// FindNearestFree returns the first free slot at or after start. A free
// start is returned unchanged. The walk is bounded by the horizon; past
// it the scan fails with ErrNoAvailability rather than spin forever on a
// pathologically booked calendar.
//
// Occupied slots are read in sorted batches so a fully booked stretch
// costs one query per scanBatchSize slots instead of one per grid step.
func (a *AvailabilityIndex) FindNearestFree(start slot.Slot) (slot.Slot, error) {
	horizon := start.AddDays(a.HorizonDays)
	cur := start
	steps := 0

	for {
		appts, err := a.Repo.FindFrom(cur, scanBatchSize)
		if err != nil {
			return slot.Slot{}, err
		}

		occupied := make(map[string]struct{}, len(appts))
		for _, appt := range appts {
			occupied[appt.Date+" "+appt.Time] = struct{}{}
		}

		// A partial batch covers every occupied slot from cur onward;
		// a full one only up to its last row.
		var covered slot.Slot
		full := len(appts) == scanBatchSize
		if full {
			last := appts[len(appts)-1]
			covered, err = slot.Normalize(last.Date, last.Time)
			if err != nil {
				return slot.Slot{}, fmt.Errorf("stored slot %s %s: %w", last.Date, last.Time, err)
			}
		}

		for {
			if !cur.Before(horizon) {
				return slot.Slot{}, ErrNoAvailability
			}
			if full && cur.After(covered) {
				break // past this batch's knowledge, refetch from cur
			}
			if _, taken := occupied[cur.String()]; !taken {
				metrics.ResolutionSteps.Observe(float64(steps))
				return cur, nil
			}
			cur = cur.Next()
			steps++
		}
	}
}
