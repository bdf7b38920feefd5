package usecase

import (
	"time"

	"NewsDigest/internal/domain"
)

// SelectEligible returns the pending records published on or after the
// calendar date of now in loc minus windowDays, in load order.
func SelectEligible(records []domain.Record, now time.Time, windowDays int, loc *time.Location) []domain.Record {
	cutoff := WindowStart(now, windowDays, loc)

	var eligible []domain.Record
	for _, rec := range records {
		if !rec.IsPending() || !rec.Valid() {
			continue
		}
		if rec.Published.Before(cutoff) {
			continue
		}
		eligible = append(eligible, rec)
	}
	return eligible
}

// WindowStart is the inclusive lower edge of the eligibility window.
func WindowStart(now time.Time, windowDays int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -windowDays)
}
