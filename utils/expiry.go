package utils

import "time"

// Expiry statuses for insurance policies and cards.
const (
	ExpiryMissing  = "missing"
	ExpiryExpired  = "expired"
	ExpiryExpiring = "expiring"
	ExpiryValid    = "valid"
)

// Review statuses for RAMS and risk assessments.
const (
	ReviewNotSet  = "not_set"
	ReviewOverdue = "overdue"
	ReviewDueSoon = "due_soon"
	ReviewCurrent = "current"
)

// Due statuses for the recurring health questionnaire.
const (
	DueNow     = "due"
	DueSoon    = "due_soon"
	DueCurrent = "current"
)

// ExpiryResult is the outcome of a date-window classification. DaysRemaining
// is nil when there is no date.
type ExpiryResult struct {
	Status        string     `json:"status"`
	Date          *time.Time `json:"date,omitempty"`
	DaysRemaining *int       `json:"days_remaining,omitempty"`
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysUntil counts whole calendar days from now to target; negative when target has passed.
func DaysUntil(target, now time.Time) int {
	return int(DateOnly(target).Sub(DateOnly(now)).Hours() / 24)
}

// ClassifyExpiry buckets an expiry date relative to now. An expiry falling
// today is expiring (0 days left), not expired.
func ClassifyExpiry(expiry *time.Time, now time.Time, warnDays int) ExpiryResult {
	if expiry == nil || expiry.IsZero() {
		return ExpiryResult{Status: ExpiryMissing}
	}
	days := DaysUntil(*expiry, now)
	res := ExpiryResult{Date: expiry, DaysRemaining: &days}
	switch {
	case days < 0:
		res.Status = ExpiryExpired
	case days <= warnDays:
		res.Status = ExpiryExpiring
	default:
		res.Status = ExpiryValid
	}
	return res
}

// ClassifyReview buckets a review date: overdue, due_soon, current or not_set.
func ClassifyReview(review *time.Time, now time.Time, warnDays int) ExpiryResult {
	res := ClassifyExpiry(review, now, warnDays)
	switch res.Status {
	case ExpiryMissing:
		res.Status = ReviewNotSet
	case ExpiryExpired:
		res.Status = ReviewOverdue
	case ExpiryExpiring:
		res.Status = ReviewDueSoon
	default:
		res.Status = ReviewCurrent
	}
	return res
}

// ClassifyDue buckets the next-due date of a recurring task. Never done or
// past the date is due.
func ClassifyDue(nextDue *time.Time, now time.Time, warnDays int) ExpiryResult {
	res := ClassifyExpiry(nextDue, now, warnDays)
	switch res.Status {
	case ExpiryMissing, ExpiryExpired:
		res.Status = DueNow
	case ExpiryExpiring:
		if res.DaysRemaining != nil && *res.DaysRemaining == 0 {
			res.Status = DueNow
		} else {
			res.Status = DueSoon
		}
	default:
		res.Status = DueCurrent
	}
	return res
}

var expirySeverity = map[string]int{
	ExpiryMissing:  0,
	ExpiryExpired:  1,
	ExpiryExpiring: 2,
	ExpiryValid:    3,
}

// WorstExpiry returns the most severe status (missing < expired < expiring < valid).
func WorstExpiry(statuses ...string) string {
	worst := ExpiryValid
	for _, s := range statuses {
		if sev, ok := expirySeverity[s]; ok && sev < expirySeverity[worst] {
			worst = s
		}
	}
	return worst
}
