// Package deadline computes statutory countdowns and the milestone ledger for
// a disputed tradeline. Everything here is a pure function of its inputs; the
// only error path is the documented insufficient-dates precondition.
package deadline

import (
	"errors"
	"math"
	"sort"
	"time"
)

// ErrInsufficientDates is returned when neither a date of first delinquency
// nor a charge-off date is available. Callers catch it and render an empty
// state; it is a precondition failure, not a defect.
var ErrInsufficientDates = errors.New("deadline: need a DOFD or charge-off date to build the tracker")

// Urgency tiers a countdown by days remaining.
type Urgency string

const (
	UrgencyExpired  Urgency = "expired"
	UrgencyCritical Urgency = "critical"
	UrgencyWarning  Urgency = "warning"
	UrgencyNormal   Urgency = "normal"
)

// urgencyFor maps days remaining to a tier. Boundaries are statutory-facing
// and fixed: <0 expired, 0-3 critical, 4-7 warning, above that normal.
func urgencyFor(days int) Urgency {
	switch {
	case days < 0:
		return UrgencyExpired
	case days <= 3:
		return UrgencyCritical
	case days <= 7:
		return UrgencyWarning
	}
	return UrgencyNormal
}

// Countdown is one running statutory clock.
type Countdown struct {
	Type          string
	Label         string
	TargetDate    time.Time
	DaysRemaining int
	Urgency       Urgency
	Explanation   string
	Action        string
}

// Milestone is one dated event on the ledger.
type Milestone struct {
	Event        string
	Date         time.Time
	Passed       bool
	Significance string
}

// NextAction points at the soonest countdown that has not yet expired.
type NextAction struct {
	Description string
	Deadline    time.Time
}

// Tracker is the derived deadline view for one tradeline. It has no identity
// and no lifecycle; rebuild it whenever inputs change.
type Tracker struct {
	CreditorName string
	Countdowns   []Countdown
	Milestones   []Milestone
	NextAction   *NextAction
}

// estimatedDOFDOffset backs the DOFD out of a charge-off date when the report
// omits it. Charge-off typically happens around 180 days of delinquency.
const estimatedDOFDOffset = 180

func daysUntil(target, now time.Time) int {
	return int(math.Ceil(target.Sub(now).Hours() / 24))
}

// BuildTracker derives the countdown set and milestone ledger for the given
// tradeline. filedAt, when non-nil, is the date the dispute was filed and
// switches on the investigation-window countdowns. Returns
// ErrInsufficientDates when no delinquency anchor can be derived.
func BuildTracker(fields CreditFields, filedAt *time.Time, now time.Time) (Tracker, error) {
	dofd, haveDOFD := parseDate(fields.DateOfFirstDelinquency)
	chargeOff, haveChargeOff := parseDate(fields.ChargeOffDate)

	anchor := dofd
	anchorEstimated := false
	if !haveDOFD {
		if !haveChargeOff {
			return Tracker{}, ErrInsufficientDates
		}
		anchor = chargeOff.AddDate(0, 0, -estimatedDOFDOffset)
		anchorEstimated = true
	}

	t := Tracker{CreditorName: fields.CreditorName}

	if filedAt != nil {
		due30 := filedAt.AddDate(0, 0, 30)
		due45 := filedAt.AddDate(0, 0, 45)
		t.Countdowns = append(t.Countdowns,
			newCountdown("investigation_30", "30-day investigation window", due30, now,
				"The bureau must complete its reinvestigation within 30 days of receiving the dispute.",
				"Watch for the bureau's written results; escalate if none arrive."),
			newCountdown("investigation_45", "45-day extended investigation window", due45, now,
				"The window extends to 45 days when the dispute follows a free annual report or new information is supplied.",
				"Absolute outer bound; a silent bureau past this date is out of compliance."),
		)
	}

	removal := anchor.AddDate(7, 0, 0)
	obsExplanation := "Most negative information must be removed seven years after the date of first delinquency."
	if anchorEstimated {
		obsExplanation = "DOFD estimated from the charge-off date minus 180 days; " + obsExplanation
	}
	t.Countdowns = append(t.Countdowns,
		newCountdown("obsolescence_7y", "7-year reporting limit", removal, now,
			obsExplanation,
			"Request removal of the tradeline once the reporting period lapses."),
	)

	if opened, ok := parseDate(fields.DateOpened); ok {
		t.Milestones = append(t.Milestones, milestone("account_opened", opened, now,
			"Account opened with "+fields.CreditorName))
	}
	dofdSignificance := "Date of first delinquency; anchors the 7-year reporting clock"
	if anchorEstimated {
		dofdSignificance = "Estimated date of first delinquency (charge-off minus 180 days)"
	}
	t.Milestones = append(t.Milestones, milestone("first_delinquency", anchor, now, dofdSignificance))
	if haveChargeOff {
		t.Milestones = append(t.Milestones, milestone("charge_off", chargeOff, now,
			"Account charged off by the creditor"))
	}
	if filedAt != nil {
		t.Milestones = append(t.Milestones,
			milestone("dispute_filed", *filedAt, now, "Dispute submitted"),
			milestone("response_due", filedAt.AddDate(0, 0, 30), now, "Statutory response deadline"),
		)
	}
	t.Milestones = append(t.Milestones, milestone("obsolescence_removal", removal, now,
		"Tradeline becomes obsolete and must stop being reported"))

	sort.SliceStable(t.Milestones, func(i, j int) bool {
		return t.Milestones[i].Date.Before(t.Milestones[j].Date)
	})

	t.NextAction = nextAction(t.Countdowns)
	return t, nil
}

func newCountdown(ctype, label string, target, now time.Time, explanation, action string) Countdown {
	days := daysUntil(target, now)
	return Countdown{
		Type:          ctype,
		Label:         label,
		TargetDate:    target,
		DaysRemaining: days,
		Urgency:       urgencyFor(days),
		Explanation:   explanation,
		Action:        action,
	}
}

func milestone(event string, date, now time.Time, significance string) Milestone {
	return Milestone{
		Event:        event,
		Date:         date,
		Passed:       date.Before(now),
		Significance: significance,
	}
}

// nextAction picks the soonest countdown that is still running.
func nextAction(countdowns []Countdown) *NextAction {
	var best *Countdown
	for i := range countdowns {
		c := &countdowns[i]
		if c.Urgency == UrgencyExpired {
			continue
		}
		if best == nil || c.TargetDate.Before(best.TargetDate) {
			best = c
		}
	}
	if best == nil {
		return nil
	}
	return &NextAction{Description: best.Action, Deadline: best.TargetDate}
}
