package deadline

import (
	"strings"
	"time"
)

// CreditFields carries the tradeline dates this calculator works from. They
// arrive as raw strings from the external report-parsing subsystem and may be
// absent or malformed; malformed dates are treated as absent, never compared.
type CreditFields struct {
	CreditorName           string
	FurnisherName          string
	AccountType            string
	DateOpened             string
	DateOfFirstDelinquency string
	ChargeOffDate          string
	LastPaymentDate        string
}

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01",
	"01/2006",
}

// parseDate tries the known report layouts. The second return is false for
// empty or unparsable input.
func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
