// Package response turns free-text bureau responses into structured outcome
// classifications. All functions are pure; empty or unrecognized text degrades
// to an unknown outcome, never to an error.
package response

import (
	"math"
	"strings"

	"creditflow/dispute"
)

// Analysis is the document-level classification result. It is ephemeral: it
// only affects a dispute when a caller applies it through the state machine.
type Analysis struct {
	Outcome           Outcome
	Confidence        int
	Signals           []string
	RecommendedStatus dispute.Status
	NextSteps         []string
}

// recommendedStatus maps each outcome to the status a caller should move the
// dispute into.
var recommendedStatus = map[Outcome]dispute.Status{
	OutcomeDeleted:      dispute.StatusResolvedFavorable,
	OutcomeUpdated:      dispute.StatusResponseReceived,
	OutcomeVerified:     dispute.StatusEscalated,
	OutcomeInsufficient: dispute.StatusResponseReceived,
	OutcomePartial:      dispute.StatusResponseReceived,
	OutcomeUnknown:      dispute.StatusResponseReceived,
}

var nextSteps = map[Outcome][]string{
	OutcomeDeleted: {
		"Pull a fresh report to confirm the tradeline is gone",
		"Keep the deletion letter with the dispute records",
		"Close the dispute as resolved favorable",
	},
	OutcomeUpdated: {
		"Compare the updated tradeline against the dispute claims",
		"Dispute again if the correction is incomplete",
	},
	OutcomeVerified: {
		"Send a method-of-verification request",
		"Consider escalating to the CFPB",
		"Gather documentation contradicting the verification",
	},
	OutcomeInsufficient: {
		"Resubmit with the identification or detail the bureau asked for",
		"Keep proof of the original submission date",
	},
	OutcomePartial: {
		"Identify which items were corrected and which were verified",
		"Open follow-up disputes for the items that remain",
	},
	OutcomeUnknown: {
		"Read the response manually; no known outcome language was found",
		"Record the outcome on the dispute once determined",
	},
}

// classify scores the lowercased text against every category and returns the
// winning outcome with its hit counts and matched signals. Ties go to the
// earlier category in declaration order.
func classify(lowered string) (best Outcome, topHits, totalHits int, signals []string) {
	best = OutcomeUnknown
	for _, cat := range categoryOrder {
		hits := 0
		for _, kw := range categoryKeywords[cat] {
			if n := strings.Count(lowered, kw); n > 0 {
				hits += n
				signals = append(signals, kw)
			}
		}
		totalHits += hits
		if hits > topHits {
			topHits = hits
			best = cat
		}
	}
	return best, topHits, totalHits, signals
}

// Analyze classifies a raw bureau response. Zero matching signals yield
// OutcomeUnknown with confidence 0.
func Analyze(text string) Analysis {
	lowered := strings.ToLower(text)
	outcome, top, total, signals := classify(lowered)

	confidence := 0
	if total > 0 {
		confidence = int(math.Round(float64(top) / float64(total) * 100))
		if confidence > 95 {
			confidence = 95
		}
	}

	return Analysis{
		Outcome:           outcome,
		Confidence:        confidence,
		Signals:           signals,
		RecommendedStatus: recommendedStatus[outcome],
		NextSteps:         nextSteps[outcome],
	}
}
