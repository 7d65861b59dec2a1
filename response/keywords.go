package response

// Outcome is the document-level classification of a bureau response.
type Outcome string

const (
	OutcomeDeleted      Outcome = "deleted"
	OutcomeUpdated      Outcome = "updated"
	OutcomeVerified     Outcome = "verified"
	OutcomeInsufficient Outcome = "insufficient"
	OutcomePartial      Outcome = "partial"
	OutcomeUnknown      Outcome = "unknown"
)

// categoryOrder fixes the tie-break precedence: when two categories score the
// same hit count, the earlier one wins.
var categoryOrder = []Outcome{
	OutcomeDeleted,
	OutcomeUpdated,
	OutcomeVerified,
	OutcomeInsufficient,
	OutcomePartial,
}

// categoryKeywords are the phrase signals per category, matched as substrings
// of the lowercased response text.
var categoryKeywords = map[Outcome][]string{
	OutcomeDeleted: {
		"deleted",
		"removed from your",
		"no longer appears",
		"no longer reporting",
		"item has been removed",
	},
	OutcomeUpdated: {
		"updated",
		"corrected",
		"revised",
		"changed to reflect",
		"modified the",
	},
	OutcomeVerified: {
		"verified",
		"confirmed as accurate",
		"remains on your",
		"accurate as reported",
		"information is accurate",
		"meets fcra requirements",
	},
	OutcomeInsufficient: {
		"insufficient",
		"frivolous",
		"irrelevant",
		"unable to locate",
		"could not identify",
		"additional information",
	},
	OutcomePartial: {
		"partially",
		"in part",
		"some of the items",
		"certain items",
	},
}
