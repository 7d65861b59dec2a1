package response

import (
	"regexp"
	"strings"

	"creditflow/dispute"
)

// Index is the structural skeleton extracted from a response document.
type Index struct {
	Bureau      dispute.Bureau
	AccountRefs []string
	Sections    []string
}

// Item is the per-tradeline classification extracted from a response.
type Item struct {
	AccountRef string
	Outcome    Outcome
	Evidence   []string
}

// Summary condenses per-item outcomes into one dispute-level result.
type Summary struct {
	Result  dispute.OutcomeResult
	Details string
}

// accountRefPattern matches an "account" label followed by an alphanumeric
// reference of at least four characters, e.g. "Account #: 4412-9983" or
// "account number XK82214".
var accountRefPattern = regexp.MustCompile(`(?i)\baccount\b(?:\s*(?:number|no\.?|ref(?:erence)?|#))?\s*[:#]?\s*([A-Za-z0-9][A-Za-z0-9*-]{3,})`)

var bureauNames = []dispute.Bureau{
	dispute.BureauExperian,
	dispute.BureauEquifax,
	dispute.BureauTransUnion,
}

// sectionProbes detect which topical sections a response contains. The five
// outcome categories reuse their keyword lists; the extras cover boilerplate
// sections bureaus attach around the results.
var sectionProbes = []struct {
	name     string
	keywords []string
}{
	{"reinvestigation", []string{"reinvestigation", "results of our investigation"}},
	{"rights", []string{"summary of rights", "your rights under"}},
	{"instructions", []string{"if you still disagree", "you may add a statement"}},
}

// detectBureau counts substring occurrences of each bureau name; the highest
// count wins and ties stay unresolved (empty).
func detectBureau(lowered string) dispute.Bureau {
	var winner dispute.Bureau
	best := 0
	tied := false
	for _, b := range bureauNames {
		n := strings.Count(lowered, string(b))
		switch {
		case n > best:
			best = n
			winner = b
			tied = false
		case n == best && n > 0:
			tied = true
		}
	}
	if best == 0 || tied {
		return ""
	}
	return winner
}

// ExtractIndex pulls the bureau, account references and present sections out
// of a response document.
func ExtractIndex(text string) Index {
	lowered := strings.ToLower(text)

	idx := Index{Bureau: detectBureau(lowered)}

	seen := map[string]bool{}
	for _, line := range strings.Split(text, "\n") {
		m := accountRefPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		key := strings.ToLower(m[1])
		if seen[key] {
			continue
		}
		seen[key] = true
		idx.AccountRefs = append(idx.AccountRefs, m[1])
	}

	for _, cat := range categoryOrder {
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(lowered, kw) {
				idx.Sections = append(idx.Sections, string(cat))
				break
			}
		}
	}
	for _, probe := range sectionProbes {
		for _, kw := range probe.keywords {
			if strings.Contains(lowered, kw) {
				idx.Sections = append(idx.Sections, probe.name)
				break
			}
		}
	}
	return idx
}

// ExtractItems classifies each referenced account independently, using a
// two-line context window around the line that names it. A reference seen
// twice keeps its first non-unknown classification.
func ExtractItems(text string) []Item {
	lines := strings.Split(text, "\n")

	var order []string
	byRef := map[string]*Item{}

	for i, line := range lines {
		m := accountRefPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		lo := i - 2
		if lo < 0 {
			lo = 0
		}
		hi := i + 3
		if hi > len(lines) {
			hi = len(lines)
		}
		window := strings.ToLower(strings.Join(lines[lo:hi], "\n"))
		outcome, _, _, signals := classify(window)

		key := strings.ToLower(m[1])
		existing, ok := byRef[key]
		if !ok {
			order = append(order, key)
			byRef[key] = &Item{AccountRef: m[1], Outcome: outcome, Evidence: signals}
			continue
		}
		if existing.Outcome == OutcomeUnknown && outcome != OutcomeUnknown {
			existing.Outcome = outcome
			existing.Evidence = signals
		}
	}

	items := make([]Item, 0, len(order))
	for _, key := range order {
		items = append(items, *byRef[key])
	}
	return items
}

// SummarizeItems reduces per-item outcomes to one dispute-level result.
// Returns nil when there are no items. Mixed favorable and unfavorable
// signals collapse to a partial result; otherwise the strongest single
// signal, in the order deleted, updated, verified, insufficient, decides.
func SummarizeItems(items []Item) *Summary {
	if len(items) == 0 {
		return nil
	}

	counts := map[Outcome]int{}
	for _, it := range items {
		counts[it.Outcome]++
	}

	favorable := counts[OutcomeDeleted] > 0 || counts[OutcomeUpdated] > 0
	unfavorable := counts[OutcomeVerified] > 0 || counts[OutcomePartial] > 0

	switch {
	case favorable && unfavorable:
		return &Summary{Result: dispute.ResultPartial, Details: "Mixed outcomes across the disputed items."}
	case counts[OutcomeDeleted] > 0:
		if counts[OutcomeUpdated] > 0 {
			return &Summary{Result: dispute.ResultCorrected, Details: "Items were deleted and others corrected."}
		}
		return &Summary{Result: dispute.ResultDeleted, Details: "The disputed items were deleted."}
	case counts[OutcomeUpdated] > 0:
		return &Summary{Result: dispute.ResultCorrected, Details: "The disputed items were corrected."}
	case counts[OutcomeVerified] > 0:
		return &Summary{Result: dispute.ResultVerified, Details: "The bureau verified the disputed items."}
	case counts[OutcomeInsufficient] > 0:
		return &Summary{Result: dispute.ResultNoResponse, Details: "The bureau declined to investigate for lack of information."}
	default:
		return &Summary{Result: dispute.ResultPartial, Details: "The response did not state a clear outcome."}
	}
}
