package response

import (
	"testing"

	"creditflow/dispute"
)

func TestAnalyze_DeletedOutcome(t *testing.T) {
	a := Analyze("the account has been deleted from your file")

	if a.Outcome != OutcomeDeleted {
		t.Fatalf("outcome = %s, want deleted", a.Outcome)
	}
	if a.RecommendedStatus != dispute.StatusResolvedFavorable {
		t.Errorf("recommended status = %s, want resolved_favorable", a.RecommendedStatus)
	}
	if a.Confidence <= 0 {
		t.Errorf("confidence = %d, want > 0", a.Confidence)
	}
	if len(a.Signals) == 0 {
		t.Error("expected at least one signal")
	}
	if len(a.NextSteps) == 0 {
		t.Error("expected next steps")
	}
}

func TestAnalyze_NoSignal(t *testing.T) {
	for _, text := range []string{"", "thank you for contacting us"} {
		a := Analyze(text)
		if a.Outcome != OutcomeUnknown {
			t.Errorf("%q: outcome = %s, want unknown", text, a.Outcome)
		}
		if a.Confidence != 0 {
			t.Errorf("%q: confidence = %d, want 0", text, a.Confidence)
		}
		if a.RecommendedStatus != dispute.StatusResponseReceived {
			t.Errorf("%q: recommended status = %s", text, a.RecommendedStatus)
		}
	}
}

func TestAnalyze_TieBreaksByDeclarationOrder(t *testing.T) {
	// Exactly one hit each for deleted and updated.
	a := Analyze("the item was deleted and another item was updated")
	if a.Outcome != OutcomeDeleted {
		t.Fatalf("outcome = %s, want deleted on tie", a.Outcome)
	}
}

func TestAnalyze_MajorityWins(t *testing.T) {
	a := Analyze("verified as reported. the information was verified. verified again. one item updated.")
	if a.Outcome != OutcomeVerified {
		t.Fatalf("outcome = %s, want verified", a.Outcome)
	}
	if a.RecommendedStatus != dispute.StatusEscalated {
		t.Errorf("recommended status = %s, want escalated", a.RecommendedStatus)
	}
	// 3 of 4 hits: 75.
	if a.Confidence != 75 {
		t.Errorf("confidence = %d, want 75", a.Confidence)
	}
}

func TestAnalyze_ConfidenceCappedAt95(t *testing.T) {
	a := Analyze("deleted deleted deleted deleted")
	if a.Confidence != 95 {
		t.Errorf("confidence = %d, want cap of 95", a.Confidence)
	}
}

func TestRecommendedStatusTable(t *testing.T) {
	cases := map[Outcome]dispute.Status{
		OutcomeDeleted:      dispute.StatusResolvedFavorable,
		OutcomeUpdated:      dispute.StatusResponseReceived,
		OutcomeVerified:     dispute.StatusEscalated,
		OutcomeInsufficient: dispute.StatusResponseReceived,
		OutcomePartial:      dispute.StatusResponseReceived,
		OutcomeUnknown:      dispute.StatusResponseReceived,
	}
	for outcome, want := range cases {
		if got := recommendedStatus[outcome]; got != want {
			t.Errorf("%s -> %s, want %s", outcome, got, want)
		}
	}
}
