package dispute

import "time"

// Status represents the lifecycle of a dispute record. No transition graph is
// enforced: any status may follow any other, and every change is recorded in
// the history.
type Status string

const (
	StatusDraft               Status = "draft"
	StatusSubmitted           Status = "submitted"
	StatusInvestigating       Status = "investigating"
	StatusResponseReceived    Status = "response_received"
	StatusEscalated           Status = "escalated"
	StatusResolvedFavorable   Status = "resolved_favorable"
	StatusResolvedUnfavorable Status = "resolved_unfavorable"
	StatusClosed              Status = "closed"
)

// IsTerminal reports whether the status ends the dispute lifecycle. Terminal
// disputes are skipped by the escalation scheduler.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusResolvedFavorable, StatusResolvedUnfavorable, StatusClosed:
		return true
	}
	return false
}

// Type identifies the statutory track a dispute runs on. The response window
// differs per type.
type Type string

const (
	TypeBureau     Type = "bureau"
	TypeFurnisher  Type = "furnisher"
	TypeValidation Type = "validation"
	TypeCFPB       Type = "cfpb"
	TypeLegal      Type = "legal"
)

// Bureau is a credit-reporting agency. Empty means unknown or not applicable
// (furnisher and validation disputes are not addressed to a bureau).
type Bureau string

const (
	BureauExperian   Bureau = "experian"
	BureauEquifax    Bureau = "equifax"
	BureauTransUnion Bureau = "transunion"
)

// Account identifies the disputed tradeline.
type Account struct {
	Creditor    string
	Collector   string
	Value       string
	AccountType string
}

// StatusChange is one immutable entry of a dispute's status history.
type StatusChange struct {
	Date  time.Time
	From  Status
	To    Status
	Notes string
}

// CommDirection distinguishes sent from received correspondence.
type CommDirection string

const (
	CommSent     CommDirection = "sent"
	CommReceived CommDirection = "received"
)

// CommMethod is how a communication travelled.
type CommMethod string

const (
	CommMail   CommMethod = "mail"
	CommEmail  CommMethod = "email"
	CommPhone  CommMethod = "phone"
	CommOnline CommMethod = "online"
)

// Communication is one correspondence entry attached to a dispute.
type Communication struct {
	Date      time.Time
	Direction CommDirection
	Method    CommMethod
	Subject   string
	Summary   string
}

// DocumentKind is the closed set of document categories. Routing and
// idempotency decisions key on this and the boolean flags below, never on
// free-form tags.
type DocumentKind string

const (
	DocUpload           DocumentKind = "upload"
	DocDisputeLetter    DocumentKind = "dispute_letter"
	DocNoResponseNotice DocumentKind = "no_response_notice"
	DocMOVRequest       DocumentKind = "mov_request"
	DocCFPBComplaint    DocumentKind = "cfpb_complaint"
)

// Document is a file or generated letter attached to a dispute. Content is
// produced and consumed by external formatters; this core stores it opaquely.
//
// EscalationMarker is the scheduler's idempotency guard: a dispute carrying at
// least one marked document has already been escalated and is never escalated
// again.
type Document struct {
	ID               string
	Name             string
	Kind             DocumentKind
	Content          string
	Tags             []string
	Source           string
	AutoGenerated    bool
	EscalationMarker bool
	DateAdded        time.Time
}

// OutcomeResult is the structured classification of how a dispute ended.
type OutcomeResult string

const (
	ResultDeleted    OutcomeResult = "deleted"
	ResultCorrected  OutcomeResult = "corrected"
	ResultVerified   OutcomeResult = "verified"
	ResultNoResponse OutcomeResult = "no_response"
	ResultPartial    OutcomeResult = "partial"
)

// Outcome records the bureau's final answer on a dispute. Setting an outcome
// does not change the dispute status; callers decide the correlated
// transition.
type Outcome struct {
	Result           OutcomeResult
	Details          string
	FollowUpRequired bool
	RecordedAt       time.Time
}

// Dispute is the root record of the compliance engine.
//
// ResponseDeadline is fixed at creation as SubmittedAt plus the statutory
// window for the dispute type; it is never recomputed afterwards. History is
// append-only and its last entry's To always equals Status.
type Dispute struct {
	ID               string
	OwnerID          string
	Account          Account
	Type             Type
	Bureau           Bureau
	Reason           string
	Status           Status
	SubmittedAt      time.Time
	ResponseDeadline time.Time
	ViolationIDs     []string
	History          []StatusChange
	Communications   []Communication
	Documents        []Document
	Outcome          *Outcome
	Notes            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasEscalationMarker reports whether an escalation batch was already applied.
func (d *Dispute) HasEscalationMarker() bool {
	for _, doc := range d.Documents {
		if doc.EscalationMarker {
			return true
		}
	}
	return false
}

// RuleFlag is one violation emitted by the external rule engine. This core
// consumes flag ids read-only; it never produces them.
type RuleFlag struct {
	ID          string
	Statute     string
	Description string
	Severity    string
}
