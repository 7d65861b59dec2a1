package escalate

import (
	"fmt"
	"time"

	"creditflow/dispute"
)

// ConsumerInfo is the consumer context handed to document builders. It is
// supplied by the caller; this core never stores it.
type ConsumerInfo struct {
	Name    string
	Address string
	City    string
	State   string
	Zip     string
}

// DocumentBuilder produces the body of a follow-up document. Real letter
// prose lives in an external formatter; this interface is the seam.
type DocumentBuilder interface {
	BuildFollowUp(d dispute.Dispute, kind dispute.DocumentKind, now time.Time) (name, content string, err error)
}

// StubBuilder is the built-in placeholder builder. It emits a short header
// block that downstream formatters replace with real letter content.
type StubBuilder struct {
	Consumer ConsumerInfo
}

var followUpNames = map[dispute.DocumentKind]string{
	dispute.DocNoResponseNotice: "No-response notice",
	dispute.DocMOVRequest:       "Method of verification request",
	dispute.DocCFPBComplaint:    "CFPB complaint outline",
}

func (b *StubBuilder) BuildFollowUp(d dispute.Dispute, kind dispute.DocumentKind, now time.Time) (string, string, error) {
	name, ok := followUpNames[kind]
	if !ok {
		return "", "", fmt.Errorf("escalate: no follow-up template for document kind %q", kind)
	}
	content := fmt.Sprintf(
		"%s\n\nDispute: %s\nCreditor: %s\nSubmitted: %s\nResponse deadline: %s\nGenerated: %s\nFor: %s\n",
		name,
		d.ID,
		d.Account.Creditor,
		d.SubmittedAt.Format("2006-01-02"),
		d.ResponseDeadline.Format("2006-01-02"),
		now.Format("2006-01-02"),
		b.Consumer.Name,
	)
	return name, content, nil
}
