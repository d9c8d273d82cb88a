package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/oneroot-leads/internal/leads"
	"github.com/wolfman30/oneroot-leads/pkg/logging"
)

// LeadAlerter emails every new lead to the sales inbox.
type LeadAlerter struct {
	sender    EmailSender
	recipient string
	logger    *logging.Logger
}

// NewLeadAlerter returns nil when there is no sender or recipient, which
// the coordinator treats as "no notifier".
func NewLeadAlerter(sender EmailSender, recipient string, logger *logging.Logger) *LeadAlerter {
	recipient = strings.TrimSpace(recipient)
	if sender == nil || recipient == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LeadAlerter{sender: sender, recipient: recipient, logger: logger}
}

// NotifyLead implements leads.Notifier.
func (a *LeadAlerter) NotifyLead(ctx context.Context, lead *leads.Lead) error {
	if a == nil || lead == nil {
		return nil
	}
	msg := EmailMessage{
		To:      a.recipient,
		Subject: fmt.Sprintf("New lead: %s (%s)", lead.PhoneNumber, sourceLabel(lead.Source)),
		Body:    leadBody(lead),
	}
	if err := a.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: lead alert: %w", err)
	}
	return nil
}

func leadBody(lead *leads.Lead) string {
	var b strings.Builder
	b.WriteString("A new lead has come in.\n\n")
	fmt.Fprintf(&b, "Phone: %s\n", lead.PhoneNumber)
	fmt.Fprintf(&b, "Source: %s\n", sourceLabel(lead.Source))
	fmt.Fprintf(&b, "Device: %s\n", lead.DeviceType)
	if lead.PageURL != "" {
		fmt.Fprintf(&b, "Page: %s\n", lead.PageURL)
	}
	if lead.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", lead.Notes)
	}
	fmt.Fprintf(&b, "Received: %s\n", lead.Timestamp.UTC().Format("2006-01-02 15:04 MST"))
	return b.String()
}

func sourceLabel(source leads.Source) string {
	switch source {
	case leads.SourceCallButton:
		return "call button"
	case leads.SourcePeriodicPrompt:
		return "popup"
	case leads.SourceContactForm:
		return "contact form"
	default:
		return "website"
	}
}

var _ leads.Notifier = (*LeadAlerter)(nil)
