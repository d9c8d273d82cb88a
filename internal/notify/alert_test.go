package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/wolfman30/oneroot-leads/internal/leads"
)

func TestNewLeadAlerterDisabled(t *testing.T) {
	if NewLeadAlerter(nil, "sales@oneroot.in", nil) != nil {
		t.Error("expected nil alerter without sender")
	}
	if NewLeadAlerter(NewStubEmailSender(nil), "  ", nil) != nil {
		t.Error("expected nil alerter without recipient")
	}
	var a *LeadAlerter
	if err := a.NotifyLead(context.Background(), &leads.Lead{}); err != nil {
		t.Errorf("nil alerter should be a no-op, got %v", err)
	}
}

func TestLeadAlerterNotifyLead(t *testing.T) {
	stub := NewStubEmailSender(nil)
	alerter := NewLeadAlerter(stub, "sales@oneroot.in", nil)

	err := alerter.NotifyLead(context.Background(), &leads.Lead{
		PhoneNumber: "+919876543210",
		Source:      leads.SourceCallButton,
		Notes:       "Submitted from call button on /regions page",
		DeviceType:  leads.DeviceAndroid,
		PageURL:     "/regions",
		Timestamp:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sent := stub.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected one email, got %d", len(sent))
	}
	msg := sent[0]
	if msg.To != "sales@oneroot.in" {
		t.Errorf("unexpected recipient %q", msg.To)
	}
	if msg.Subject != "New lead: +919876543210 (call button)" {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
	for _, want := range []string{"Phone: +919876543210", "Device: android", "Page: /regions", "Received: 2024-03-01 10:00 UTC"} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("body missing %q:\n%s", want, msg.Body)
		}
	}
}
