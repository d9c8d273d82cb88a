package leads

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wolfman30/oneroot-leads/internal/session"
	"github.com/wolfman30/oneroot-leads/pkg/logging"
)

func TestCreateLeadHandler(t *testing.T) {
	f := newFixture(t, nil)
	h := NewHandler(f.coord, logging.New("error"))

	body := `{"phone_number":"98765 43210","source":"call_button","page_url":"/about"}`
	req := httptest.NewRequest(http.MethodPost, "/leads", strings.NewReader(body))
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)")
	req = req.WithContext(session.WithSessionID(req.Context(), "sess-1"))
	rec := httptest.NewRecorder()

	h.CreateLead(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var receipt Receipt
	if err := json.NewDecoder(rec.Body).Decode(&receipt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if receipt.Lead.PhoneNumber != "+919876543210" {
		t.Fatalf("unexpected phone %q", receipt.Lead.PhoneNumber)
	}
	if receipt.Lead.DeviceType != DeviceIOS {
		t.Fatalf("expected ios device, got %q", receipt.Lead.DeviceType)
	}
	if receipt.Durability != DurabilityRemote {
		t.Fatalf("expected remote durability, got %q", receipt.Durability)
	}
	if !f.registry.Get(context.Background(), "sess-1").Snapshot().HasSubmitted {
		t.Fatalf("expected session to be marked submitted")
	}
}

func TestCreateLeadHandlerRejectsInvalidPhone(t *testing.T) {
	f := newFixture(t, nil)
	h := NewHandler(f.coord, logging.New("error"))

	req := httptest.NewRequest(http.MethodPost, "/leads", strings.NewReader(`{"phone_number":"12345"}`))
	rec := httptest.NewRecorder()
	h.CreateLead(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp struct {
		Error  string              `json:"error"`
		Fields []map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != ErrInvalidPhone.Error() {
		t.Fatalf("unexpected error message %q", resp.Error)
	}
	if len(resp.Fields) == 0 {
		t.Fatalf("expected field errors")
	}
	if len(f.remote.All()) != 0 {
		t.Fatalf("expected no remote writes")
	}
}

func TestCreateLeadHandlerRejectsInvalidSource(t *testing.T) {
	f := newFixture(t, nil)
	h := NewHandler(f.coord, logging.New("error"))

	req := httptest.NewRequest(http.MethodPost, "/leads", strings.NewReader(`{"phone_number":"9876543210","source":"billboard"}`))
	rec := httptest.NewRecorder()
	h.CreateLead(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp struct {
		Error  string              `json:"error"`
		Fields []map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "invalid lead" {
		t.Fatalf("unexpected error message %q", resp.Error)
	}
	if len(resp.Fields) != 1 || resp.Fields[0]["source"] == "" {
		t.Fatalf("expected a single source field error, got %+v", resp.Fields)
	}
	if _, ok := resp.Fields[0]["phone_number"]; ok {
		t.Fatalf("phone number should not be reported")
	}
}

func TestCreateLeadHandlerBadJSON(t *testing.T) {
	f := newFixture(t, nil)
	h := NewHandler(f.coord, nil)

	req := httptest.NewRequest(http.MethodPost, "/leads", strings.NewReader(`{`))
	rec := httptest.NewRecorder()
	h.CreateLead(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCheckExistsHandler(t *testing.T) {
	f := newFixture(t, nil)
	if !f.fallback.Append(context.Background(), Lead{PhoneNumber: "+919876543210"}) {
		t.Fatalf("append failed")
	}
	h := NewHandler(f.coord, nil)

	cases := []struct {
		query  string
		status int
		exists bool
	}{
		{"?phone=9876543210", http.StatusOK, true},
		{"?phone=%2B917000000000", http.StatusOK, false},
		{"", http.StatusBadRequest, false},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h.CheckExists(rec, httptest.NewRequest(http.MethodGet, "/leads/exists"+tc.query, nil))
		if rec.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.query, tc.status, rec.Code)
		}
		if tc.status != http.StatusOK {
			continue
		}
		var resp ExistsResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Exists != tc.exists {
			t.Fatalf("%s: expected exists=%v", tc.query, tc.exists)
		}
	}
}
