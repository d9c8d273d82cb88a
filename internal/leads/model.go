package leads

import (
	"fmt"
	"strings"
	"time"
)

// Source identifies the UI trigger that produced a lead.
type Source string

const (
	SourceCallButton     Source = "call_button"
	SourcePeriodicPrompt Source = "periodic_prompt"
	SourceWebsite        Source = "website"
	SourceContactForm    Source = "contact_form"
)

// DeviceType classifies the submitting client.
type DeviceType string

const (
	DeviceDesktop DeviceType = "desktop"
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
	DeviceAndroid DeviceType = "android"
	DeviceIOS     DeviceType = "ios"
)

// Valid reports whether d is one of the known device classes.
func (d DeviceType) Valid() bool {
	switch d {
	case DeviceDesktop, DeviceMobile, DeviceTablet, DeviceAndroid, DeviceIOS:
		return true
	}
	return false
}

// Lead is a captured phone-number submission. Leads are never updated once
// created.
type Lead struct {
	ID          string     `json:"id,omitempty"`
	PhoneNumber string     `json:"phone_number"`
	Source      Source     `json:"source"`
	Notes       string     `json:"notes"`
	DeviceType  DeviceType `json:"device_type"`
	Timestamp   time.Time  `json:"timestamp"`
	PageURL     string     `json:"page_url"`
	UserAgent   string     `json:"user_agent,omitempty"`
}

// SubmitRequest is the input to Coordinator.Submit.
type SubmitRequest struct {
	SessionID  string     `json:"-"`
	Phone      string     `json:"phone_number" validate:"required,inmobile"`
	Source     Source     `json:"source" validate:"omitempty,oneof=call_button periodic_prompt website contact_form"`
	Notes      string     `json:"notes" validate:"max=1000"`
	PageURL    string     `json:"page_url" validate:"max=2048"`
	DeviceType DeviceType `json:"device_type" validate:"omitempty,oneof=desktop mobile tablet android ios"`
	UserAgent  string     `json:"-"`
}

// Validate checks the request against its struct tags.
func (r *SubmitRequest) Validate() error {
	return Validator().Struct(r)
}

// Durability records where a submitted lead actually landed.
type Durability string

const (
	// DurabilityRemote means the hosted table accepted the insert.
	DurabilityRemote Durability = "remote"
	// DurabilityLocal means the remote write failed and the fallback store holds the lead.
	DurabilityLocal Durability = "local"
	// DurabilityNone means both writes failed. The visitor is still told the
	// submission succeeded.
	DurabilityNone Durability = "none"
)

// Receipt is the outcome of a successful Submit.
type Receipt struct {
	Lead       *Lead      `json:"lead"`
	Durability Durability `json:"durability"`
}

// DefaultNotes describes where a submission came from when the caller sent none.
func DefaultNotes(source Source, pageURL string) string {
	page := strings.TrimSpace(pageURL)
	if page == "" {
		page = "/"
	}
	trigger := strings.ReplaceAll(string(source), "_", " ")
	return fmt.Sprintf("Submitted from %s on %s page", trigger, page)
}
