package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/oneroot-leads/internal/localstore"
	"github.com/wolfman30/oneroot-leads/internal/session"
	"github.com/wolfman30/oneroot-leads/pkg/logging"
)

func callButton(t *testing.T, h *CallButtonHandler, sessionID string) CallButtonResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/sessions/call-button", nil)
	if sessionID != "" {
		req = req.WithContext(session.WithSessionID(req.Context(), sessionID))
	}
	rec := httptest.NewRecorder()
	h.Get(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CallButtonResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCallButton_CollectsUntilSubmitted(t *testing.T) {
	registry := session.NewRegistry(localstore.NewMemoryStore(), logging.Default())
	h := NewCallButtonHandler(registry, "+91 98765 43210", logging.Default())

	resp := callButton(t, h, "sess-1")
	assert.Equal(t, "collect", resp.Mode)
	assert.Equal(t, "tel:+919876543210", resp.Tel)
	assert.Equal(t, "Click to share your number and we'll call you back!", resp.Message)
	assert.Empty(t, resp.PhoneNumber)

	require.NoError(t, registry.MarkSubmitted(context.Background(), "sess-1", "9876543210"))

	resp = callButton(t, h, "sess-1")
	assert.Equal(t, "callback", resp.Mode)
	assert.Equal(t, "We'll call you back shortly!", resp.Message)
	assert.Equal(t, "9876543210", resp.PhoneNumber)
	assert.Equal(t, "tel:+919876543210", resp.Tel)

	// other sessions are unaffected
	assert.Equal(t, "collect", callButton(t, h, "sess-2").Mode)
}

func TestCallButton_AnonymousSession(t *testing.T) {
	registry := session.NewRegistry(localstore.NewMemoryStore(), nil)
	h := NewCallButtonHandler(registry, "+919876543210", nil)

	resp := callButton(t, h, "")
	assert.Equal(t, "collect", resp.Mode)
}
