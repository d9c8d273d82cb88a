package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func serveAdmin(t *testing.T, secret, authHeader string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/admin/leads", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	called := false
	AdminJWT(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		claims, ok := AdminClaimsFromContext(r.Context())
		if !ok || claims.Role != AdminRole {
			t.Fatalf("expected admin claims in context")
		}
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)
	return rec, called
}

func TestAdminJWTRejects(t *testing.T) {
	valid, _, err := IssueAdminToken("secret", "admin", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	expired, _, err := IssueAdminToken("secret", "admin", time.Minute, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	cases := []struct {
		name   string
		secret string
		header string
	}{
		{"auth disabled", "", "Bearer " + valid},
		{"missing header", "secret", ""},
		{"wrong scheme", "secret", "Basic " + valid},
		{"wrong secret", "other", "Bearer " + valid},
		{"expired", "secret", "Bearer " + expired},
		{"not admin role", "secret", "Bearer " + signedToken(t, "secret", jwt.MapClaims{
			"role": "viewer",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})},
		{"no expiry", "secret", "Bearer " + signedToken(t, "secret", jwt.MapClaims{"role": AdminRole})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, called := serveAdmin(t, tc.secret, tc.header)
			if called {
				t.Fatalf("handler should not be called")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
			}
		})
	}
}

func TestAdminJWTValidToken(t *testing.T) {
	token, expires, err := IssueAdminToken("secret", "admin", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if time.Until(expires) < 59*time.Minute {
		t.Fatalf("unexpected expiry %v", expires)
	}

	rec, called := serveAdmin(t, "secret", "Bearer "+token)
	if !called {
		t.Fatalf("expected handler to be called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestIssueAdminTokenRequiresSecret(t *testing.T) {
	if _, _, err := IssueAdminToken("", "admin", time.Hour, time.Now()); err == nil {
		t.Fatalf("expected error without secret")
	}
}

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
