package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testService() *TokenService {
	return NewTokenService([]byte("test-secret-at-least-32-bytes-long"), time.Hour)
}

func TestIssueAndValidate(t *testing.T) {
	s := testService()

	token, err := s.IssueAccessToken("noc-dashboard", "NOC Dashboard", "viewer")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	claims, err := s.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.Subject != "noc-dashboard" {
		t.Errorf("Subject = %q, want noc-dashboard", claims.Subject)
	}
	if claims.Role != "viewer" {
		t.Errorf("Role = %q, want viewer", claims.Role)
	}
	if claims.Issuer != "vigia" {
		t.Errorf("Issuer = %q, want vigia", claims.Issuer)
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	token, err := testService().IssueAccessToken("x", "", "viewer")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	other := NewTokenService([]byte("a-completely-different-signing-key"), time.Hour)
	if _, err := other.ValidateAccessToken(token); err == nil {
		t.Error("token signed with different secret validated")
	}
}

func TestValidate_Expired(t *testing.T) {
	s := NewTokenService([]byte("test-secret-at-least-32-bytes-long"), -time.Minute)
	token, err := s.IssueAccessToken("x", "", "viewer")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if _, err := s.ValidateAccessToken(token); err == nil {
		t.Error("expired token validated")
	}
}

func TestValidate_Garbage(t *testing.T) {
	if _, err := testService().ValidateAccessToken("not.a.jwt"); err == nil {
		t.Error("garbage token validated")
	}
}

func TestMiddleware(t *testing.T) {
	s := testService()
	token, err := s.IssueAccessToken("noc-dashboard", "NOC Dashboard", "viewer")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	var gotClaims *Claims
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Middleware(s)(inner)

	tests := []struct {
		name       string
		path       string
		authHeader string
		wantStatus int
	}{
		{"valid bearer", "/api/v1/capacity/sites", "Bearer " + token, http.StatusOK},
		{"missing header", "/api/v1/capacity/sites", "", http.StatusUnauthorized},
		{"wrong scheme", "/api/v1/capacity/sites", "Basic abc", http.StatusUnauthorized},
		{"tampered token", "/api/v1/capacity/sites", "Bearer " + token + "x", http.StatusUnauthorized},
		{"healthz bypasses auth", "/healthz", "", http.StatusOK},
		{"ws path bypasses header auth", "/api/v1/ws/events", "", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.authHeader != "" {
				r.Header.Set("Authorization", tc.authHeader)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			if w.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			if tc.wantStatus == http.StatusUnauthorized {
				if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/problem+json") {
					t.Errorf("Content-Type = %q, want problem+json", ct)
				}
			}
		})
	}

	// Claims flow through to the handler on the authenticated path.
	r := httptest.NewRequest(http.MethodGet, "/api/v1/capacity/sites", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), r)
	if gotClaims == nil || gotClaims.Subject != "noc-dashboard" {
		t.Errorf("claims not propagated, got %+v", gotClaims)
	}
}
