package server

import (
	"net/http/httptest"
	"testing"
)

func testAuth(token string) *Auth {
	cfg := DefaultServerConfig()
	cfg.Security.AdminToken = token
	return NewAuth(nil, cfg)
}

func TestAuthenticateRequestAdminToken(t *testing.T) {
	auth := testAuth("secret-token")

	r := httptest.NewRequest("GET", "/api/v1/admin/runs", nil)
	r.Header.Set("X-Admin-Token", "secret-token")
	principal, err := auth.AuthenticateRequest(r)
	if err != nil {
		t.Fatalf("admin token rejected: %v", err)
	}
	if principal.Role != "admin" {
		t.Fatalf("expected admin role, got %q", principal.Role)
	}
}

func TestAuthenticateRequestBearerFallback(t *testing.T) {
	auth := testAuth("secret-token")

	r := httptest.NewRequest("GET", "/api/v1/admin/runs", nil)
	r.Header.Set("Authorization", "Bearer secret-token")
	principal, err := auth.AuthenticateRequest(r)
	if err != nil {
		t.Fatalf("bearer token rejected: %v", err)
	}
	if principal.Subject != "admin-token" {
		t.Fatalf("expected admin-token subject, got %q", principal.Subject)
	}
}

func TestAuthenticateRequestRejectsBadToken(t *testing.T) {
	auth := testAuth("secret-token")

	r := httptest.NewRequest("GET", "/api/v1/admin/runs", nil)
	r.Header.Set("X-Admin-Token", "wrong-token")
	if _, err := auth.AuthenticateRequest(r); err == nil {
		t.Fatalf("wrong admin token must be rejected")
	}

	r = httptest.NewRequest("GET", "/api/v1/admin/runs", nil)
	if _, err := auth.AuthenticateRequest(r); err == nil {
		t.Fatalf("request without credentials must be rejected")
	}
}

func TestAuthenticateRequestNoTokenConfigured(t *testing.T) {
	auth := testAuth("")

	r := httptest.NewRequest("GET", "/api/v1/admin/runs", nil)
	r.Header.Set("X-Admin-Token", "")
	if _, err := auth.AuthenticateRequest(r); err == nil {
		t.Fatalf("empty configured token must never authenticate")
	}
}

func TestConstantTimeEquals(t *testing.T) {
	if !constantTimeEquals("abc", "abc") {
		t.Fatalf("equal strings must compare true")
	}
	if constantTimeEquals("abc", "abd") || constantTimeEquals("abc", "abcd") {
		t.Fatalf("unequal strings must compare false")
	}
}
