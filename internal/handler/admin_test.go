package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatsRejectsMissingKey(t *testing.T) {
	h := NewAdminHandler(nil, "super-secret")
	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	rr := httptest.NewRecorder()

	h.Stats(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestStatsRejectsWrongKey(t *testing.T) {
	h := NewAdminHandler(nil, "super-secret")
	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	req.Header.Set("x-admin-key", "wrong")
	rr := httptest.NewRecorder()

	h.Stats(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestStatsRejectsWhenNoKeyConfigured(t *testing.T) {
	h := NewAdminHandler(nil, "")
	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	req.Header.Set("x-admin-key", "")
	rr := httptest.NewRecorder()

	h.Stats(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 when no admin key is configured, got %d", rr.Code)
	}
}

func TestStatsAcceptsCorrectKeyWithoutDB(t *testing.T) {
	h := NewAdminHandler(nil, "super-secret")
	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	req.Header.Set("x-admin-key", "super-secret")
	rr := httptest.NewRecorder()

	h.Stats(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}
