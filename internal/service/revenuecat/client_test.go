package revenuecat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestHasActiveEntitlementNonExpiring(t *testing.T) {
	s := Subscriber{Entitlements: map[string]Entitlement{
		"premium": {ProductIdentifier: "lifetime"},
	}}
	if !s.HasActiveEntitlement("premium") {
		t.Fatal("expected a non-expiring entitlement to be active")
	}
}

func TestHasActiveEntitlementFutureExpiry(t *testing.T) {
	future := time.Now().Add(24 * time.Hour).Format(time.RFC3339)
	s := Subscriber{Entitlements: map[string]Entitlement{
		"premium": {ExpiresDate: strPtr(future)},
	}}
	if !s.HasActiveEntitlement("premium") {
		t.Fatal("expected a future expiry to still be active")
	}
}

func TestHasActiveEntitlementPastExpiry(t *testing.T) {
	past := time.Now().Add(-24 * time.Hour).Format(time.RFC3339)
	s := Subscriber{Entitlements: map[string]Entitlement{
		"premium": {ExpiresDate: strPtr(past)},
	}}
	if s.HasActiveEntitlement("premium") {
		t.Fatal("expected an expired entitlement to be inactive")
	}
}

func TestHasActiveEntitlementMissing(t *testing.T) {
	s := Subscriber{Entitlements: map[string]Entitlement{}}
	if s.HasActiveEntitlement("premium") {
		t.Fatal("expected a missing entitlement to be inactive")
	}
}

func TestHasActiveEntitlementUnparseableDate(t *testing.T) {
	s := Subscriber{Entitlements: map[string]Entitlement{
		"premium": {ExpiresDate: strPtr("not-a-date")},
	}}
	if s.HasActiveEntitlement("premium") {
		t.Fatal("expected an unparseable expiry date to be treated as inactive")
	}
}

func TestActiveSubscriptionReturnsFirstActive(t *testing.T) {
	future := time.Now().Add(time.Hour).Format(time.RFC3339)
	s := Subscriber{Subscriptions: map[string]Subscription{
		"pro_monthly": {ExpiresDate: strPtr(future), Store: "app_store"},
	}}
	pid, sub, found := s.ActiveSubscription()
	if !found || pid != "pro_monthly" || sub.Store != "app_store" {
		t.Fatalf("expected to find the active subscription, got %q %+v %v", pid, sub, found)
	}
}

func TestActiveSubscriptionNoneActive(t *testing.T) {
	past := time.Now().Add(-time.Hour).Format(time.RFC3339)
	s := Subscriber{Subscriptions: map[string]Subscription{
		"pro_monthly": {ExpiresDate: strPtr(past)},
	}}
	_, _, found := s.ActiveSubscription()
	if found {
		t.Fatal("expected no active subscription")
	}
}

// redirectToTestServer rewrites every outbound request's host to the
// local httptest server, letting IsPremium be exercised against a fake
// RevenueCat without touching the real API.
type redirectToTestServer struct {
	target *url.URL
}

func (r redirectToTestServer) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = r.target.Scheme
	req.URL.Host = r.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func TestIsPremiumTrueWhenEntitlementActive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"subscriber": {"entitlements": {"premium": {"product_identifier": "lifetime"}}}}`))
	}))
	defer server.Close()

	target, _ := url.Parse(server.URL)
	c := NewClient("test-key", "premium")
	c.httpClient.Transport = redirectToTestServer{target: target}

	isPremium, err := c.IsPremium(context.Background(), "user-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !isPremium {
		t.Fatal("expected user to be premium")
	}
}

func TestIsPremiumFalseWhenNoEntitlement(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"subscriber": {"entitlements": {}}}`))
	}))
	defer server.Close()

	target, _ := url.Parse(server.URL)
	c := NewClient("test-key", "premium")
	c.httpClient.Transport = redirectToTestServer{target: target}

	isPremium, err := c.IsPremium(context.Background(), "user-456")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if isPremium {
		t.Fatal("expected user to not be premium")
	}
}

func TestGetSubscriberNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message": "not found"}`))
	}))
	defer server.Close()

	target, _ := url.Parse(server.URL)
	c := NewClient("test-key", "premium")
	c.httpClient.Transport = redirectToTestServer{target: target}

	_, err := c.GetSubscriber(context.Background(), "missing-user")
	if err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}
