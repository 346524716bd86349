package booking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"voicedine-service/internal/models"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New("", ""); err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestTriggerCallPayload(t *testing.T) {
	var captured callRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "bland-key" {
			t.Errorf("expected Authorization bland-key, got %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(callResponse{Status: "success", CallID: "call-123"})
	}))
	defer srv.Close()

	c, err := New("bland-key", "", WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	result, err := c.TriggerCall(context.Background(), models.BookingRequest{
		RestaurantName: "Le Petit Bistro",
		PhoneNumber:    "+33123456789",
	})
	if err != nil {
		t.Fatalf("TriggerCall() failed: %v", err)
	}

	if result.CallID != "call-123" || result.Status != "success" {
		t.Errorf("unexpected result: %+v", result)
	}
	if captured.PhoneNumber != "+33123456789" {
		t.Errorf("expected destination +33123456789, got %q", captured.PhoneNumber)
	}
	if captured.Language != "fr" {
		t.Errorf("expected language fr, got %q", captured.Language)
	}
	if !captured.ReduceLatency || !captured.Record {
		t.Errorf("expected reduce_latency and record true: %+v", captured)
	}
	if captured.MaxDuration != 5 {
		t.Errorf("expected max_duration 5, got %d", captured.MaxDuration)
	}
	if captured.WaitForGreeting {
		t.Error("expected wait_for_greeting false")
	}
	if !strings.Contains(captured.Task, "Le Petit Bistro") {
		t.Errorf("task prompt does not mention the restaurant: %q", captured.Task)
	}
	if !strings.Contains(captured.FirstSentence, "Le Petit Bistro") {
		t.Errorf("first sentence does not mention the restaurant: %q", captured.FirstSentence)
	}
}

func TestTriggerCallOverrideNumber(t *testing.T) {
	var captured callRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(callResponse{Status: "success", CallID: "call-1"})
	}))
	defer srv.Close()

	c, _ := New("k", "+33600000000", WithEndpoint(srv.URL))
	if _, err := c.TriggerCall(context.Background(), models.BookingRequest{
		RestaurantName: "Chez Test",
		PhoneNumber:    "+33111111111",
	}); err != nil {
		t.Fatalf("TriggerCall() failed: %v", err)
	}
	if captured.PhoneNumber != "+33600000000" {
		t.Errorf("expected override number, got %q", captured.PhoneNumber)
	}
}

func TestTriggerCallNoDestination(t *testing.T) {
	c, _ := New("k", "")
	if _, err := c.TriggerCall(context.Background(), models.BookingRequest{RestaurantName: "X"}); err == nil {
		t.Error("expected error when no destination number is available")
	}
}

func TestTriggerCallUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, _ := New("k", "+33600000000", WithEndpoint(srv.URL))
	if _, err := c.TriggerCall(context.Background(), models.BookingRequest{RestaurantName: "X"}); err == nil {
		t.Error("expected error for upstream failure")
	}
}
