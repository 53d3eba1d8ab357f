package cache

import (
	"testing"
	"time"
)

func TestRefreshResultBuilder_Build(t *testing.T) {
	stale := time.Now().Add(time.Hour)
	prefetch := time.Now().Add(30 * time.Minute)

	result, err := NewRefreshResultBuilder("value").
		StaleTime(stale).
		PrefetchTime(prefetch).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if result.Value() != "value" {
		t.Errorf("Expected value 'value', got %s", result.Value())
	}
	if !result.StaleTime().Equal(stale) {
		t.Errorf("Expected stale time %v, got %v", stale, result.StaleTime())
	}
	if !result.PrefetchTime().Equal(prefetch) {
		t.Errorf("Expected prefetch time %v, got %v", prefetch, result.PrefetchTime())
	}
}

func TestRefreshResultBuilder_PrefetchAfterStale(t *testing.T) {
	now := time.Now()

	_, err := NewRefreshResultBuilder("value").
		StaleTime(now.Add(10 * time.Minute)).
		PrefetchTime(now.Add(20 * time.Minute)).
		Build()
	if err == nil {
		t.Fatal("Expected error when prefetch time follows stale time")
	}
}

func TestRefreshResultBuilder_ZeroTimesAllowed(t *testing.T) {
	result, err := NewRefreshResultBuilder(42).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if !result.StaleTime().IsZero() {
		t.Error("Expected zero stale time")
	}
	if !result.PrefetchTime().IsZero() {
		t.Error("Expected zero prefetch time")
	}
	if result.Value() != 42 {
		t.Errorf("Expected value 42, got %d", result.Value())
	}
}

func TestRefreshResultBuilder_NotAfter(t *testing.T) {
	expiry := time.Now().Add(time.Hour)

	result, err := NewRefreshResultBuilder("value").
		StaleTime(expiry.Add(-10 * time.Minute)).
		PrefetchTime(expiry.Add(-20 * time.Minute)).
		NotAfter(expiry).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if !result.NotAfter().Equal(expiry) {
		t.Errorf("Expected not-after %v, got %v", expiry, result.NotAfter())
	}
}
