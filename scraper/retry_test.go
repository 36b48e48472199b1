package scraper

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubSession struct{ closed bool }

func (s *stubSession) Page() Page   { return nil }
func (s *stubSession) Close() error { s.closed = true; return nil }

func TestStartSessionAfterRetries(t *testing.T) {
	config := RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	callCount := 0
	factory := func(ctx context.Context) (Session, error) {
		callCount++
		if callCount < 3 {
			return nil, errors.New("chromium exited")
		}
		return &stubSession{}, nil
	}

	session, err := StartSession(context.Background(), config, factory)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if session == nil {
		t.Fatal("Expected a session")
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
}

func TestStartSessionGivesUp(t *testing.T) {
	config := RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	callCount := 0
	launchErr := errors.New("no chromium binary")
	factory := func(ctx context.Context) (Session, error) {
		callCount++
		return nil, launchErr
	}

	_, err := StartSession(context.Background(), config, factory)
	if !errors.Is(err, launchErr) {
		t.Errorf("Expected wrapped launch error, got %v", err)
	}
	if callCount != 3 { // MaxRetries + 1
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
}

func TestStartSessionCancelled(t *testing.T) {
	config := RetryConfig{MaxRetries: 5, BaseDelay: 50 * time.Millisecond, MaxDelay: 200 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	callCount := 0
	factory := func(ctx context.Context) (Session, error) {
		callCount++
		cancel()
		return nil, errors.New("failure")
	}

	_, err := StartSession(ctx, config, factory)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestCalculateBackoffDelay(t *testing.T) {
	baseDelay := 10 * time.Millisecond
	maxDelay := 100 * time.Millisecond

	tests := []struct {
		attempt     int
		minDelay    time.Duration
		maxExpected time.Duration
	}{
		{0, 5 * time.Millisecond, 15 * time.Millisecond},
		{1, 10 * time.Millisecond, 30 * time.Millisecond},
		{4, 50 * time.Millisecond, 100 * time.Millisecond},
		{100, 50 * time.Millisecond, 100 * time.Millisecond},
	}

	for _, test := range tests {
		for i := 0; i < 10; i++ {
			result := calculateBackoffDelay(test.attempt, baseDelay, maxDelay)
			if result < test.minDelay || result > test.maxExpected {
				t.Errorf("calculateBackoffDelay(%d) = %v, expected between %v and %v",
					test.attempt, result, test.minDelay, test.maxExpected)
			}
		}
	}
}
