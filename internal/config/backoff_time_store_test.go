package config

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestDoWithBackoff(t *testing.T) {
	tests := []struct {
		name          string
		maxRetries    int
		ctxTimeout    time.Duration
		handler       func(req *http.Request) (*http.Response, error)
		expectErr     string
		expectCalls   int
		expectSuccess bool
	}{
		{
			name:       "success on first try",
			maxRetries: 3,
			handler: func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: 200, Body: http.NoBody}, nil
			},
			expectErr:     "",
			expectCalls:   1,
			expectSuccess: true,
		},
		{
			name:       "max retries exceeded",
			maxRetries: 2,
			handler: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("mock error")
			},
			expectErr:   "max retries exceeded",
			expectCalls: 3,
		},
		{
			name:       "context cancelled before success",
			maxRetries: 0,
			ctxTimeout: 50 * time.Millisecond,
			handler: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("fail")
			},
			expectErr:   "context deadline exceeded",
			expectCalls: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockRoundTripper{handler: tt.handler}
			client := &http.Client{Transport: mock}
			req, _ := http.NewRequest("GET", "http://example.com", nil)

			ctx := context.Background()
			if tt.ctxTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, tt.ctxTimeout)
				defer cancel()
			}

			resp, err := DoWithBackoff(ctx, client, req, tt.maxRetries)

			if tt.expectErr == "" && err != nil {
				t.Fatalf("expected success, got error: %v", err)
			}
			if tt.expectErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.expectErr) {
					t.Fatalf("expected error containing %q, got %v", tt.expectErr, err)
				}
			}
			if tt.expectSuccess && resp == nil {
				t.Fatalf("expected response, got nil")
			}

			if tt.expectCalls >= 0 && mock.calls != tt.expectCalls {
				t.Errorf("expected %d calls, got %d", tt.expectCalls, mock.calls)
			}
		})
	}
}

func TestDoWithBackoffRetriesServerErrors(t *testing.T) {
	calls := 0
	mock := &mockRoundTripper{handler: func(req *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return &http.Response{StatusCode: http.StatusBadGateway, Body: http.NoBody}, nil
		}
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	}}
	client := &http.Client{Transport: mock}
	req, _ := http.NewRequest("GET", "http://example.com/coverage.json", nil)

	resp, err := DoWithBackoff(context.Background(), client, req, 3)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
	if mock.calls != 2 {
		t.Errorf("expected 2 calls, got %d", mock.calls)
	}
}

func TestBackoffStore(t *testing.T) {
	store := NewBackoffStore()
	source := "https://config.example.com/coverage.json"

	if _, ok := store.NextRetryAt(source); ok {
		t.Fatalf("expected no backoff for a fresh source")
	}

	before := time.Now()
	store.UpdateBackoff(source)
	first, ok := store.NextRetryAt(source)
	if !ok {
		t.Fatalf("expected backoff after a failure")
	}
	maxFirst := before.Add(time.Duration(float64(BASE_BACKOFF) * (1 + JITTER_FACTOR)))
	if first.Before(before.Add(BASE_BACKOFF)) || first.After(maxFirst.Add(time.Second)) {
		t.Errorf("first retry at %v outside [%v, %v]", first, before.Add(BASE_BACKOFF), maxFirst)
	}

	for i := 0; i < 20; i++ {
		store.UpdateBackoff(source)
	}
	capped, _ := store.NextRetryAt(source)
	if capped.After(time.Now().Add(MAX_BACKOFF + time.Second)) {
		t.Errorf("expected retry to be capped at %v, got %v", MAX_BACKOFF, time.Until(capped))
	}

	store.ResetBackoff(source)
	if _, ok := store.NextRetryAt(source); ok {
		t.Errorf("expected backoff to be cleared after reset")
	}
}
