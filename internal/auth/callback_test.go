package auth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestCallbackServerReceivesCode(t *testing.T) {
	server, err := NewCallbackServer()
	if err != nil {
		t.Fatalf("NewCallbackServer failed: %v", err)
	}
	server.Start()

	redirectURI := server.RedirectURI()
	if !strings.HasPrefix(redirectURI, "http://127.0.0.1:") || !strings.HasSuffix(redirectURI, "/callback") {
		t.Fatalf("unexpected redirect URI %q", redirectURI)
	}

	go func() {
		resp, err := http.Get(redirectURI + "?code=authcode123&state=state456")
		if err == nil {
			resp.Body.Close()
		}
	}()

	ctx := context.Background()
	result, err := server.WaitForCallback(ctx, 5*time.Second)
	if err != nil {
		t.Fatalf("WaitForCallback failed: %v", err)
	}
	if result.Code != "authcode123" {
		t.Errorf("code = %q, want authcode123", result.Code)
	}
	if result.State != "state456" {
		t.Errorf("state = %q, want state456", result.State)
	}
}

func TestCallbackServerProviderError(t *testing.T) {
	server, err := NewCallbackServer()
	if err != nil {
		t.Fatalf("NewCallbackServer failed: %v", err)
	}
	server.Start()

	go func() {
		resp, err := http.Get(server.RedirectURI() + "?error=access_denied&error_description=user+rejected")
		if err == nil {
			resp.Body.Close()
		}
	}()

	_, err = server.WaitForCallback(context.Background(), 5*time.Second)
	var authErr *AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthorizationError, got %v", err)
	}
	if authErr.Code != "access_denied" {
		t.Errorf("code = %q, want access_denied", authErr.Code)
	}
	if authErr.Description != "user rejected" {
		t.Errorf("description = %q, want %q", authErr.Description, "user rejected")
	}
}

func TestCallbackServerSecondRequestRejected(t *testing.T) {
	server, err := NewCallbackServer()
	if err != nil {
		t.Fatalf("NewCallbackServer failed: %v", err)
	}
	server.Start()
	defer server.Stop()

	redirectURI := server.RedirectURI()

	first, err := http.Get(redirectURI + "?code=first&state=s")
	if err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	first.Body.Close()
	if first.StatusCode != http.StatusOK {
		t.Errorf("first request status = %d, want 200", first.StatusCode)
	}

	second, err := http.Get(redirectURI + "?code=second&state=s")
	if err != nil {
		t.Fatalf("second request failed: %v", err)
	}
	second.Body.Close()
	if second.StatusCode != http.StatusBadRequest {
		t.Errorf("second request status = %d, want 400", second.StatusCode)
	}

	result, err := server.WaitForCallback(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("WaitForCallback failed: %v", err)
	}
	if result.Code != "first" {
		t.Errorf("code = %q, want the first request's code", result.Code)
	}
}

func TestCallbackServerTimeout(t *testing.T) {
	server, err := NewCallbackServer()
	if err != nil {
		t.Fatalf("NewCallbackServer failed: %v", err)
	}
	server.Start()
	addr := server.listener.Addr().String()

	start := time.Now()
	_, err = server.WaitForCallback(context.Background(), time.Second)
	elapsed := time.Since(start)

	var timeoutErr *CallbackTimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected CallbackTimeoutError, got %v", err)
	}
	if elapsed > 1500*time.Millisecond {
		t.Errorf("timeout took %s, want <= 1.5s", elapsed)
	}

	// The port must be free again once the wait returns.
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		t.Fatalf("port %s still bound after timeout: %v", addr, err)
	}
	listener.Close()
}

func TestCallbackServerContextCancel(t *testing.T) {
	server, err := NewCallbackServer()
	if err != nil {
		t.Fatalf("NewCallbackServer failed: %v", err)
	}
	server.Start()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err = server.WaitForCallback(ctx, 10*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
