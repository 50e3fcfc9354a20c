package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"pup/pkg/logging"
)

// DefaultCallbackTimeout is how long WaitForCallback waits for the browser
// redirect before giving up.
const DefaultCallbackTimeout = 300 * time.Second

// CallbackResult carries what the authorization server sent back through the
// browser redirect.
type CallbackResult struct {
	Code  string
	State string
	Err   error
}

// CallbackServer is a throwaway HTTP listener on an ephemeral loopback port
// that catches a single OAuth redirect and then shuts down.
type CallbackServer struct {
	listener net.Listener
	server   *http.Server
	result   chan CallbackResult
	once     sync.Once
	stopOnce sync.Once
}

// NewCallbackServer binds an ephemeral port on 127.0.0.1 immediately, so the
// redirect URI is known before the authorization request is built. The
// listener does not accept requests until Start is called.
func NewCallbackServer() (*CallbackServer, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to bind callback listener: %w", err)
	}

	s := &CallbackServer{
		listener: listener,
		result:   make(chan CallbackResult, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", s.handleCallback)
	s.server = &http.Server{Handler: mux}

	return s, nil
}

// RedirectURI returns the redirect URI for this listener, including the
// actual port the OS assigned.
func (s *CallbackServer) RedirectURI() string {
	return fmt.Sprintf("http://%s/callback", s.listener.Addr().String())
}

// Start begins serving in a background goroutine. It returns immediately.
func (s *CallbackServer) Start() {
	go func() {
		if err := s.server.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			logging.Error("OAuthCallback", err, "Callback server terminated unexpectedly")
		}
	}()
	logging.Debug("OAuthCallback", "Callback server listening on %s", s.listener.Addr().String())
}

// handleCallback processes the browser redirect. Only the first request
// delivers a result; any later request gets a 400.
func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	delivered := false
	s.once.Do(func() {
		delivered = true

		if errCode := query.Get("error"); errCode != "" {
			authErr := &AuthorizationError{
				Code:        errCode,
				Description: query.Get("error_description"),
			}
			s.result <- CallbackResult{Err: authErr}
			writeCallbackPage(w, http.StatusOK, "Authentication Failed",
				fmt.Sprintf("The authorization server reported an error: %s. You can close this window and return to the terminal.", authErr.Error()))
			return
		}

		code := query.Get("code")
		if code == "" {
			s.result <- CallbackResult{Err: fmt.Errorf("callback request missing authorization code")}
			writeCallbackPage(w, http.StatusBadRequest, "Authentication Failed",
				"The callback did not include an authorization code. You can close this window and return to the terminal.")
			return
		}

		s.result <- CallbackResult{Code: code, State: query.Get("state")}
		writeCallbackPage(w, http.StatusOK, "Authentication Successful",
			"You are signed in. You can close this window and return to the terminal.")
	})

	if !delivered {
		writeCallbackPage(w, http.StatusBadRequest, "Already Handled",
			"This login attempt has already been completed. You can close this window.")
	}
}

// WaitForCallback blocks until the redirect arrives, the timeout elapses or
// the context is cancelled. The socket is released on every exit path.
func (s *CallbackServer) WaitForCallback(ctx context.Context, timeout time.Duration) (*CallbackResult, error) {
	defer s.Stop()

	if timeout <= 0 {
		timeout = DefaultCallbackTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-s.result:
		if result.Err != nil {
			return nil, result.Err
		}
		return &result, nil
	case <-timer.C:
		return nil, &CallbackTimeoutError{Budget: timeout}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop shuts the server down and releases the port. Safe to call repeatedly.
func (s *CallbackServer) Stop() {
	s.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.server.Close()
		}
		logging.Debug("OAuthCallback", "Callback server stopped")
	})
}

// writeCallbackPage renders the minimal HTML page shown in the browser tab
// after the redirect lands.
func writeCallbackPage(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h1>%s</h1>
<p>%s</p>
</body>
</html>`, title, title, message)
}
