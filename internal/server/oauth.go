package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/shared"
	"golang.org/x/oauth2"
)

// OAuthResult is the outcome of one authorization callback.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler serves the authorization code callback.
//
// Only the first request is processed; later requests are rejected.
type OAuthHandler struct {
	config  *oauth2.Config
	state   string
	results chan OAuthResult
	handled atomic.Bool
}

// NewOAuthHandler creates a handler that accepts callbacks carrying state.
func NewOAuthHandler(config *oauth2.Config, state string) *OAuthHandler {
	return &OAuthHandler{config: config, state: state, results: make(chan OAuthResult, 1)}
}

func (h *OAuthHandler) Routes() []string {
	return []string{"GET /callback"}
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.handled.CompareAndSwap(false, true) {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}

	query := r.URL.Query()
	if query.Get("state") != h.state {
		h.fail(w, http.StatusBadRequest, "Invalid state parameter",
			fmt.Errorf("%w: invalid state parameter", shared.ErrNotAuthenticated))
		return
	}

	code := query.Get("code")
	if code == "" {
		h.fail(w, http.StatusBadRequest, "Authorization failed",
			fmt.Errorf("%w: authorization denied: %s %s", shared.ErrNotAuthenticated, query.Get("error"), query.Get("error_description")))
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.fail(w, http.StatusInternalServerError, "Token exchange failed", fmt.Errorf("token exchange failed: %w", err))
		return
	}

	h.results <- OAuthResult{Token: token}
	close(h.results)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, successPage)
}

func (h *OAuthHandler) fail(w http.ResponseWriter, status int, message string, err error) {
	h.results <- OAuthResult{err: err}
	close(h.results)
	http.Error(w, message, status)
}

// Result receives exactly one result, after which the channel is closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}

const successPage = `<!DOCTYPE html>
<html>
<head>
  <title>spindle</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, sans-serif; display: flex;
           align-items: center; justify-content: center; height: 100vh; margin: 0; background: #121212; }
    main { text-align: center; color: #b3b3b3; }
    h1 { color: #1DB954; }
  </style>
</head>
<body>
  <main>
    <h1>Authorization Successful</h1>
    <p>You can close this window and return to the terminal.</p>
  </main>
</body>
</html>
`

// AwaitToken serves h on ln until the callback completes, ctx ends or timeout passes.
//
// The server is shut down before returning.
func AwaitToken(ctx context.Context, ln net.Listener, h *OAuthHandler, timeout time.Duration, logger *log.Logger) (*oauth2.Token, error) {
	router := NewBasicRouter()
	router.Use(RequestLogger(logger))
	router.Handler(h)

	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("error shutting down callback server", "error", err)
		}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result OAuthResult
	select {
	case result = <-h.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("callback server error: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrNotAuthenticated, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrNotAuthenticated)
	}
	return result.Token, nil
}

// RequestLogger logs each request at debug level.
func RequestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("callback request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
		})
	}
}
