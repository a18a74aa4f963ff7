package sheets

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

const defaultListenAddr = "localhost:8080"

// ErrConsentDenied is returned when the browser callback reports an error
// instead of an authorization code.
var ErrConsentDenied = errors.New("google sheets consent was not granted")

// OAuth2Config describes the installed-app consent flow used to obtain a
// refresh token for the export.
type OAuth2Config struct {
	// Out receives the consent URL. Defaults to stderr.
	Out          io.Writer
	Endpoint     oauth2.Endpoint
	ClientID     string
	ClientSecret string
	TokenFile    string
	ListenAddr   string
	Timeout      time.Duration
}

func (c OAuth2Config) oauthConfig(redirect string) *oauth2.Config {
	endpoint := c.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  redirect,
		Scopes:       []string{sheets.SpreadsheetsScope},
	}
}

func redirectURL(addr string) string {
	return "http://" + addr + "/callback"
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate oauth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

type callbackResult struct {
	err  error
	code string
}

// callbackHandler answers the single consent redirect and reports the outcome
// on results. Later requests are answered but not reported.
func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res callbackResult
		switch {
		case q.Get("state") != state:
			res.err = fmt.Errorf("%w: state mismatch", ErrConsentDenied)
		case q.Get("error") != "":
			res.err = fmt.Errorf("%w: %s", ErrConsentDenied, q.Get("error"))
		case q.Get("code") == "":
			res.err = fmt.Errorf("%w: no authorization code", ErrConsentDenied)
		default:
			res.code = q.Get("code")
		}

		if res.err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = fmt.Fprint(w, "<html><body><h1>Authentication failed</h1><p>Return to the terminal and run balance auth sheets again.</p></body></html>")
		} else {
			_, _ = fmt.Fprint(w, "<html><body><h1>Balance can now export to Google Sheets</h1><p>You can close this window.</p></body></html>")
		}

		select {
		case results <- res:
		default:
		}
	})
}

// AuthenticateOAuth2Interactive runs the browser consent flow and returns a
// token carrying a refresh token. The callback listener is bound before the
// consent URL is printed, so ListenAddr may use port 0.
func AuthenticateOAuth2Interactive(ctx context.Context, config OAuth2Config) (*oauth2.Token, error) {
	addr := config.ListenAddr
	if addr == "" {
		addr = defaultListenAddr
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	out := config.Out
	if out == nil {
		out = os.Stderr
	}

	state, err := newState()
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}
	oauthConfig := config.oauthConfig(redirectURL(listener.Addr().String()))

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.Handle("/callback", callbackHandler(state, results))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("Callback server stopped", "error", err)
		}
	}()
	defer func() { _ = server.Close() }()

	authURL := oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	_, _ = fmt.Fprintf(out, "Open this URL in a browser to allow Google Sheets access:\n\n  %s\n\n", authURL)
	slog.Debug("Waiting for OAuth callback", "listen", listener.Addr().String())

	var res callbackResult
	select {
	case res = <-results:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		return nil, fmt.Errorf("authentication timed out after %s", timeout)
	}
	if res.err != nil {
		return nil, res.err
	}

	token, err := oauthConfig.Exchange(ctx, res.code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if config.TokenFile != "" {
		if err := saveToken(config.TokenFile, token); err != nil {
			slog.Warn("Failed to save token to file", "error", err, "file", config.TokenFile)
		} else {
			slog.Info("Token saved", "file", config.TokenFile)
		}
	}
	return token, nil
}

// LoadToken reads a token saved by a previous consent flow.
func LoadToken(tokenFile string) (*oauth2.Token, error) {
	data, err := os.ReadFile(tokenFile) // #nosec G304
	if err != nil {
		return nil, err
	}
	token := &oauth2.Token{}
	if err := json.Unmarshal(data, token); err != nil {
		return nil, fmt.Errorf("failed to decode token %s: %w", tokenFile, err)
	}
	return token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// RefreshTokenIfNeeded refreshes an expired token and saves the result.
func RefreshTokenIfNeeded(ctx context.Context, config OAuth2Config, token *oauth2.Token) (*oauth2.Token, error) {
	if token.Valid() {
		return token, nil
	}

	slog.Info("Token expired, refreshing")

	addr := config.ListenAddr
	if addr == "" {
		addr = defaultListenAddr
	}
	newToken, err := config.oauthConfig(redirectURL(addr)).TokenSource(ctx, token).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	if config.TokenFile != "" {
		if err := saveToken(config.TokenFile, newToken); err != nil {
			slog.Warn("Failed to save refreshed token", "error", err)
		}
	}
	return newToken, nil
}

// GetOrCreateToken returns the saved token, refreshed when expired, or runs
// the consent flow when none is saved.
func GetOrCreateToken(ctx context.Context, config OAuth2Config) (*oauth2.Token, error) {
	if config.TokenFile != "" {
		token, err := LoadToken(config.TokenFile)
		if err == nil {
			slog.Debug("Loaded existing token from file", "file", config.TokenFile)
			return RefreshTokenIfNeeded(ctx, config, token)
		}
		slog.Info("No saved Google Sheets token, starting consent flow")
	}
	return AuthenticateOAuth2Interactive(ctx, config)
}
