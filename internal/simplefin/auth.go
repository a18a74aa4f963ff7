package simplefin

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxClaimBody bounds the claim response; an access URL is a single line.
const maxClaimBody = 4 << 10

// AuthState is the saved result of claiming a setup token.
type AuthState struct {
	ClaimedAt        time.Time `json:"claimed_at"`
	AccessURL        string    `json:"access_url"`
	TokenFingerprint string    `json:"token_sha256"`
}

// LoadOrClaimAuth returns the access URL saved in stateFile, or claims token
// and saves the result there. A setup token can be claimed only once, so the
// saved state is reused whenever token is empty or is the token it came from.
// A different token is claimed and replaces the saved state.
func LoadOrClaimAuth(ctx context.Context, httpClient *http.Client, token, stateFile string) (*AuthState, error) {
	token = strings.TrimSpace(token)
	logger := slog.Default().With("component", "simplefin", "state_file", stateFile)

	saved, err := loadAuthState(stateFile)
	switch {
	case err == nil && saved.AccessURL != "" && (token == "" || saved.TokenFingerprint == fingerprint(token)):
		logger.Debug("Using saved SimpleFIN access URL", "claimed_at", saved.ClaimedAt.Format(time.DateOnly))
		return saved, nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		logger.Warn("Ignoring unreadable SimpleFIN state", "error", err)
	}

	if token == "" {
		return nil, fmt.Errorf("no saved SimpleFIN access and no setup token: %w", ErrNotConfigured)
	}

	logger.Info("Claiming SimpleFIN setup token")
	accessURL, err := claimToken(ctx, httpClient, token)
	if err != nil {
		return nil, fmt.Errorf("failed to claim token: %w", err)
	}

	auth := &AuthState{
		AccessURL:        accessURL,
		ClaimedAt:        time.Now().UTC(),
		TokenFingerprint: fingerprint(token),
	}
	if err := saveAuthState(stateFile, auth); err != nil {
		// The token is spent; without the file the access URL is lost.
		return nil, fmt.Errorf("claimed SimpleFIN access but failed to save it to %s: %w", stateFile, err)
	}

	logger.Info("Saved SimpleFIN access URL")
	return auth, nil
}

// decodeSetupToken turns a setup token into its claim URL. Bridges hand out
// either URL-safe or standard base64.
func decodeSetupToken(token string) (string, error) {
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.StdEncoding} {
		if decoded, err := enc.DecodeString(token); err == nil {
			return string(decoded), nil
		}
	}
	return "", errors.New("failed to decode SimpleFIN token: not base64")
}

// claimToken POSTs to the claim URL and returns the access URL in the body.
func claimToken(ctx context.Context, httpClient *http.Client, token string) (string, error) {
	claimURL, err := decodeSetupToken(strings.TrimSpace(token))
	if err != nil {
		return "", err
	}
	if !isHTTPURL(claimURL) {
		return "", errors.New("decoded token is not a valid URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claimURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create claim request: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to claim access URL: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxClaimBody))
	if err != nil {
		return "", fmt.Errorf("failed to read access URL: %w", err)
	}
	text := strings.TrimSpace(string(body))
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to claim SimpleFIN access: HTTP %d - %s", resp.StatusCode, text)
	}
	if !isHTTPURL(text) {
		return "", errors.New("claim response is not an access URL")
	}
	return text, nil
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// DefaultStatePath is where the claimed access URL is kept.
func DefaultStatePath(dataDir string) string {
	return filepath.Join(dataDir, "simplefin_auth.json")
}

func loadAuthState(path string) (*AuthState, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from config
	if err != nil {
		return nil, err
	}
	var auth AuthState
	if err := json.Unmarshal(data, &auth); err != nil {
		return nil, fmt.Errorf("corrupt state file: %w", err)
	}
	return &auth, nil
}

// saveAuthState writes owner-only: the access URL carries credentials.
func saveAuthState(path string, auth *AuthState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(auth, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// fingerprint identifies a setup token without storing it.
func fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}
