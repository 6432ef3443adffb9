package msgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

var requiredScopes = []string{
	"https://graph.microsoft.com/Calendars.Read",
	"offline_access",
}

func msEndpoint(tenantID, path string) string {
	return "https://login.microsoftonline.com/" + tenantID + "/oauth2/v2.0/" + path
}

// TokenCache stores the Graph OAuth2 token below the data directory.
type TokenCache struct {
	path string
}

// NewTokenCache returns a cache at <dataDir>/auth/msgraph_tokens.json.
func NewTokenCache(dataDir string) TokenCache {
	return TokenCache{path: filepath.Join(dataDir, "auth", "msgraph_tokens.json")}
}

// oauth2Config returns the oauth2.Config for Microsoft Graph using the
// provided tenant and client IDs.
func oauth2Config(tenantID, clientID string) *oauth2.Config {
	return &oauth2.Config{
		ClientID: clientID,
		Scopes:   requiredScopes,
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: msEndpoint(tenantID, "devicecode"),
			TokenURL:      msEndpoint(tenantID, "token"),
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}
}

// Load reads a previously saved token. A missing file yields nil, nil.
func (c TokenCache) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading token file")
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, errors.Wrapf(err, "corrupt token file (delete %s to re-authenticate)", c.path)
	}
	return &tok, nil
}

// Save persists tok atomically with owner-only permissions.
func (c TokenCache) Save(tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return errors.Wrap(err, "creating auth directory")
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshalling token")
	}
	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return errors.Wrap(err, "writing token file")
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "saving token file")
	}
	return nil
}

// Authenticator signs in to Microsoft Graph with the device code flow and
// keeps the token in a TokenCache.
type Authenticator struct {
	Config *oauth2.Config
	Cache  TokenCache
	// Prompt shows the sign-in page and the code to enter there.
	Prompt func(verificationURI, userCode string)
}

// NewAuthenticator returns an Authenticator for the given app registration
// that prints sign-in instructions to out.
func NewAuthenticator(tenantID, clientID string, cache TokenCache, out io.Writer) Authenticator {
	return Authenticator{
		Config: oauth2Config(tenantID, clientID),
		Cache:  cache,
		Prompt: func(uri, code string) {
			fmt.Fprintf(out, "\nTo sign in, open %s and enter the code %s\n\n", uri, code)
		},
	}
}

// Token returns a valid token. The cached token is reused or refreshed when
// possible; otherwise the user signs in again.
func (a Authenticator) Token(ctx context.Context) (*oauth2.Token, error) {
	if tok := a.cached(ctx); tok != nil {
		return tok, nil
	}
	resp, err := a.Config.DeviceAuth(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "device auth request failed")
	}
	a.Prompt(resp.VerificationURI, resp.UserCode)
	tok, err := a.Config.DeviceAccessToken(ctx, resp)
	if err != nil {
		return nil, errors.Wrap(err, "device authentication failed")
	}
	a.save(tok)
	return tok, nil
}

// cached returns the cached token, refreshed if it expired, or nil when a
// new sign-in is needed.
func (a Authenticator) cached(ctx context.Context) *oauth2.Token {
	tok, err := a.Cache.Load()
	switch {
	case err != nil:
		slog.Warn("ignoring cached token", "error", err)
		return nil
	case tok == nil:
		return nil
	case tok.Valid():
		return tok
	case tok.RefreshToken == "":
		return nil
	}
	refreshed, err := a.Config.TokenSource(ctx, tok).Token()
	if err != nil {
		slog.Info("token refresh failed, signing in again", "error", err)
		return nil
	}
	a.save(refreshed)
	return refreshed
}

func (a Authenticator) save(tok *oauth2.Token) {
	if err := a.Cache.Save(tok); err != nil {
		slog.Warn("could not save token", "error", err)
	}
}
