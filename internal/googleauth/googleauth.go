// Package googleauth implements the OAuth desktop-app flow shared by the
// Gmail and Calendar servers. Tokens are persisted per service; deleting a
// token file forces re-authentication on next use.
package googleauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/conciergebot/concierge/internal/logger"
)

// Client returns an authenticated HTTP client for the given scopes, using the
// OAuth client secret at credentialsFile and the cached token at tokenFile.
// Expired tokens with a refresh token are refreshed transparently; otherwise
// the interactive flow runs on the controlling terminal.
func Client(ctx context.Context, credentialsFile, tokenFile string, scopes ...string) (*http.Client, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read client secret file: %w", err)
	}
	cfg, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse client secret file: %w", err)
	}

	tok, err := tokenFromFile(tokenFile)
	if err != nil || staleToken(tok) {
		if err != nil {
			logger.L.Info("no cached token; starting OAuth flow", "tokenFile", tokenFile)
		} else {
			logger.L.Info("cached token expired with no refresh token; starting OAuth flow", "tokenFile", tokenFile)
		}
		tok, err = tokenFromWeb(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokenFile, tok); err != nil {
			return nil, err
		}
	}

	// Wrap the cached token so refreshed tokens get written back.
	source := &persistingSource{
		path:  tokenFile,
		inner: cfg.TokenSource(ctx, tok),
		last:  tok,
	}
	return oauth2.NewClient(ctx, source), nil
}

// tokenFromWeb runs the desktop authorization flow: a loopback listener on a
// random port receives the redirect while the user approves in a browser.
// The URL is printed to stderr because stdout may carry an MCP transport.
func tokenFromWeb(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("start oauth callback listener: %w", err)
	}
	defer ln.Close()

	cfg.RedirectURL = fmt.Sprintf("http://%s/", ln.Addr().String())
	state := randomState()
	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
	fmt.Fprintf(os.Stderr, "Authorize this application by visiting:\n%s\n", authURL)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			errCh <- fmt.Errorf("oauth state mismatch")
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			errCh <- fmt.Errorf("oauth redirect missing code")
			return
		}
		fmt.Fprintln(w, "Authorization received. You can close this tab.")
		codeCh <- code
	})}
	go srv.Serve(ln)
	defer srv.Close()

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

func randomState() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// staleToken reports whether a cached token can neither be used nor
// refreshed, so the consent flow must run again.
func staleToken(tok *oauth2.Token) bool {
	return tok == nil || (!tok.Valid() && tok.RefreshToken == "")
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("save token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}

// persistingSource writes tokens back to disk whenever the inner source
// refreshes them.
type persistingSource struct {
	path  string
	inner oauth2.TokenSource
	last  *oauth2.Token
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.inner.Token()
	if err != nil {
		return nil, err
	}
	if s.last == nil || tok.AccessToken != s.last.AccessToken {
		s.last = tok
		if err := saveToken(s.path, tok); err != nil {
			logger.L.Warn("failed to persist refreshed token", "path", s.path, "error", err)
		}
	}
	return tok, nil
}
