package googleauth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	tok := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour).UTC(),
	}

	require.NoError(t, saveToken(path, tok))

	got, err := tokenFromFile(path)
	require.NoError(t, err)
	require.Equal(t, tok.AccessToken, got.AccessToken)
	require.Equal(t, tok.RefreshToken, got.RefreshToken)
	require.True(t, got.Valid())
}

func TestTokenFromFile_Missing(t *testing.T) {
	_, err := tokenFromFile(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestStaleToken(t *testing.T) {
	expired := time.Now().Add(-time.Hour)

	require.True(t, staleToken(nil))
	// Expired and no refresh token: only a new consent flow can recover.
	require.True(t, staleToken(&oauth2.Token{AccessToken: "a", Expiry: expired}))
	// Expired but refreshable.
	require.False(t, staleToken(&oauth2.Token{AccessToken: "a", Expiry: expired, RefreshToken: "r"}))
	// Still valid.
	require.False(t, staleToken(&oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(time.Hour)}))
}

type staticSource struct{ tok *oauth2.Token }

func (s staticSource) Token() (*oauth2.Token, error) { return s.tok, nil }

func TestPersistingSource_WritesRefreshedToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	refreshed := &oauth2.Token{AccessToken: "new", Expiry: time.Now().Add(time.Hour)}

	src := &persistingSource{
		path:  path,
		inner: staticSource{tok: refreshed},
		last:  &oauth2.Token{AccessToken: "old"},
	}

	got, err := src.Token()
	require.NoError(t, err)
	require.Equal(t, "new", got.AccessToken)

	onDisk, err := tokenFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "new", onDisk.AccessToken)
}
