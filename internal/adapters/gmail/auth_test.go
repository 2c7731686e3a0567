package gmail

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestSaveAndLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	tok := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour).Round(time.Second),
	}

	require.NoError(t, SaveToken(path, tok))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, tok.AccessToken, loaded.AccessToken)
	assert.Equal(t, tok.RefreshToken, loaded.RefreshToken)
	assert.True(t, tok.Expiry.Equal(loaded.Expiry))
}

func TestLoadTokenErrors(t *testing.T) {
	_, err := LoadToken(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))
	_, err = LoadToken(path)
	assert.Error(t, err)
}

func TestUsableToken(t *testing.T) {
	assert.False(t, usableToken(nil))
	assert.False(t, usableToken(&oauth2.Token{}))
	assert.False(t, usableToken(&oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(-time.Hour)}))
	assert.True(t, usableToken(&oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(time.Hour)}))
	assert.True(t, usableToken(&oauth2.Token{RefreshToken: "r"}))
}

func TestAuthenticate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.Form.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh","token_type":"Bearer","refresh_token":"r1","expires_in":3600}`))
	}))
	defer srv.Close()

	conf := &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:  srv.URL + "/auth",
			TokenURL: srv.URL + "/token",
		},
		RedirectURL: "urn:ietf:wg:oauth:2.0:oob",
	}

	var out bytes.Buffer
	tok, err := Authenticate(context.Background(), conf, strings.NewReader("the-code\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)
	assert.Equal(t, "r1", tok.RefreshToken)
	assert.Contains(t, out.String(), srv.URL+"/auth")
	assert.Contains(t, out.String(), "access_type=offline")

	_, err = Authenticate(context.Background(), conf, strings.NewReader("\n"), &out)
	assert.Error(t, err)
}

func TestNewOAuthConfig(t *testing.T) {
	_, err := NewOAuthConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "credentials.json")
	creds := `{"installed":{"client_id":"id","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`
	require.NoError(t, os.WriteFile(path, []byte(creds), 0600))

	conf, err := NewOAuthConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "id", conf.ClientID)
	assert.Equal(t, []string{"https://www.googleapis.com/auth/gmail.modify"}, conf.Scopes)
}
