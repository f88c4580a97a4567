package spotify

import (
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// ErrNotAuthorized is returned when neither a refresh token nor a cached token is available.
var ErrNotAuthorized = errors.New("spotify authorization required: run radiosync-auth or set SPOTIFY_REFRESH_TOKEN")

// Scopes are the permissions radiosync needs on the user's playlists.
var Scopes = []string{
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopePlaylistReadPrivate,
}

// NewAuthenticator creates an authenticator for the configured app.
func NewAuthenticator(cfg Config) *spotifyauth.Authenticator {
	opts := []spotifyauth.AuthenticatorOption{
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(Scopes...),
	}
	if cfg.RedirectURI != "" {
		opts = append(opts, spotifyauth.WithRedirectURL(cfg.RedirectURI))
	}
	return spotifyauth.New(opts...)
}

// LoadToken reads a token written by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotAuthorized, "no token file at %s", path)
		}
		return nil, errors.Wrap(err, "failed to read token file")
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, errors.Wrap(err, "failed to parse token file")
	}
	if token.RefreshToken == "" && token.AccessToken == "" {
		return nil, errors.Wrapf(ErrNotAuthorized, "token file %s is empty", path)
	}
	return &token, nil
}

// SaveToken writes the token to path, readable only by the owner.
func SaveToken(path string, token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode token")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(err, "failed to write token file")
	}
	return nil
}
