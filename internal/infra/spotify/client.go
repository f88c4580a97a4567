// Package spotify provides a client for the Spotify API.
package spotify

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/osa030/radiosync/internal/domain/track"
)

// MaxItemsPerRequest is the Spotify cap on tracks per playlist add request.
const MaxItemsPerRequest = 100

// Client is a Spotify API client.
type Client struct {
	client      *spotify.Client
	market      string
	maxAttempts int
	retryDelay  time.Duration
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	RefreshToken string // takes precedence over TokenFile
	TokenFile    string // token cached by the auth command
	Market       string
	Timeout      time.Duration
	MaxAttempts  int // 1 means no retries
}

// New creates a new authorized Spotify client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("spotify credentials are required")
	}

	token, err := cfg.token()
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// Token refreshes go through the same timeout as API calls
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: timeout})
	httpClient := NewAuthenticator(cfg).Client(ctx, token)
	httpClient.Timeout = timeout

	return newClient(spotify.New(httpClient), cfg), nil
}

func newClient(api *spotify.Client, cfg Config) *Client {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Client{
		client:      api,
		market:      cfg.Market,
		maxAttempts: attempts,
		retryDelay:  time.Second,
	}
}

// token returns the OAuth token to start from.
func (cfg Config) token() (*oauth2.Token, error) {
	if cfg.RefreshToken != "" {
		return &oauth2.Token{RefreshToken: cfg.RefreshToken}, nil
	}
	if cfg.TokenFile == "" {
		return nil, ErrNotAuthorized
	}
	token, err := LoadToken(cfg.TokenFile)
	if err != nil {
		return nil, err
	}
	return token, nil
}

// PlaylistDescription returns the playlist's description text.
func (c *Client) PlaylistDescription(ctx context.Context, playlistID string) (string, error) {
	id := extractPlaylistID(playlistID)

	var playlist *spotify.FullPlaylist
	err := c.retry(func() error {
		p, err := c.client.GetPlaylist(ctx, spotify.ID(id), spotify.Fields("description"))
		if err != nil {
			return err
		}
		playlist = p
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to get playlist")
	}

	// Spotify returns descriptions HTML-escaped
	return html.UnescapeString(playlist.Description), nil
}

// PlaylistTrackIDs retrieves the IDs of all tracks in a playlist, following
// the next-page cursor until the last page. Order is kept; duplicates are not removed.
func (c *Client) PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error) {
	id := extractPlaylistID(playlistID)
	if id == "" {
		return nil, errors.New("invalid playlist ID")
	}

	opts := []spotify.RequestOption{spotify.Limit(MaxItemsPerRequest)}
	if c.market != "" {
		opts = append(opts, spotify.Market(c.market))
	}

	var page *spotify.PlaylistItemPage
	err := c.retry(func() error {
		p, err := c.client.GetPlaylistItems(ctx, spotify.ID(id), opts...)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get playlist items")
	}

	var ids []string
	for {
		for _, item := range page.Items {
			// Only process tracks (exclude episodes)
			if item.Track.Track != nil && item.Track.Track.ID != "" {
				ids = append(ids, string(item.Track.Track.ID))
			}
		}

		err := c.retry(func() error {
			return c.client.NextPage(ctx, page)
		})
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to get next playlist page")
		}
	}

	zlog.Debug().Msgf("listed playlist tracks: playlist=%s count=%d", id, len(ids))
	return ids, nil
}

// ClearPlaylist removes every item from a playlist.
func (c *Client) ClearPlaylist(ctx context.Context, playlistID string) error {
	id := extractPlaylistID(playlistID)
	err := c.retry(func() error {
		return c.client.ReplacePlaylistTracks(ctx, spotify.ID(id))
	})
	if err != nil {
		return errors.Wrap(err, "failed to clear playlist")
	}
	return nil
}

// AddTracksToPlaylist adds up to MaxItemsPerRequest tracks to a playlist in one request.
// trackIDs can be Spotify IDs, URLs, or URIs.
func (c *Client) AddTracksToPlaylist(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}
	if len(trackIDs) > MaxItemsPerRequest {
		return errors.Newf("cannot add %d tracks in one request (max %d)", len(trackIDs), MaxItemsPerRequest)
	}

	ids := make([]spotify.ID, len(trackIDs))
	for i, trackID := range trackIDs {
		ids[i] = spotify.ID(extractTrackID(trackID))
	}

	err := c.retry(func() error {
		_, err := c.client.AddTracksToPlaylist(ctx, spotify.ID(extractPlaylistID(playlistID)), ids...)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "failed to add tracks to playlist")
	}
	return nil
}

// SetPlaylistDescription replaces the playlist's description.
func (c *Client) SetPlaylistDescription(ctx context.Context, playlistID, description string) error {
	id := extractPlaylistID(playlistID)
	err := c.retry(func() error {
		return c.client.ChangePlaylistDescription(ctx, spotify.ID(id), description)
	})
	if err != nil {
		return errors.Wrap(err, "failed to update playlist description")
	}
	return nil
}

// Search searches for tracks on Spotify.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]track.Track, error) {
	if query == "" {
		return nil, errors.New("search query is required")
	}

	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	opts := []spotify.RequestOption{spotify.Limit(limit)}
	if c.market != "" {
		opts = append(opts, spotify.Market(c.market))
	}

	var result *spotify.SearchResult
	err := c.retry(func() error {
		r, err := c.client.Search(ctx, query, spotify.SearchTypeTrack, opts...)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to search")
	}

	if result.Tracks == nil {
		return []track.Track{}, nil
	}

	tracks := make([]track.Track, 0, len(result.Tracks.Tracks))
	for _, t := range result.Tracks.Tracks {
		tracks = append(tracks, *c.convertTrack(&t))
	}

	return tracks, nil
}

// GetPlaylistURL returns the Spotify URL for a playlist.
func (c *Client) GetPlaylistURL(playlistID string) string {
	return fmt.Sprintf("https://open.spotify.com/playlist/%s", extractPlaylistID(playlistID))
}

// GetTrackURL returns the Spotify URL for a track.
func (c *Client) GetTrackURL(trackID string) string {
	return fmt.Sprintf("https://open.spotify.com/track/%s", trackID)
}

// convertTrack converts a Spotify FullTrack to domain Track.
func (c *Client) convertTrack(t *spotify.FullTrack) *track.Track {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	return &track.Track{
		ID:      string(t.ID),
		Name:    t.Name,
		Artists: artists,
		Album:   t.Album.Name,
		URL:     c.GetTrackURL(string(t.ID)),
	}
}

// retry runs fn up to maxAttempts times, backing off between retryable failures.
func (c *Client) retry(fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxAttempts; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxAttempts-1 {
			zlog.Warn().Msgf("spotify request failed, retrying (attempt %d/%d): %v", i+1, c.maxAttempts, err)
			time.Sleep(c.retryDelay * time.Duration(i+1))
		}
	}
	if c.maxAttempts == 1 {
		return lastErr
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}

// extractPlaylistID extracts the playlist ID from a Spotify playlist URL or URI.
func extractPlaylistID(input string) string {
	return extractID(input, "playlist")
}

// extractTrackID extracts the track ID from a Spotify track URL or URI.
func extractTrackID(input string) string {
	return extractID(input, "track")
}

// extractID handles spotify:<kind>:ID URIs and open.spotify.com/<kind>/ID URLs.
// Anything else is assumed to already be an ID.
func extractID(input, kind string) string {
	input = strings.TrimSpace(input)
	if prefix := "spotify:" + kind + ":"; strings.HasPrefix(input, prefix) {
		return strings.TrimPrefix(input, prefix)
	}

	sep := "/" + kind + "/"
	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, sep) {
		parts := strings.Split(input, sep)
		// Remove query parameters and trailing slashes
		id := strings.Split(parts[len(parts)-1], "?")[0]
		return strings.TrimRight(id, "/")
	}

	return input
}
