// Package spotify reads the user's current playback from the Spotify Web API and starts playback of originals.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"tohoinfo/internal/core"
	"tohoinfo/pkg/musiclink"
)

const (
	// FilePermission is the permission for token files
	FilePermission = 0600
	// oauthState guards the authorization redirect
	oauthState = "tohoinfo-auth-state"
)

var (
	// ErrNotAuthenticated is returned when the client is used before Authenticate.
	ErrNotAuthenticated = errors.New("spotify client not authenticated")
	// ErrNothingToPlay is returned when a result has neither a Spotify link nor a searchable original.
	ErrNothingToPlay = errors.New("no original to play")
)

type Client struct {
	config *core.SpotifyConfig
	logger *zap.Logger
	client *spotify.Client
	auth   *spotifyauth.Authenticator
}

var (
	_ core.PlayerSource   = (*Client)(nil)
	_ core.OriginalPlayer = (*Client)(nil)
)

type TokenData struct {
	Token *oauth2.Token `json:"token"`
}

func NewClient(config *core.SpotifyConfig, logger *zap.Logger) *Client {
	auth := spotifyauth.New(
		spotifyauth.WithRedirectURL(config.RedirectURL),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserReadCurrentlyPlaying,
			spotifyauth.ScopeUserReadPlaybackState,
			spotifyauth.ScopeUserModifyPlaybackState,
		),
		spotifyauth.WithClientID(config.ClientID),
		spotifyauth.WithClientSecret(config.ClientSecret),
	)

	return &Client{
		config: config,
		logger: logger,
		auth:   auth,
	}
}

func (c *Client) Authenticate(ctx context.Context) error {
	token, err := c.loadToken()
	if err != nil {
		c.logger.Info("No saved token found, starting OAuth flow")
		return c.startOAuthFlow(ctx)
	}

	client := spotify.New(c.auth.Client(ctx, token))
	c.client = client

	user, err := client.CurrentUser(ctx)
	if err != nil {
		c.logger.Warn("Saved token invalid, starting OAuth flow", zap.Error(err))
		return c.startOAuthFlow(ctx)
	}

	c.logger.Info("Authenticated successfully", zap.String("user", user.DisplayName))
	return nil
}

// CurrentTrack returns the loaded track even while paused, or nil when nothing
// is loaded or the current item is not a track.
func (c *Client) CurrentTrack(ctx context.Context) (*core.PlayingTrack, error) {
	if c.client == nil {
		return nil, ErrNotAuthenticated
	}

	currently, err := c.client.PlayerCurrentlyPlaying(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get currently playing: %w", err)
	}

	return convertCurrentlyPlaying(currently), nil
}

// PlayOriginal starts playback of the original a result resolved to: its
// Spotify link when known, otherwise the top search hit for the original's name.
func (c *Client) PlayOriginal(ctx context.Context, result *core.Result) error {
	if c.client == nil {
		return ErrNotAuthenticated
	}
	if result == nil || result.Identity == nil {
		return ErrNothingToPlay
	}

	uri := musiclink.SpotifyURI(result.Identity.Link)
	if uri == "" {
		name := originalName(result.Identity)
		if name == "" {
			return ErrNothingToPlay
		}
		found, err := c.searchTrackURI(ctx, musiclink.SearchArtistPrefix+name)
		if err != nil {
			return err
		}
		uri = found
	}

	if err := c.client.PlayOpt(ctx, &spotify.PlayOptions{URIs: []spotify.URI{spotify.URI(uri)}}); err != nil {
		return fmt.Errorf("failed to start playback of %s: %w", uri, err)
	}

	c.logger.Info("Playing original",
		zap.String("uri", uri),
		zap.String("cycle_id", result.CycleID))
	return nil
}

func (c *Client) searchTrackURI(ctx context.Context, query string) (string, error) {
	results, err := c.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	if results.Tracks == nil || len(results.Tracks.Tracks) == 0 {
		return "", fmt.Errorf("%w: no tracks found for %q", ErrNothingToPlay, query)
	}
	return string(results.Tracks.Tracks[0].URI), nil
}

// originalName is the name of the record to search for when no link is known.
// Only identities that point at an upstream original qualify.
func originalName(identity *core.ResolvedIdentity) string {
	switch identity.Kind {
	case core.ResolutionCoveredOriginal, core.ResolutionArrangement:
		if identity.Display != nil {
			return strings.TrimSpace(identity.Display.Name)
		}
	}
	return ""
}

// convertCurrentlyPlaying maps the player state to core metadata. The first
// artist is the primary credit, the rest fill the credit slots. A paused track
// is still the current track; only an empty player is idle.
func convertCurrentlyPlaying(currently *spotify.CurrentlyPlaying) *core.PlayingTrack {
	if currently == nil || currently.Item == nil {
		return nil
	}
	track := currently.Item

	meta := core.SongMetadata{
		Title:      track.Name,
		AlbumTitle: track.Album.Name,
	}
	for i, artist := range track.Artists {
		if i == 0 {
			meta.ArtistName = artist.Name
			continue
		}
		meta.CreditSlots = append(meta.CreditSlots, artist.Name)
	}

	id := string(track.ID)
	if id == "" {
		// Local files have no id.
		id = string(track.URI)
	}

	return &core.PlayingTrack{ID: id, Metadata: meta}
}

func (c *Client) startOAuthFlow(ctx context.Context) error {
	authURL := c.auth.AuthURL(oauthState)

	fmt.Printf("Please visit the following URL to authorize the application:\n%s\n", authURL)
	fmt.Print("Enter the authorization code: ")

	var code string
	if _, err := fmt.Scanln(&code); err != nil {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}

	token, err := c.auth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange code for token: %w", err)
	}

	if saveErr := c.saveToken(token); saveErr != nil {
		c.logger.Warn("Failed to save token", zap.Error(saveErr))
	}

	client := spotify.New(c.auth.Client(ctx, token))
	c.client = client

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}

	c.logger.Info("OAuth flow completed successfully", zap.String("user", user.DisplayName))
	return nil
}

func (c *Client) loadToken() (*oauth2.Token, error) {
	file, err := os.Open(c.config.TokenPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	var tokenData TokenData
	if err := json.Unmarshal(data, &tokenData); err != nil {
		return nil, err
	}
	if tokenData.Token == nil {
		return nil, errors.New("token file has no token")
	}

	return tokenData.Token, nil
}

func (c *Client) saveToken(token *oauth2.Token) error {
	tokenData := TokenData{Token: token}

	data, err := json.MarshalIndent(tokenData, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(c.config.TokenPath, data, FilePermission)
}
