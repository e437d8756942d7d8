// Package touhoudb is a client for the TouhouDB song database API.
package touhoudb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tohoinfo/internal/core"
)

const (
	// DefaultBaseURL is the public TouhouDB instance.
	DefaultBaseURL = "https://touhoudb.com"

	searchFields = "Tags,Names,Artists,Albums"
	songFields   = "Tags,Names,PVs,Artists,Albums"
	imageFields  = "MainPicture"

	defaultUserAgent = "tohoinfo/1.0"
	defaultTimeout   = 10 * time.Second
	// maxResponseSize caps how much of a response body is decoded.
	maxResponseSize = 4 << 20
)

// ErrNotFound is returned when TouhouDB has no entry for an id.
var ErrNotFound = errors.New("touhoudb entry not found")

// Client provides access to the TouhouDB API.
type Client struct {
	baseURL    string
	language   string
	userAgent  string
	httpClient *http.Client
}

var (
	_ core.Searcher    = (*Client)(nil)
	_ core.SongLookup  = (*Client)(nil)
	_ core.ImageLookup = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLanguage sets the content language preference ("Default", "Japanese", "Romaji", "English").
func WithLanguage(language string) Option {
	return func(c *Client) {
		c.language = strings.TrimSpace(language)
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if ua := strings.TrimSpace(userAgent); ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout sets the default HTTP client's timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// New creates a TouhouDB client.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("touhoudb base url required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse touhoudb base url: %w", err)
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SongPageURL is the browsable page of a song entry.
func (c *Client) SongPageURL(id int64) string {
	return c.baseURL + "/S/" + strconv.FormatInt(id, 10)
}

// SearchSongs searches songs by name.
func (c *Client) SearchSongs(ctx context.Context, query string) ([]core.SongRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("fields", searchFields)

	var payload searchResponse
	if err := c.get(ctx, "/api/songs", params, &payload); err != nil {
		return nil, fmt.Errorf("search songs: %w", err)
	}

	songs := make([]core.SongRecord, 0, len(payload.Items))
	for _, item := range payload.Items {
		songs = append(songs, item.toRecord())
	}
	return songs, nil
}

// GetSong fetches one song with its PVs. A missing song returns ErrNotFound.
func (c *Client) GetSong(ctx context.Context, id int64) (*core.SongRecord, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid song id %d", id)
	}

	params := url.Values{}
	params.Set("fields", songFields)

	var payload songPayload
	if err := c.get(ctx, "/api/songs/"+strconv.FormatInt(id, 10), params, &payload); err != nil {
		return nil, fmt.Errorf("get song %d: %w", id, err)
	}
	record := payload.toRecord()
	return &record, nil
}

// ArtistImage fetches an artist's main picture. It returns nil when the artist has none.
func (c *Client) ArtistImage(ctx context.Context, artistID int64) (*core.Images, error) {
	return c.mainPicture(ctx, "/api/artists/", artistID)
}

// AlbumImage fetches an album's cover. It returns nil when the album has none.
func (c *Client) AlbumImage(ctx context.Context, albumID int64) (*core.Images, error) {
	return c.mainPicture(ctx, "/api/albums/", albumID)
}

func (c *Client) mainPicture(ctx context.Context, prefix string, id int64) (*core.Images, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid entry id %d", id)
	}

	params := url.Values{}
	params.Set("fields", imageFields)

	var payload pictureEntry
	if err := c.get(ctx, prefix+strconv.FormatInt(id, 10), params, &payload); err != nil {
		return nil, fmt.Errorf("get picture %s%d: %w", prefix, id, err)
	}
	if payload.MainPicture == nil {
		return nil, nil
	}
	return payload.MainPicture.toImages(), nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dest any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse touhoudb url: %w", err)
	}
	if c.language != "" {
		params.Set("lang", c.language)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("touhoudb returned %d (latency=%v)", resp.StatusCode, latency)
	}

	// TouhouDB answers "null" for some deleted entries.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read touhoudb response: %w", err)
	}
	if trimmed := strings.TrimSpace(string(body)); trimmed == "" || trimmed == "null" {
		return ErrNotFound
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode touhoudb response: %w", err)
	}
	return nil
}
