package spotify

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"tohoinfo/internal/core"
	"tohoinfo/internal/store"
)

func TestConvertCurrentlyPlaying(t *testing.T) {
	track := &spotify.FullTrack{
		SimpleTrack: spotify.SimpleTrack{
			ID:   "4uLU6hMCjMI75M1A2tKUQC",
			URI:  "spotify:track:4uLU6hMCjMI75M1A2tKUQC",
			Name: "U.N.オーエンは彼女なのか？",
			Artists: []spotify.SimpleArtist{
				{Name: "ZUN"},
				{Name: "上海アリス幻樂団"},
			},
		},
	}
	track.Album.Name = "東方紅魔郷"

	expectedTrack := &core.PlayingTrack{
		ID: "4uLU6hMCjMI75M1A2tKUQC",
		Metadata: core.SongMetadata{
			Title:       "U.N.オーエンは彼女なのか？",
			ArtistName:  "ZUN",
			AlbumTitle:  "東方紅魔郷",
			CreditSlots: []string{"上海アリス幻樂団"},
		},
	}

	tests := []struct {
		name      string
		currently *spotify.CurrentlyPlaying
		expected  *core.PlayingTrack
	}{
		{
			name:      "Nothing playing",
			currently: nil,
			expected:  nil,
		},
		{
			name:      "Playing without item",
			currently: &spotify.CurrentlyPlaying{Playing: true},
			expected:  nil,
		},
		{
			name:      "Playing track",
			currently: &spotify.CurrentlyPlaying{Playing: true, Item: track},
			expected:  expectedTrack,
		},
		{
			name:      "Paused track",
			currently: &spotify.CurrentlyPlaying{Playing: false, Item: track},
			expected:  expectedTrack,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := convertCurrentlyPlaying(tt.currently)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("convertCurrentlyPlaying() = %+v, expected %+v", result, tt.expected)
			}
		})
	}
}

func TestConvertCurrentlyPlaying_LocalFile(t *testing.T) {
	currently := &spotify.CurrentlyPlaying{
		Playing: true,
		Item: &spotify.FullTrack{SimpleTrack: spotify.SimpleTrack{
			URI:  "spotify:local:Artist:Album:Title:200",
			Name: "Title",
		}},
	}

	result := convertCurrentlyPlaying(currently)
	if result == nil || result.ID != "spotify:local:Artist:Album:Title:200" {
		t.Errorf("Expected local file URI as track id, got %+v", result)
	}
	if result != nil && result.Metadata.ArtistName != "" {
		t.Errorf("Expected empty artist, got %q", result.Metadata.ArtistName)
	}
}

// playerStates replays raw player states through the same conversion
// CurrentTrack uses, repeating the last state once the script runs out.
type playerStates struct {
	mu     sync.Mutex
	states []*spotify.CurrentlyPlaying
	polls  int
}

func (p *playerStates) CurrentTrack(context.Context) (*core.PlayingTrack, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.polls
	if idx >= len(p.states) {
		idx = len(p.states) - 1
	}
	p.polls++
	return convertCurrentlyPlaying(p.states[idx]), nil
}

func (p *playerStates) Polls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls
}

type countingIdentifier struct {
	mu    sync.Mutex
	calls int
}

func (c *countingIdentifier) Identify(_ context.Context, trackID string, meta core.SongMetadata) (*core.Result, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return &core.Result{CycleID: "cycle-" + trackID, TrackID: trackID, Status: core.StatusMatched, Metadata: meta}, nil
}

func (c *countingIdentifier) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type statusLog struct {
	mu       sync.Mutex
	statuses []core.Status
}

func (s *statusLog) Publish(_ context.Context, result *core.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, result.Status)
}

func (s *statusLog) snapshot() []core.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Status(nil), s.statuses...)
}

func TestWatcher_PauseKeepsCurrentTrack(t *testing.T) {
	track := &spotify.FullTrack{SimpleTrack: spotify.SimpleTrack{
		ID:      "4uLU6hMCjMI75M1A2tKUQC",
		Name:    "U.N.オーエンは彼女なのか？",
		Artists: []spotify.SimpleArtist{{Name: "ZUN"}},
	}}
	player := &playerStates{states: []*spotify.CurrentlyPlaying{
		{Playing: true, Item: track},
		{Playing: false, Item: track},
		{Playing: true, Item: track},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	history, err := store.OpenHistory(ctx, filepath.Join(t.TempDir(), "history.db"), 10, zap.NewNop())
	if err != nil {
		t.Fatalf("OpenHistory failed: %v", err)
	}
	defer history.Close()

	published := &statusLog{}
	identifier := &countingIdentifier{}
	tracker := core.NewTracker(zap.NewNop(), core.NopMetrics{}, published, history)
	watcher := core.NewWatcher(player, identifier, tracker, 5*time.Millisecond, zap.NewNop())

	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for player.Polls() < 6 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if player.Polls() < 6 {
		t.Fatalf("Expected the pause and resume to be polled, got %d polls", player.Polls())
	}
	if calls := identifier.Calls(); calls != 1 {
		t.Errorf("Expected 1 Identify call across pause and resume, got %d", calls)
	}
	for _, status := range published.snapshot() {
		if status == core.StatusIdle {
			t.Errorf("Expected no idle publication while paused, got %v", published.snapshot())
			break
		}
	}

	entries, err := history.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Plays != 1 {
		t.Errorf("Expected one history entry with 1 play, got %+v", entries)
	}
}

func TestOriginalName(t *testing.T) {
	display := &core.SongRecord{Name: " ネイティブフェイス "}

	tests := []struct {
		name     string
		identity core.ResolvedIdentity
		expected string
	}{
		{"Covered original", core.ResolvedIdentity{Kind: core.ResolutionCoveredOriginal, Display: display}, "ネイティブフェイス"},
		{"Arrangement", core.ResolvedIdentity{Kind: core.ResolutionArrangement, Display: display}, "ネイティブフェイス"},
		{"Original plays itself", core.ResolvedIdentity{Kind: core.ResolutionOriginal, Display: display}, ""},
		{"Unlinked", core.ResolvedIdentity{Kind: core.ResolutionUnlinked, Display: display}, ""},
		{"Unresolved", core.ResolvedIdentity{Kind: core.ResolutionUnresolvedArrangement, UnresolvedID: 3}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := originalName(&tt.identity); got != tt.expected {
				t.Errorf("originalName() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestTokenPersistence(t *testing.T) {
	config := &core.SpotifyConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "http://127.0.0.1:8080/callback",
		TokenPath:    filepath.Join(t.TempDir(), "token.json"),
	}
	client := NewClient(config, zap.NewNop())

	if _, err := client.loadToken(); err == nil {
		t.Fatal("Expected error loading a missing token")
	}

	expiry := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", Expiry: expiry}
	if err := client.saveToken(token); err != nil {
		t.Fatalf("saveToken failed: %v", err)
	}

	loaded, err := client.loadToken()
	if err != nil {
		t.Fatalf("loadToken failed: %v", err)
	}
	if loaded.RefreshToken != "refresh" || !loaded.Expiry.Equal(expiry) {
		t.Errorf("Unexpected token %+v", loaded)
	}
}

func TestUnauthenticatedClient(t *testing.T) {
	client := NewClient(&core.SpotifyConfig{}, zap.NewNop())

	if _, err := client.CurrentTrack(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("CurrentTrack() error = %v, expected ErrNotAuthenticated", err)
	}
	if err := client.PlayOriginal(context.Background(), &core.Result{}); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("PlayOriginal() error = %v, expected ErrNotAuthenticated", err)
	}
}
