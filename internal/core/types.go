package core

import (
	"context"
	"strings"
	"time"
)

type SongType string

const (
	// SongTypeOriginal is a composition with no upstream source.
	SongTypeOriginal SongType = "Original"
	// SongTypeArrangement is a derivative work referencing an original.
	SongTypeArrangement SongType = "Arrangement"
)

// EnglishLanguage is the language tag TouhouDB uses for English names.
const EnglishLanguage = "English"

// SongMetadata is what the player reports for the current track.
type SongMetadata struct {
	Title      string `json:"title,omitempty"`
	ArtistName string `json:"artistName,omitempty"`
	AlbumTitle string `json:"albumTitle,omitempty"`
	// CreditSlots holds secondary and tertiary artist credits beyond ArtistName.
	CreditSlots []string `json:"creditSlots,omitempty"`
}

// IsStrictlyOriginal classifies the metadata's own credits.
func (m SongMetadata) IsStrictlyOriginal() bool {
	return IsStrictlyOriginal(m.ArtistName, m.Title, m.AlbumTitle, m.CreditSlots)
}

type SongName struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

type Artist struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	ArtistType      string `json:"artistType,omitempty"`
	AdditionalNames string `json:"additionalNames,omitempty"`
}

type ArtistEntry struct {
	Categories string  `json:"categories,omitempty"`
	Name       string  `json:"name,omitempty"`
	Artist     *Artist `json:"artist,omitempty"`
}

type Album struct {
	ID              int64  `json:"id,omitempty"`
	Name            string `json:"name"`
	AdditionalNames string `json:"additionalNames,omitempty"`
}

// PV is a service-specific media link attached to a song.
type PV struct {
	Service string `json:"service"`
	URL     string `json:"url"`
}

type Tag struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	CategoryName    string `json:"categoryName"`
	AdditionalNames string `json:"additionalNames,omitempty"`
	URLSlug         string `json:"urlSlug,omitempty"`
}

type SongTag struct {
	Count int `json:"count"`
	Tag   Tag `json:"tag"`
}

// SongRecord is a TouhouDB song entry. OriginalVersionID is zero when absent.
type SongRecord struct {
	ID                int64         `json:"id"`
	Name              string        `json:"name"`
	SongType          SongType      `json:"songType"`
	OriginalVersionID int64         `json:"originalVersionId,omitempty"`
	Names             []SongName    `json:"names,omitempty"`
	Artists           []ArtistEntry `json:"artists,omitempty"`
	Albums            []Album       `json:"albums,omitempty"`
	PVs               []PV          `json:"pvs,omitempty"`
	Tags              []SongTag     `json:"tags,omitempty"`
}

// EnglishName returns the English alias, or "" when the record has none.
func (s SongRecord) EnglishName() string {
	for _, name := range s.Names {
		if name.Language == EnglishLanguage {
			return name.Value
		}
	}
	return ""
}

// Images holds the thumbnail URLs for a character or album.
type Images struct {
	IconURL  string `json:"iconUrl"`
	PopupURL string `json:"popupUrl"`
}

// PlayingTrack is the player's current track. ID changes on every track change.
type PlayingTrack struct {
	ID       string
	Metadata SongMetadata
}

// Searcher finds candidate songs for a normalized title.
type Searcher interface {
	SearchSongs(ctx context.Context, query string) ([]SongRecord, error)
}

// SongLookup fetches one song by id. A nil record or an error are both a miss.
type SongLookup interface {
	GetSong(ctx context.Context, id int64) (*SongRecord, error)
}

// ImageLookup fetches pictures for characters and albums.
type ImageLookup interface {
	ArtistImage(ctx context.Context, artistID int64) (*Images, error)
	AlbumImage(ctx context.Context, albumID int64) (*Images, error)
}

// OverrideLink is a curated link for a known original.
type OverrideLink struct {
	Name string
	Link string
}

// OverrideTable maps original song ids to curated links. Implementations are read-only.
type OverrideTable interface {
	Lookup(id int64) (OverrideLink, bool)
}

// PlayerSource reports what the media player is playing. A nil track means idle.
type PlayerSource interface {
	CurrentTrack(ctx context.Context) (*PlayingTrack, error)
}

// OriginalPlayer starts playback of the original a result resolved to.
type OriginalPlayer interface {
	PlayOriginal(ctx context.Context, result *Result) error
}

// Sink receives every published cycle result.
type Sink interface {
	Publish(ctx context.Context, result *Result)
}

// Metrics records engine activity. NopMetrics discards everything.
type Metrics interface {
	RecordCycle(status Status, duration time.Duration)
	RecordLookup(kind, outcome string)
	RecordStaleCycle()
}

type NopMetrics struct{}

func (NopMetrics) RecordCycle(Status, time.Duration) {}
func (NopMetrics) RecordLookup(string, string)       {}
func (NopMetrics) RecordStaleCycle()                 {}

// splitAliases splits a comma-joined TouhouDB alias list.
func splitAliases(joined string) []string {
	if strings.TrimSpace(joined) == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	aliases := make([]string, 0, len(parts))
	for _, part := range parts {
		if alias := strings.TrimSpace(part); alias != "" {
			aliases = append(aliases, alias)
		}
	}
	return aliases
}
