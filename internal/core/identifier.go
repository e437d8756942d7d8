package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tohoinfo/pkg/fuzzy"
	"tohoinfo/pkg/musiclink"
)

// Status is the outcome of a resolution cycle.
type Status string

const (
	// StatusMatched means a candidate was selected and resolved.
	StatusMatched Status = "matched"
	// StatusNoQuery means the title normalized to nothing searchable.
	StatusNoQuery Status = "no_query"
	// StatusNoMatch means the search returned no candidates.
	StatusNoMatch Status = "no_match"
	// StatusSearchFailed means the search itself could not be completed.
	StatusSearchFailed Status = "search_failed"
	// StatusIdle means nothing is playing.
	StatusIdle Status = "idle"
)

// Result is everything one resolution cycle produced.
type Result struct {
	CycleID          string            `json:"cycleId"`
	TrackID          string            `json:"trackId,omitempty"`
	Status           Status            `json:"status"`
	Metadata         SongMetadata      `json:"metadata"`
	Query            string            `json:"query,omitempty"`
	StrictlyOriginal bool              `json:"strictlyOriginal"`
	Candidates       []ScoredCandidate `json:"-"`
	Match            *SongRecord       `json:"match,omitempty"`
	Identity         *ResolvedIdentity `json:"identity,omitempty"`
	MainText         string            `json:"mainText,omitempty"`
	SubText          string            `json:"subText,omitempty"`
	Facets           Facets            `json:"facets"`
	FacetLabels      []string          `json:"facetLabels,omitempty"`
	CharacterImage   *Images           `json:"characterImage,omitempty"`
	AlbumImage       *Images           `json:"albumImage,omitempty"`
	OpenTarget       string            `json:"openTarget,omitempty"`
	BrowseURL        string            `json:"browseUrl,omitempty"`
	Error            string            `json:"error,omitempty"`
	StartedAt        time.Time         `json:"startedAt"`
	Duration         time.Duration     `json:"duration"`
}

// HasLink reports whether the identity resolved to a service link.
func (r *Result) HasLink() bool {
	return r.Identity != nil && r.Identity.Link != ""
}

// IdleResult is published when the player stops.
func IdleResult() *Result {
	return &Result{CycleID: uuid.NewString(), Status: StatusIdle, StartedAt: time.Now()}
}

// FailedResult is published when a cycle's search could not be completed.
func FailedResult(track PlayingTrack, err error) *Result {
	return &Result{
		CycleID:   uuid.NewString(),
		TrackID:   track.ID,
		Status:    StatusSearchFailed,
		Metadata:  track.Metadata,
		Error:     err.Error(),
		StartedAt: time.Now(),
	}
}

// TrackIdentifier runs one resolution cycle for a track.
type TrackIdentifier interface {
	Identify(ctx context.Context, trackID string, meta SongMetadata) (*Result, error)
}

// Identifier composes normalization, search, scoring, resolution and facets.
type Identifier struct {
	normalizer *fuzzy.Normalizer
	searcher   Searcher
	resolver   *Resolver
	images     ImageLookup
	browseURL  func(id int64) string
	metrics    Metrics
	logger     *zap.Logger
}

var _ TrackIdentifier = (*Identifier)(nil)

// IdentifierOption configures an Identifier.
type IdentifierOption func(*Identifier)

// WithImageLookup enables character and album image lookups.
func WithImageLookup(images ImageLookup) IdentifierOption {
	return func(i *Identifier) {
		i.images = images
	}
}

// WithBrowseURL sets how a song's database page URL is built.
func WithBrowseURL(browseURL func(id int64) string) IdentifierOption {
	return func(i *Identifier) {
		i.browseURL = browseURL
	}
}

// WithMetrics records cycle and lookup outcomes.
func WithMetrics(metrics Metrics) IdentifierOption {
	return func(i *Identifier) {
		if metrics != nil {
			i.metrics = metrics
		}
	}
}

func NewIdentifier(
	normalizer *fuzzy.Normalizer,
	searcher Searcher,
	resolver *Resolver,
	logger *zap.Logger,
	opts ...IdentifierOption,
) *Identifier {
	if normalizer == nil {
		normalizer = fuzzy.NewNormalizer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	i := &Identifier{
		normalizer: normalizer,
		searcher:   searcher,
		resolver:   resolver,
		metrics:    NopMetrics{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Identify runs one resolution cycle. It only fails when the search cannot be completed.
func (i *Identifier) Identify(ctx context.Context, trackID string, meta SongMetadata) (*Result, error) {
	result := &Result{
		CycleID:   uuid.NewString(),
		TrackID:   trackID,
		Metadata:  meta,
		StartedAt: time.Now(),
	}
	logger := i.logger.With(zap.String("cycle_id", result.CycleID), zap.String("track_id", trackID))

	defer func() {
		result.Duration = time.Since(result.StartedAt)
		i.metrics.RecordCycle(result.Status, result.Duration)
	}()

	result.Query = i.normalizer.NormalizeTitle(meta.Title)
	if result.Query == "" {
		logger.Debug("Title has nothing searchable", zap.String("title", meta.Title))
		result.Status = StatusNoQuery
		return result, nil
	}

	candidates, err := i.searcher.SearchSongs(ctx, result.Query)
	if err != nil {
		result.Status = StatusSearchFailed
		return nil, fmt.Errorf("search songs for %q: %w", result.Query, err)
	}
	if len(candidates) == 0 {
		logger.Info("No candidates found", zap.String("query", result.Query))
		result.Status = StatusNoMatch
		return result, nil
	}

	result.StrictlyOriginal = IsStrictlyOriginal(meta.ArtistName, meta.Title, meta.AlbumTitle, meta.CreditSlots)
	result.Candidates = ScoreCandidates(candidates, meta, result.StrictlyOriginal)
	for idx, candidate := range result.Candidates {
		logger.Debug("Scored candidate",
			zap.Int("index", idx),
			zap.Int64("song_id", candidate.Song.ID),
			zap.String("name", candidate.Song.Name),
			zap.String("song_type", string(candidate.Song.SongType)),
			zap.Int("score", candidate.Score))
	}

	match, err := SelectBest(candidates, meta, result.StrictlyOriginal)
	if err != nil {
		return nil, err
	}
	result.Match = &match

	identity := i.resolver.Resolve(ctx, match, result.StrictlyOriginal)
	result.Identity = &identity
	result.MainText = identity.MainText()
	result.SubText = identity.SubText(match)
	result.OpenTarget = openTarget(identity)
	if i.browseURL != nil {
		result.BrowseURL = i.browseURL(match.ID)
	}

	source := match
	if identity.Source != nil {
		source = *identity.Source
	}
	result.Facets = ExtractFacetDetails(source)
	result.FacetLabels = result.Facets.Strings()
	result.CharacterImage, result.AlbumImage = i.fetchImages(ctx, logger, result.Facets)

	result.Status = StatusMatched
	logger.Info("Identified track",
		zap.String("title", meta.Title),
		zap.String("artist", meta.ArtistName),
		zap.String("query", result.Query),
		zap.Bool("strictly_original", result.StrictlyOriginal),
		zap.Int64("match_id", match.ID),
		zap.String("resolution", identity.Kind.String()),
		zap.String("main_text", result.MainText),
		zap.Bool("has_link", identity.Link != ""))

	return result, nil
}

// fetchImages looks up the character and album pictures concurrently. Misses are absorbed.
func (i *Identifier) fetchImages(ctx context.Context, logger *zap.Logger, facets Facets) (character, album *Images) {
	if i.images == nil {
		return nil, nil
	}

	var g errgroup.Group
	if facets.CharacterArtistID != 0 {
		g.Go(func() error {
			character = i.fetchImage(ctx, logger, "artist_image", facets.CharacterArtistID, i.images.ArtistImage)
			return nil
		})
	}
	if facets.AlbumID != 0 {
		g.Go(func() error {
			album = i.fetchImage(ctx, logger, "album_image", facets.AlbumID, i.images.AlbumImage)
			return nil
		})
	}
	_ = g.Wait()
	return character, album
}

func (i *Identifier) fetchImage(
	ctx context.Context,
	logger *zap.Logger,
	kind string,
	id int64,
	lookup func(context.Context, int64) (*Images, error),
) *Images {
	images, err := lookup(ctx, id)
	switch {
	case err != nil:
		i.metrics.RecordLookup(kind, "error")
		logger.Debug("Image lookup failed", zap.String("kind", kind), zap.Int64("id", id), zap.Error(err))
		return nil
	case images == nil:
		i.metrics.RecordLookup(kind, "miss")
		return nil
	default:
		i.metrics.RecordLookup(kind, "hit")
		return images
	}
}

// openTarget is where "play original" navigates: the resolved link, or a search
// for the original by name when no link is known.
func openTarget(identity ResolvedIdentity) string {
	if identity.Link != "" {
		return musiclink.OpenPath(identity.Link)
	}
	switch identity.Kind {
	case ResolutionCoveredOriginal, ResolutionArrangement:
		if identity.Display != nil && identity.Display.Name != "" {
			return musiclink.SearchPath(identity.Display.Name)
		}
	}
	return ""
}
