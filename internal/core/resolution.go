package core

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// DefaultLinkService is the PV service links are resolved for.
const DefaultLinkService = "Spotify"

// Resolution describes which branch of the resolution chain produced an identity.
type Resolution int

const (
	// ResolutionOriginal is an original reported by its own composer.
	ResolutionOriginal Resolution = iota
	// ResolutionCoveredOriginal is an original reported under someone else's credit.
	ResolutionCoveredOriginal
	// ResolutionArrangement is an arrangement whose original was found.
	ResolutionArrangement
	// ResolutionUnresolvedArrangement is an arrangement whose original could not be fetched.
	ResolutionUnresolvedArrangement
	// ResolutionUnlinked is any record without a usable upstream.
	ResolutionUnlinked
)

func (r Resolution) String() string {
	switch r {
	case ResolutionOriginal:
		return "original"
	case ResolutionCoveredOriginal:
		return "covered_original"
	case ResolutionArrangement:
		return "arrangement"
	case ResolutionUnresolvedArrangement:
		return "unresolved_arrangement"
	case ResolutionUnlinked:
		return "unlinked"
	default:
		return fmt.Sprintf("resolution(%d)", int(r))
	}
}

// MarshalText renders the resolution by name in JSON output.
func (r Resolution) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ResolvedIdentity is the final display identity of a match.
type ResolvedIdentity struct {
	Kind Resolution `json:"kind"`
	// Display is nil only for ResolutionUnresolvedArrangement.
	Display *SongRecord `json:"display,omitempty"`
	// Source is the record facets are derived from.
	Source       *SongRecord `json:"-"`
	UnresolvedID int64       `json:"unresolvedId,omitempty"`
	Link         string      `json:"link,omitempty"`
}

// MainText is the headline shown for the identity.
func (r ResolvedIdentity) MainText() string {
	if r.Kind == ResolutionUnresolvedArrangement {
		return fmt.Sprintf("Arrangement of ID #%d", r.UnresolvedID)
	}
	if r.Display == nil {
		return ""
	}

	switch r.Kind {
	case ResolutionOriginal:
		return "Original: " + r.Display.Name
	case ResolutionCoveredOriginal:
		return "Arrangement of: " + r.Display.Name
	case ResolutionArrangement:
		// Overrides without a curated name only know the original's id.
		if r.Display.Name == "" {
			return fmt.Sprintf("Arrangement of ID #%d", r.Display.ID)
		}
		return "Arrangement of: " + r.Display.Name
	default:
		return "Touhou: " + r.Display.Name
	}
}

// SubText is the English name of the displayed record, or "" when it would repeat
// the match name or the main text.
func (r ResolvedIdentity) SubText(match SongRecord) string {
	if r.Display == nil {
		return ""
	}
	sub := r.Display.EnglishName()
	if sub == "" || sub == match.Name || strings.Contains(r.MainText(), sub) {
		return ""
	}
	return sub
}

// PVLink returns the URL of the first PV for service, or "" when there is none.
func PVLink(song SongRecord, service string) string {
	for _, pv := range song.PVs {
		if pv.Service == service && pv.URL != "" {
			return pv.URL
		}
	}
	return ""
}

// Resolver walks a match to its display identity.
type Resolver struct {
	overrides OverrideTable
	lookup    SongLookup
	service   string
	metrics   Metrics
	logger    *zap.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLinkService sets the PV service links are resolved for.
func WithLinkService(service string) ResolverOption {
	return func(r *Resolver) {
		if s := strings.TrimSpace(service); s != "" {
			r.service = s
		}
	}
}

// WithResolverMetrics records lookup outcomes.
func WithResolverMetrics(metrics Metrics) ResolverOption {
	return func(r *Resolver) {
		if metrics != nil {
			r.metrics = metrics
		}
	}
}

func NewResolver(overrides OverrideTable, lookup SongLookup, logger *zap.Logger, opts ...ResolverOption) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{
		overrides: overrides,
		lookup:    lookup,
		service:   DefaultLinkService,
		metrics:   NopMetrics{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve determines what to display for match. It never fails: lookup misses
// degrade to a placeholder or a missing link.
func (r *Resolver) Resolve(ctx context.Context, match SongRecord, isStrictlyOriginal bool) ResolvedIdentity {
	matchCopy := match

	switch {
	case match.SongType == SongTypeOriginal && isStrictlyOriginal:
		return ResolvedIdentity{
			Kind:    ResolutionOriginal,
			Display: &matchCopy,
			Source:  &matchCopy,
			Link:    PVLink(match, r.service),
		}

	case match.SongType == SongTypeOriginal:
		identity := ResolvedIdentity{
			Kind:    ResolutionCoveredOriginal,
			Display: &matchCopy,
			Source:  &matchCopy,
		}
		if override, ok := r.override(match.ID); ok {
			identity.Link = override.Link
			return identity
		}
		if original := r.fetch(ctx, match.ID); original != nil {
			identity.Link = PVLink(*original, r.service)
		}
		return identity

	case match.SongType == SongTypeArrangement && match.OriginalVersionID != 0 && match.OriginalVersionID != match.ID:
		return r.resolveArrangement(ctx, matchCopy)

	default:
		return ResolvedIdentity{
			Kind:    ResolutionUnlinked,
			Display: &matchCopy,
			Source:  &matchCopy,
		}
	}
}

func (r *Resolver) resolveArrangement(ctx context.Context, match SongRecord) ResolvedIdentity {
	originalID := match.OriginalVersionID

	if override, ok := r.override(originalID); ok {
		display := &SongRecord{
			ID:       originalID,
			Name:     override.Name,
			SongType: SongTypeOriginal,
			PVs:      []PV{{Service: r.service, URL: override.Link}},
		}
		return ResolvedIdentity{
			Kind:    ResolutionArrangement,
			Display: display,
			Source:  &match,
			Link:    override.Link,
		}
	}

	original := r.fetch(ctx, originalID)
	if original == nil {
		return ResolvedIdentity{
			Kind:         ResolutionUnresolvedArrangement,
			Source:       &match,
			UnresolvedID: originalID,
		}
	}

	return ResolvedIdentity{
		Kind:    ResolutionArrangement,
		Display: original,
		Source:  original,
		Link:    PVLink(*original, r.service),
	}
}

func (r *Resolver) override(id int64) (OverrideLink, bool) {
	if r.overrides == nil {
		return OverrideLink{}, false
	}
	override, ok := r.overrides.Lookup(id)
	if !ok || override.Link == "" {
		return OverrideLink{}, false
	}
	r.metrics.RecordLookup("override", "hit")
	r.logger.Debug("Using override link", zap.Int64("song_id", id))
	return override, true
}

func (r *Resolver) fetch(ctx context.Context, id int64) *SongRecord {
	if r.lookup == nil {
		return nil
	}
	song, err := r.lookup.GetSong(ctx, id)
	if err != nil {
		r.metrics.RecordLookup("song", "error")
		r.logger.Warn("Original lookup failed", zap.Int64("song_id", id), zap.Error(err))
		return nil
	}
	if song == nil {
		r.metrics.RecordLookup("song", "miss")
		r.logger.Debug("Original lookup returned nothing", zap.Int64("song_id", id))
		return nil
	}
	r.metrics.RecordLookup("song", "hit")
	return song
}
