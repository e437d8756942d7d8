package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ScoreStrictOriginal rewards an Original record when the credits are strictly original.
	ScoreStrictOriginal = 50
	// ScoreArtist rewards each candidate artist named in the reported artist string.
	ScoreArtist = 5
	// ScoreAlbum rewards each candidate album overlapping the reported album.
	ScoreAlbum = 10
)

// ErrInvalidInput is returned when the scorer is called without candidates.
var ErrInvalidInput = errors.New("invalid input")

// ScoredCandidate is one candidate with its score breakdown.
type ScoredCandidate struct {
	Song          SongRecord
	Score         int
	StrictBonus   int
	ArtistMatches int
	AlbumMatches  int
}

// SelectBest returns the highest scoring candidate. Ties keep the earlier candidate.
// A single candidate is returned as is without scoring.
func SelectBest(candidates []SongRecord, meta SongMetadata, isStrictlyOriginal bool) (SongRecord, error) {
	switch len(candidates) {
	case 0:
		return SongRecord{}, fmt.Errorf("select best candidate: no candidates: %w", ErrInvalidInput)
	case 1:
		return candidates[0], nil
	}

	scored := ScoreCandidates(candidates, meta, isStrictlyOriginal)
	best := 0
	for i := 1; i < len(scored); i++ {
		if scored[i].Score > scored[best].Score {
			best = i
		}
	}
	return candidates[best], nil
}

// ScoreCandidates scores every candidate independently, preserving order.
func ScoreCandidates(candidates []SongRecord, meta SongMetadata, isStrictlyOriginal bool) []ScoredCandidate {
	reportedArtist := strings.ToLower(meta.ArtistName)
	reportedAlbum := strings.ToLower(meta.AlbumTitle)

	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, song := range candidates {
		scored = append(scored, scoreCandidate(song, reportedArtist, reportedAlbum, isStrictlyOriginal))
	}
	return scored
}

// ScoreCandidate scores a single candidate against the reported metadata.
func ScoreCandidate(song SongRecord, meta SongMetadata, isStrictlyOriginal bool) ScoredCandidate {
	return scoreCandidate(song, strings.ToLower(meta.ArtistName), strings.ToLower(meta.AlbumTitle), isStrictlyOriginal)
}

func scoreCandidate(song SongRecord, reportedArtist, reportedAlbum string, isStrictlyOriginal bool) ScoredCandidate {
	result := ScoredCandidate{Song: song}

	if isStrictlyOriginal && song.SongType == SongTypeOriginal {
		result.StrictBonus = ScoreStrictOriginal
	}

	for _, entry := range song.Artists {
		if entry.Artist == nil || entry.Artist.Name == "" {
			continue
		}
		if strings.Contains(reportedArtist, strings.ToLower(entry.Artist.Name)) {
			result.ArtistMatches++
		}
	}

	// An empty string is a substring of everything, so both sides must be present.
	if reportedAlbum != "" {
		for _, album := range song.Albums {
			if album.Name == "" {
				continue
			}
			candidateAlbum := strings.ToLower(album.Name)
			if strings.Contains(reportedAlbum, candidateAlbum) || strings.Contains(candidateAlbum, reportedAlbum) {
				result.AlbumMatches++
			}
		}
	}

	result.Score = result.StrictBonus + result.ArtistMatches*ScoreArtist + result.AlbumMatches*ScoreAlbum
	return result
}
