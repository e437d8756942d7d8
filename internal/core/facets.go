package core

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	// subjectCategory marks an artist entry as the song's subject.
	subjectCategory = "Subject"
	// characterArtistType is TouhouDB's artist type for characters.
	characterArtistType = "Character"
	// themesTagCategory is the tag category holding stage and theme tags.
	themesTagCategory = "Themes"
)

var gameIndexRegex = regexp.MustCompile(`(?i)^(?:th|touhou|東方)\s*(?:project\s*)?0*([0-9]+(?:\.[0-9]+)?)$`)

// gameTitleFragments are canonical English subtitles of the mainline and spin-off games.
var gameTitleFragments = []string{
	"Highly Responsive to Prayers",
	"Story of Eastern Wonderland",
	"Phantasmagoria of Dim.Dream",
	"Lotus Land Story",
	"Mystic Square",
	"Embodiment of Scarlet Devil",
	"Perfect Cherry Blossom",
	"Immaterial and Missing Power",
	"Imperishable Night",
	"Phantasmagoria of Flower View",
	"Shoot the Bullet",
	"Mountain of Faith",
	"Scarlet Weather Rhapsody",
	"Subterranean Animism",
	"Undefined Fantastic Object",
	"Double Spoiler",
	"Fairy Wars",
	"Ten Desires",
	"Hopeless Masquerade",
	"Double Dealing Character",
	"Impossible Spell Card",
	"Urban Legend in Limbo",
	"Legacy of Lunatic Kingdom",
	"Antinomy of Common Flowers",
	"Hidden Star in Four Seasons",
	"Violet Detector",
	"Wily Beast and Weakest Creature",
	"Sunken Fossil World",
	"Unconnected Marketeers",
	"100th Black Market",
	"Unfinished Dream of All Living Ghost",
	"Fossilized Wonders",
}

// Facets are auxiliary display attributes of a resolved record.
type Facets struct {
	Game              string `json:"game,omitempty"`
	AlbumID           int64  `json:"albumId,omitempty"`
	Character         string `json:"character,omitempty"`
	CharacterArtistID int64  `json:"characterArtistId,omitempty"`
	Stage             string `json:"stage,omitempty"`
}

// Strings returns the facets in display order: game, then character or stage.
func (f Facets) Strings() []string {
	var out []string
	if f.Game != "" {
		out = append(out, f.Game)
	}
	switch {
	case f.Character != "":
		out = append(out, f.Character)
	case f.Stage != "":
		out = append(out, f.Stage)
	}
	return out
}

// ExtractFacets returns the display facets of song.
func ExtractFacets(song SongRecord) []string {
	return ExtractFacetDetails(song).Strings()
}

// ExtractFacetDetails derives the game, character and stage facets of song.
// The stage facet is only looked for when no character is credited.
func ExtractFacetDetails(song SongRecord) Facets {
	var facets Facets

	if len(song.Albums) > 0 {
		album := song.Albums[0]
		facets.Game = gameLabel(album)
		facets.AlbumID = album.ID
	}

	if name, artistID, ok := characterOf(song); ok {
		facets.Character = name
		facets.CharacterArtistID = artistID
		return facets
	}

	facets.Stage = stageLabel(song)
	return facets
}

func gameLabel(album Album) string {
	aliases := splitAliases(album.AdditionalNames)

	for _, alias := range aliases {
		if m := gameIndexRegex.FindStringSubmatch(alias); m != nil {
			return "Touhou " + m[1]
		}
	}

	for _, alias := range aliases {
		lower := strings.ToLower(alias)
		for _, fragment := range gameTitleFragments {
			if strings.Contains(lower, strings.ToLower(fragment)) {
				return alias
			}
		}
	}

	return strings.TrimSpace(album.Name)
}

func characterOf(song SongRecord) (string, int64, bool) {
	for _, entry := range song.Artists {
		isCharacter := entry.Categories == subjectCategory ||
			(entry.Artist != nil && entry.Artist.ArtistType == characterArtistType)
		if !isCharacter {
			continue
		}

		if entry.Artist == nil {
			if name := strings.TrimSpace(entry.Name); name != "" {
				return name, 0, true
			}
			continue
		}

		if aliases := splitAliases(entry.Artist.AdditionalNames); len(aliases) > 0 {
			return aliases[0], entry.Artist.ID, true
		}
		if name := strings.TrimSpace(entry.Artist.Name); name != "" {
			return name, entry.Artist.ID, true
		}
	}
	return "", 0, false
}

func stageLabel(song SongRecord) string {
	var fallback string
	for _, songTag := range song.Tags {
		if songTag.Tag.CategoryName != themesTagCategory {
			continue
		}

		labels := splitAliases(songTag.Tag.AdditionalNames)
		if name := strings.TrimSpace(songTag.Tag.Name); name != "" {
			labels = append(labels, name)
		}

		for _, label := range labels {
			if containsDigit(label) {
				return label
			}
		}
		if fallback == "" && len(labels) > 0 {
			fallback = labels[0]
		}
	}
	return fallback
}

func containsDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}
