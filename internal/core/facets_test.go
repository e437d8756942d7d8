package core

import (
	"reflect"
	"testing"
)

func TestExtractFacets(t *testing.T) {
	themesTag := func(name, aliases string) SongTag {
		return SongTag{Count: 1, Tag: Tag{Name: name, CategoryName: "Themes", AdditionalNames: aliases}}
	}

	tests := []struct {
		name     string
		song     SongRecord
		expected []string
	}{
		{
			name: "Numeric game alias",
			song: SongRecord{
				Albums: []Album{{ID: 1, Name: "東方紅魔郷", AdditionalNames: "TH06, Embodiment of Scarlet Devil"}},
			},
			expected: []string{"Touhou 6"},
		},
		{
			name: "Decimal game alias",
			song: SongRecord{
				Albums: []Album{{Name: "東方花映塚", AdditionalNames: "Touhou 12.3"}},
			},
			expected: []string{"Touhou 12.3"},
		},
		{
			name: "Japanese project alias",
			song: SongRecord{
				Albums: []Album{{Name: "東方地霊殿", AdditionalNames: "東方Project 11"}},
			},
			expected: []string{"Touhou 11"},
		},
		{
			name: "Canonical title fragment",
			song: SongRecord{
				Albums: []Album{{Name: "東方妖々夢", AdditionalNames: "Touhou Youyoumu ~ Perfect Cherry Blossom"}},
			},
			expected: []string{"Touhou Youyoumu ~ Perfect Cherry Blossom"},
		},
		{
			name: "Raw album name",
			song: SongRecord{
				Albums: []Album{{Name: "蓬莱人形", AdditionalNames: "Dolls in Pseudo Paradise"}},
			},
			expected: []string{"蓬莱人形"},
		},
		{
			name: "Character beats stage",
			song: SongRecord{
				Albums: []Album{{Name: "東方紅魔郷", AdditionalNames: "TH06"}},
				Artists: []ArtistEntry{
					zunArtist(1),
					{Categories: "Subject", Artist: &Artist{ID: 9, Name: "フランドール・スカーレット", AdditionalNames: "Flandre Scarlet, Flan"}},
				},
				Tags: []SongTag{themesTag("extra stage boss theme", "Extra Stage 6")},
			},
			expected: []string{"Touhou 6", "Flandre Scarlet"},
		},
		{
			name: "Character by artist type falls back to name",
			song: SongRecord{
				Artists: []ArtistEntry{
					{Categories: "Other", Artist: &Artist{ID: 3, Name: "Cirno", ArtistType: "Character"}},
				},
			},
			expected: []string{"Cirno"},
		},
		{
			name: "Stage alias with digit preferred",
			song: SongRecord{
				Albums: []Album{{Name: "東方紅魔郷", AdditionalNames: "TH06"}},
				Tags: []SongTag{
					{Tag: Tag{Name: "vocal", CategoryName: "Genres"}},
					themesTag("boss theme", "Boss Theme"),
					themesTag("stage theme", "Stage Theme, Stage 3"),
				},
			},
			expected: []string{"Touhou 6", "Stage 3"},
		},
		{
			name: "Stage falls back to first textual alias",
			song: SongRecord{
				Tags: []SongTag{themesTag("title screen theme", "Title Screen, Menu")},
			},
			expected: []string{"Title Screen"},
		},
		{
			name: "Stage falls back to tag name",
			song: SongRecord{
				Tags: []SongTag{themesTag("ending theme", "")},
			},
			expected: []string{"ending theme"},
		},
		{
			name:     "Nothing to extract",
			song:     SongRecord{},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExtractFacets(tt.song)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("ExtractFacets() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestExtractFacetDetails_IDs(t *testing.T) {
	song := SongRecord{
		Albums: []Album{{ID: 77, Name: "東方永夜抄"}},
		Artists: []ArtistEntry{
			{Categories: "Subject", Artist: &Artist{ID: 12, Name: "藤原妹紅"}},
		},
		Tags: []SongTag{{Tag: Tag{Name: "Stage 6", CategoryName: "Themes"}}},
	}

	facets := ExtractFacetDetails(song)

	if facets.AlbumID != 77 {
		t.Errorf("Expected album id 77, got %d", facets.AlbumID)
	}
	if facets.CharacterArtistID != 12 {
		t.Errorf("Expected character artist id 12, got %d", facets.CharacterArtistID)
	}
	if facets.Stage != "" {
		t.Errorf("Expected no stage when a character is present, got %q", facets.Stage)
	}
}
