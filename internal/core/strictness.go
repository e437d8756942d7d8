package core

import (
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// StrictOriginalArtists are the credits that name the original composer and nothing else.
var StrictOriginalArtists = []string{"ZUN", "上海アリス幻樂団"}

// arrangementKeywords mark a release as an arrangement when found in its title or album.
var arrangementKeywords = []string{
	"violin",
	"バイオリン",
	"remix",
	"arrang",
	"orchestra",
	"cover",
	"instrumental",
	"rework",
	"tribute",
	"mix",
	"tamusic",
	"アレンジ",
	"リミックス",
	"オーケストラ",
	"カバー",
}

// multiCreditSeparators signal a collaboration inside a single credit string.
const multiCreditSeparators = "&,/"

// IsStrictlyOriginal reports whether the reported credits name only the original
// composer, with no arrangement markers in title or album and no other credit slots.
func IsStrictlyOriginal(artistName, title, album string, creditSlots []string) bool {
	if !slices.Contains(StrictOriginalArtists, artistName) {
		return false
	}

	if strings.ContainsAny(artistName, multiCreditSeparators) {
		return false
	}

	combined := strings.ToLower(norm.NFKC.String(title + " " + album))
	for _, keyword := range arrangementKeywords {
		if strings.Contains(combined, keyword) {
			return false
		}
	}

	for _, slot := range creditSlots {
		slot = strings.TrimSpace(slot)
		if slot == "" {
			continue
		}
		if !isStrictOriginalCredit(slot) {
			return false
		}
	}

	return true
}

func isStrictOriginalCredit(name string) bool {
	for _, canonical := range StrictOriginalArtists {
		if strings.EqualFold(canonical, name) {
			return true
		}
	}
	return false
}
