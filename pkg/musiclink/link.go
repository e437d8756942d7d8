// Package musiclink parses streaming service links and turns them into in-app navigation targets.
package musiclink

import (
	"errors"
	"net/url"
	"strings"
)

// SearchArtistPrefix is prepended to fallback searches so results favor the original composer.
const SearchArtistPrefix = "ZUN "

// Service names, matching TouhouDB's PV service values.
const (
	ServiceSpotify    = "Spotify"
	ServiceYoutube    = "Youtube"
	ServiceSoundCloud = "SoundCloud"
	ServiceAppleMusic = "AppleMusic"
	ServiceTidal      = "Tidal"
	ServiceBandcamp   = "Bandcamp"
	ServiceNico       = "NicoNicoDouga"
	ServiceUnknown    = ""
)

var (
	// ErrEmptyLink is returned when parsing an empty link.
	ErrEmptyLink = errors.New("empty link")
	// ErrUnsupportedLink is returned for strings that are neither a URI nor an absolute URL.
	ErrUnsupportedLink = errors.New("unsupported link")
)

// Link is a parsed service link.
type Link struct {
	Service string
	// Path is the in-app path, e.g. "/track/4uLU6hMCjMI75M1A2tKUQC".
	Path string
	Raw  string
}

var serviceHosts = map[string]string{
	"open.spotify.com":  ServiceSpotify,
	"play.spotify.com":  ServiceSpotify,
	"youtube.com":       ServiceYoutube,
	"www.youtube.com":   ServiceYoutube,
	"m.youtube.com":     ServiceYoutube,
	"music.youtube.com": ServiceYoutube,
	"youtu.be":          ServiceYoutube,
	"soundcloud.com":    ServiceSoundCloud,
	"m.soundcloud.com":  ServiceSoundCloud,
	"music.apple.com":   ServiceAppleMusic,
	"tidal.com":         ServiceTidal,
	"listen.tidal.com":  ServiceTidal,
	"www.nicovideo.jp":  ServiceNico,
	"nicovideo.jp":      ServiceNico,
	"nico.ms":           ServiceNico,
}

// Parse recognizes "spotify:type:id" URIs and absolute http(s) URLs.
func Parse(raw string) (*Link, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyLink
	}

	if strings.HasPrefix(raw, "spotify:") {
		parts := strings.Split(raw, ":")
		if len(parts) < 3 || parts[1] == "" || parts[2] == "" {
			return nil, ErrUnsupportedLink
		}
		return &Link{Service: ServiceSpotify, Path: "/" + strings.Join(parts[1:3], "/"), Raw: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrUnsupportedLink
	}

	hostname := strings.ToLower(u.Hostname())
	service, ok := serviceHosts[hostname]
	if !ok && strings.HasSuffix(hostname, ".bandcamp.com") {
		service = ServiceBandcamp
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return &Link{Service: service, Path: path, Raw: raw}, nil
}

// OpenPath converts a link to the path the player navigates to. Unparseable
// links are returned unchanged.
func OpenPath(raw string) string {
	link, err := Parse(raw)
	if err != nil {
		return raw
	}
	return link.Path
}

// SearchPath is the player search path for name, prefixed with the composer.
func SearchPath(name string) string {
	return "/search/" + url.PathEscape(SearchArtistPrefix+name)
}

// SpotifyURI converts a Spotify web URL or URI to "spotify:type:id". It returns
// "" for links of other services.
func SpotifyURI(raw string) string {
	link, err := Parse(raw)
	if err != nil || link.Service != ServiceSpotify {
		return ""
	}
	segments := strings.Split(strings.Trim(link.Path, "/"), "/")
	// Web player URLs may carry a locale segment such as /intl-ja/track/id.
	if len(segments) > 0 && strings.HasPrefix(segments[0], "intl-") {
		segments = segments[1:]
	}
	if len(segments) < 2 {
		return ""
	}
	return "spotify:" + strings.Join(segments[:2], ":")
}
