package media

import (
	"net/url"
	"regexp"
	"strings"
)

var urlRegex = regexp.MustCompile(`https?://[^\s]+`)

func ExtractURL(text string) string {
	return urlRegex.FindString(text)
}

func NormalizeURL(raw string) string {
	return strings.TrimSpace(raw)
}

var platforms = []struct {
	name     string
	category Category
	domains  []string
}{
	{"youtube", CategoryVideo, []string{"youtube.com", "youtu.be", "youtube-nocookie.com"}},
	{"instagram", CategorySocial, []string{"instagram.com", "instagr.am"}},
	{"tiktok", CategorySocial, []string{"tiktok.com", "vm.tiktok.com", "vt.tiktok.com"}},
	{"twitter", CategorySocial, []string{"twitter.com", "x.com"}},
	{"facebook", CategorySocial, []string{"facebook.com", "fb.watch"}},
	{"threads", CategorySocial, []string{"threads.net"}},
	{"spotify", CategoryMusic, []string{"open.spotify.com", "spotify.com"}},
}

// Classify returns the category and platform name of a URL. Unknown hosts
// are generic with an empty platform.
func Classify(raw string) (Category, string) {
	if strings.HasPrefix(raw, "spotify:") {
		return CategoryMusic, "spotify"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return CategoryGeneric, ""
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	host = strings.TrimPrefix(host, "m.")
	for _, p := range platforms {
		for _, d := range p.domains {
			if host == d || strings.HasSuffix(host, "."+d) {
				return p.category, p.name
			}
		}
	}
	return CategoryGeneric, ""
}

var youtubeIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/(?:[^/\n\s]+/\S+/|(?:v|e(?:mbed)?)/|\S*?[?&]v=)|youtu\.be/)([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/shorts/([a-zA-Z0-9_-]{11})`),
}

// YouTubeID extracts the 11 character video identifier, or "".
func YouTubeID(raw string) string {
	for _, re := range youtubeIDPatterns {
		if m := re.FindStringSubmatch(raw); m != nil {
			return m[1]
		}
	}
	return ""
}

var instagramPatterns = []*regexp.Regexp{
	regexp.MustCompile(`instagram\.com/p/([^/?#]+)`),
	regexp.MustCompile(`instagram\.com/reels?/([^/?#]+)`),
	regexp.MustCompile(`instagram\.com/tv/([^/?#]+)`),
	regexp.MustCompile(`instagram\.com/stories/[^/]+/([^/?#]+)`),
}

func InstagramShortcode(raw string) string {
	for _, re := range instagramPatterns {
		if m := re.FindStringSubmatch(raw); m != nil {
			return m[1]
		}
	}
	return ""
}

type SpotifyKind string

const (
	SpotifyTrack    SpotifyKind = "track"
	SpotifyAlbum    SpotifyKind = "album"
	SpotifyPlaylist SpotifyKind = "playlist"
	SpotifyArtist   SpotifyKind = "artist"
)

var spotifyPattern = regexp.MustCompile(`spotify(?::|\.com/(?:intl-[a-z]+/)?)(track|album|playlist|artist)[:/]([a-zA-Z0-9]+)`)

// SpotifyID accepts both open.spotify.com links and spotify: URIs.
func SpotifyID(raw string) (SpotifyKind, string) {
	m := spotifyPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", ""
	}
	return SpotifyKind(m[1]), m[2]
}
