package ytvideo

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	idPattern  = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	refPattern = regexp.MustCompile(`(?:youtube\.com/(?:watch\?v=|embed/|v/|live/)|youtu\.be/)([a-zA-Z0-9_-]+)`)
)

// ExtractID returns the video id of a watch, short, embed, /v/ or live link.
func ExtractID(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}

	if m := refPattern.FindStringSubmatch(ref); m != nil && m[1] != "" {
		return m[1], true
	}

	// watch links where v is not the first query parameter
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	if host != "youtube.com" || u.Path != "/watch" {
		return "", false
	}
	if id := u.Query().Get("v"); idPattern.MatchString(id) {
		return id, true
	}

	return "", false
}

func IsValid(ref string) bool {
	_, ok := ExtractID(ref)
	return ok
}

// EmbedURL builds a player URL with native controls hidden; playback control
// goes through the JS API.
func EmbedURL(videoID, origin string) string {
	q := url.Values{}
	q.Set("autoplay", "1")
	q.Set("mute", "0")
	q.Set("controls", "0")
	q.Set("disablekb", "1")
	q.Set("fs", "0")
	q.Set("modestbranding", "1")
	q.Set("rel", "0")
	q.Set("enablejsapi", "1")
	if origin != "" {
		q.Set("origin", origin)
	}

	return "https://www.youtube.com/embed/" + url.PathEscape(videoID) + "?" + q.Encode()
}
