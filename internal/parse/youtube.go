package parse

import (
	"net/url"
	"strings"
)

// YouTubeID extracts the video identifier from the URL shapes staff paste into
// the panel. It returns "" when raw is not a recognizable YouTube link.
//
//	https://www.youtube.com/watch?v=ID
//	https://youtu.be/ID
//	https://www.youtube.com/embed/ID
func YouTubeID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())

	if strings.Contains(host, "youtube.com") || strings.Contains(host, "youtube-nocookie.com") {
		if v := u.Query().Get("v"); v != "" {
			return v
		}
	}

	if strings.Contains(host, "youtu.be") {
		return strings.Trim(u.Path, "/")
	}

	if strings.HasPrefix(u.Path, "/embed/") {
		return strings.TrimPrefix(u.Path, "/embed/")
	}

	return ""
}
