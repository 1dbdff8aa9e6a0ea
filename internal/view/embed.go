package view

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	embedLinePattern = regexp.MustCompile(`^\s*<?((?:https?://)?[^\s<>]+)>?\s*$`)
	embedSrcPattern  = regexp.MustCompile(`^https://(?:www\.youtube-nocookie\.com/embed/|player\.vimeo\.com/video/)`)
	listItemPattern  = regexp.MustCompile(`^(?:[-*+]|\d+\.)\s+`)
	youTubeTime      = regexp.MustCompile(`(?i)(\d+)(h|m|s)`)
	vimeoID          = regexp.MustCompile(`^\d+$`)
)

type videoEmbed struct {
	Platform string
	Source   string
	EmbedURL string
}

// contentPolicy is the UGC policy plus iframes pointing at known video players.
func contentPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class", "data-video-platform", "data-video-source").OnElements("div")
	policy.AllowAttrs("src").Matching(embedSrcPattern).OnElements("iframe")
	policy.AllowAttrs("title", "allow", "allowfullscreen", "frameborder", "loading", "referrerpolicy").OnElements("iframe")
	return policy
}

// EmbedVideos replaces lines holding only a YouTube or Vimeo link with a
// player. Code blocks, quotes and list items are left alone.
func EmbedVideos(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return markdown
	}

	lines := strings.Split(markdown, "\n")
	fence := ""
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if marker := fenceMarker(trimmed); marker != "" {
			switch {
			case fence == "":
				fence = marker
			case strings.HasPrefix(trimmed, fence):
				fence = ""
			}
			continue
		}
		if fence != "" || skipEmbedLine(line, trimmed) {
			continue
		}

		match := embedLinePattern.FindStringSubmatch(trimmed)
		if match == nil {
			continue
		}
		if embed, ok := parseVideoURL(match[1]); ok {
			lines[i] = embed.html()
		}
	}
	return strings.Join(lines, "\n")
}

func fenceMarker(line string) string {
	for _, marker := range []string{"```", "~~~"} {
		if strings.HasPrefix(line, marker) {
			return marker
		}
	}
	return ""
}

func skipEmbedLine(line, trimmed string) bool {
	return trimmed == "" ||
		strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t") ||
		strings.HasPrefix(trimmed, ">") ||
		listItemPattern.MatchString(trimmed)
}

func parseVideoURL(raw string) (videoEmbed, bool) {
	source := raw
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		source = "https://" + raw
	}

	u, err := url.Parse(source)
	if err != nil || u.Hostname() == "" {
		return videoEmbed{}, false
	}

	host := strings.ToLower(u.Hostname())
	switch {
	case host == "youtu.be" || hostOrSubdomain(host, "youtube.com"):
		return youTubeEmbed(u, source)
	case hostOrSubdomain(host, "vimeo.com"):
		id := strings.Trim(u.Path, "/")
		if !vimeoID.MatchString(id) {
			return videoEmbed{}, false
		}
		return videoEmbed{Platform: "vimeo", Source: source, EmbedURL: "https://player.vimeo.com/video/" + id}, true
	}
	return videoEmbed{}, false
}

func youTubeEmbed(u *url.URL, source string) (videoEmbed, bool) {
	var id string
	path := strings.Trim(u.Path, "/")
	if strings.EqualFold(u.Hostname(), "youtu.be") {
		id = path
	} else {
		switch {
		case path == "watch":
			id = u.Query().Get("v")
		default:
			for _, prefix := range []string{"shorts/", "embed/", "live/"} {
				if strings.HasPrefix(path, prefix) {
					id = strings.TrimPrefix(path, prefix)
				}
			}
		}
	}
	id, _, _ = strings.Cut(id, "/")
	if id == "" {
		return videoEmbed{}, false
	}

	params := url.Values{}
	params.Set("rel", "0")
	params.Set("playsinline", "1")
	start := u.Query().Get("start")
	if start == "" {
		start = u.Query().Get("t")
	}
	if seconds := parseStartTime(start); seconds > 0 {
		params.Set("start", strconv.Itoa(seconds))
	}

	return videoEmbed{
		Platform: "youtube",
		Source:   source,
		EmbedURL: "https://www.youtube-nocookie.com/embed/" + url.PathEscape(id) + "?" + params.Encode(),
	}, true
}

// parseStartTime accepts plain seconds or the 1h2m3s form.
func parseStartTime(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return max(seconds, 0)
	}

	total := 0
	for _, match := range youTubeTime.FindAllStringSubmatch(value, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		switch strings.ToLower(match[2]) {
		case "h":
			total += n * 3600
		case "m":
			total += n * 60
		case "s":
			total += n
		}
	}
	return total
}

func (e videoEmbed) html() string {
	return fmt.Sprintf(
		`<div class="video-embed" data-video-platform="%s" data-video-source="%s">`+
			`<iframe src="%s" title="Video player" loading="lazy" allow="encrypted-media; picture-in-picture; web-share" allowfullscreen frameborder="0" referrerpolicy="strict-origin-when-cross-origin"></iframe>`+
			`</div>`,
		html.EscapeString(e.Platform),
		html.EscapeString(e.Source),
		html.EscapeString(e.EmbedURL),
	)
}

func hostOrSubdomain(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}
