// Package view turns stored post and profile text into API-ready fragments.
package view

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML(), html.WithUnsafe()),
	)
	sanitizer = contentPolicy()
)

// RenderMarkdown converts markdown to HTML safe to embed in a page. Raw HTML
// and video links survive only as far as the sanitizer allows.
func RenderMarkdown(content string) (string, error) {
	if content == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(EmbedVideos(content)), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return SanitizeHTML(buf.String()), nil
}

// SanitizeHTML strips markup outside the content policy.
func SanitizeHTML(fragment string) string {
	return sanitizer.Sanitize(fragment)
}
