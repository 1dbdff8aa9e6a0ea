package view

import "strings"

// SocialLink is one populated social profile on an account payload.
type SocialLink struct {
	Platform string `json:"platform"`
	Label    string `json:"label"`
	URL      string `json:"url"`
}

type socialPlatform struct {
	Key   string
	Label string
}

// socialPlatforms fixes the display order of profile links.
var socialPlatforms = []socialPlatform{
	{Key: "facebook", Label: "Facebook"},
	{Key: "youtube", Label: "YouTube"},
	{Key: "instagram", Label: "Instagram"},
	{Key: "twitter", Label: "X / Twitter"},
	{Key: "linkedin", Label: "LinkedIn"},
}

// SocialPlatformKeys lists the accepted social field names in display order.
func SocialPlatformKeys() []string {
	keys := make([]string, 0, len(socialPlatforms))
	for _, platform := range socialPlatforms {
		keys = append(keys, platform.Key)
	}
	return keys
}

// SocialLinks returns the non-empty links from values, keyed by platform, in
// display order.
func SocialLinks(values map[string]string) []SocialLink {
	links := make([]SocialLink, 0, len(socialPlatforms))
	for _, platform := range socialPlatforms {
		url := strings.TrimSpace(values[platform.Key])
		if url == "" {
			continue
		}
		links = append(links, SocialLink{Platform: platform.Key, Label: platform.Label, URL: url})
	}
	return links
}
