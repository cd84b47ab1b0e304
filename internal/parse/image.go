package parse

import (
	"regexp"
	"strings"
)

var imgSrcRE = regexp.MustCompile(`(?i)<img[^>]+src=["']([^"']+)["'][^>]*>`)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".svg"}

// ExtractImage scans the entry's content for the first embedded image
// reference and returns its URL, or "" when no plausible image exists.
func ExtractImage(e Entry) string {
	html := e.Content
	if html == "" {
		html = e.Summary
	}
	if html == "" {
		return ""
	}

	m := imgSrcRE.FindStringSubmatch(html)
	if m == nil {
		return ""
	}

	if ValidImageURL(m[1]) {
		return m[1]
	}
	return ""
}

// ValidImageURL reports whether the URL looks like it points at an image:
// a known extension anywhere in the URL, or an image-indicating token.
func ValidImageURL(url string) bool {
	lower := strings.ToLower(url)
	for _, ext := range imageExtensions {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	return strings.Contains(lower, "image") || strings.Contains(lower, "img")
}
