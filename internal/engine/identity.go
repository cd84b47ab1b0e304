package engine

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/abelbrown/feedwire/internal/parse"
)

// titlePunct is the punctuation stripped from titles before tokenizing.
const titlePunct = "\n\r\t:!?.,;-–—"

// Fingerprint derives a stable dedup key for an entry from its normalized
// title tokens, link path segments, feed-provided guid, and publish day.
// Equivalent entries produce the same fingerprint across polling cycles;
// an entry with none of those signals gets a time-based placeholder that
// never deduplicates.
func Fingerprint(e parse.Entry) string {
	var parts []string

	title := strings.ToLower(strings.TrimSpace(parse.Clean(e.Title)))
	title = strings.Map(func(r rune) rune {
		if strings.ContainsRune(titlePunct, r) {
			return ' '
		}
		return r
	}, title)
	var words []string
	for _, w := range strings.Fields(title) {
		if len([]rune(w)) > 2 {
			words = append(words, w)
		}
	}
	if len(words) > 0 {
		parts = append(parts, strings.Join(words, " "))
	}

	if e.Link != "" {
		if u, err := url.Parse(e.Link); err == nil {
			var segs []string
			for _, s := range strings.Split(u.Path, "/") {
				if s != "" {
					segs = append(segs, s)
				}
			}
			if len(segs) > 0 {
				parts = append(parts, strings.Join(segs, "/"))
			}
		} else {
			parts = append(parts, e.Link)
		}
	}

	if e.GUID != "" {
		parts = append(parts, e.GUID)
	}

	if e.Published != nil {
		parts = append(parts, e.Published.UTC().Format("2006-01-02"))
	}

	if len(parts) == 0 {
		return fmt.Sprintf("entry_%d", time.Now().UnixNano())
	}

	return base64.StdEncoding.EncodeToString([]byte(strings.Join(parts, "|")))
}
