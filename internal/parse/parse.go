// Package parse turns raw feed bytes into normalized entries.
//
// Feeds in the wild ship HTML-polluted titles and descriptions, CMS template
// artifacts, and CDATA wrappers; this package owns the sanitation pipeline
// that turns them into text safe to render in a Discord embed.
package parse

import (
	"errors"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// ErrEmptyFeed is returned for empty or whitespace-only content.
var ErrEmptyFeed = errors.New("feed content is empty or whitespace only")

// Entry is one item parsed out of a feed at fetch time. Fields hold the raw
// feed values; use Title, Description and ExtractImage for sanitized output.
type Entry struct {
	Title     string
	Summary   string // item description/summary as provided by the feed
	Content   string // full content block, when the feed carries one
	Link      string
	GUID      string
	Published *time.Time // published, falling back to updated; nil if neither parses
}

// Feed is the parsed document: its own title plus its entries in feed order.
type Feed struct {
	Title   string
	Entries []Entry
}

// ParseFeed converts fetched bytes into a Feed.
// Empty input and structurally invalid feed markup are errors.
func ParseFeed(content []byte) (*Feed, error) {
	text := strings.TrimSpace(string(content))
	if text == "" {
		return nil, ErrEmptyFeed
	}

	parsed, err := gofeed.NewParser().ParseString(text)
	if err != nil {
		return nil, err
	}

	feed := &Feed{Title: Clean(parsed.Title)}
	feed.Entries = make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		feed.Entries = append(feed.Entries, convertItem(item))
	}
	return feed, nil
}

// Parse converts fetched bytes into an ordered list of entries.
func Parse(content []byte) ([]Entry, error) {
	feed, err := ParseFeed(content)
	if err != nil {
		return nil, err
	}
	return feed.Entries, nil
}

// convertItem maps a gofeed.Item onto an Entry.
func convertItem(item *gofeed.Item) Entry {
	e := Entry{
		Title:   item.Title,
		Summary: item.Description,
		Content: item.Content,
		Link:    item.Link,
		GUID:    item.GUID,
	}

	if item.PublishedParsed != nil {
		e.Published = item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		e.Published = item.UpdatedParsed
	}

	return e
}

// EntryTitle returns the sanitized title, or "Untitled" when the feed
// provides none.
func EntryTitle(e Entry) string {
	if t := Clean(e.Title); t != "" {
		return t
	}
	return "Untitled"
}

// EntryDescription returns the sanitized description, preferring the item
// summary and falling back to full content. The result is capped at 1800
// characters, cut at a late sentence boundary when one exists, then a word
// boundary, then hard.
func EntryDescription(e Entry) string {
	var desc string
	switch {
	case e.Summary != "":
		desc = Clean(e.Summary)
	case e.Content != "":
		desc = Clean(e.Content)
	default:
		return "No description available."
	}

	const max, floor = 1800, 1400
	runes := []rune(desc)
	if len(runes) <= max {
		return desc
	}

	cut := string(runes[:max])
	if i := lastIndexRune(cut, "."); i > floor {
		return string([]rune(cut)[:i+1])
	}
	if i := lastIndexRune(cut, " "); i > floor {
		return string([]rune(cut)[:i]) + "…"
	}
	return string(runes[:max-3]) + "…"
}
