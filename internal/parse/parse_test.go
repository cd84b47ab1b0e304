package parse

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Blog</title>
    <item>
      <title>First &amp; Best Article</title>
      <link>http://example.com/posts/first</link>
      <guid>post-1</guid>
      <description><![CDATA[<p>Hello <b>world</b></p>]]></description>
      <pubDate>Mon, 01 Jan 2024 12:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Second Article</title>
      <link>http://example.com/posts/second</link>
      <description>Plain text</description>
    </item>
  </channel>
</rss>`

func TestParseFeed(t *testing.T) {
	feed, err := ParseFeed([]byte(sampleRSS))
	if err != nil {
		t.Fatalf("ParseFeed failed: %v", err)
	}

	if feed.Title != "Example Blog" {
		t.Errorf("expected feed title 'Example Blog', got %q", feed.Title)
	}
	if len(feed.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(feed.Entries))
	}

	first := feed.Entries[0]
	if EntryTitle(first) != "First & Best Article" {
		t.Errorf("unexpected title: %q", EntryTitle(first))
	}
	if first.Link != "http://example.com/posts/first" {
		t.Errorf("unexpected link: %q", first.Link)
	}
	if first.GUID != "post-1" {
		t.Errorf("unexpected guid: %q", first.GUID)
	}
	if first.Published == nil {
		t.Fatal("expected published time")
	}
	want := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	if !first.Published.Equal(want) {
		t.Errorf("expected published %v, got %v", want, first.Published)
	}
	if got := EntryDescription(first); got != "Hello world" {
		t.Errorf("expected sanitized description 'Hello world', got %q", got)
	}

	second := feed.Entries[1]
	if second.Published != nil {
		t.Errorf("expected nil published for undated entry, got %v", second.Published)
	}
}

func TestParseEmpty(t *testing.T) {
	for _, content := range []string{"", "   ", "\n\t  \n"} {
		_, err := Parse([]byte(content))
		if !errors.Is(err, ErrEmptyFeed) {
			t.Errorf("Parse(%q): expected ErrEmptyFeed, got %v", content, err)
		}
	}
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte("this is not a feed"))
	if err == nil {
		t.Error("expected error for non-feed content")
	}
}

func TestEntryTitleFallback(t *testing.T) {
	if got := EntryTitle(Entry{}); got != "Untitled" {
		t.Errorf("expected 'Untitled', got %q", got)
	}
}

func TestEntryDescriptionFallbacks(t *testing.T) {
	if got := EntryDescription(Entry{}); got != "No description available." {
		t.Errorf("expected fallback description, got %q", got)
	}

	e := Entry{Content: "<p>From content</p>"}
	if got := EntryDescription(e); got != "From content" {
		t.Errorf("expected content fallback, got %q", got)
	}

	// Summary wins over content.
	e = Entry{Summary: "summary", Content: "content"}
	if got := EntryDescription(e); got != "summary" {
		t.Errorf("expected summary to win, got %q", got)
	}
}

func TestEntryDescriptionCaps(t *testing.T) {
	// One long sentence ending late: expect a sentence-boundary cut.
	long := strings.Repeat("a", 1500) + ". " + strings.Repeat("b", 1000)
	got := EntryDescription(Entry{Summary: long})
	if len([]rune(got)) > 1800 {
		t.Errorf("description exceeds cap: %d runes", len([]rune(got)))
	}
	if !strings.HasSuffix(got, ".") {
		t.Errorf("expected sentence-boundary cut, got suffix %q", got[len(got)-10:])
	}

	// No boundaries at all: hard cut with ellipsis.
	got = EntryDescription(Entry{Summary: strings.Repeat("x", 2500)})
	if len([]rune(got)) > 1800 {
		t.Errorf("hard-cut description exceeds cap: %d runes", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "…") {
		t.Error("expected ellipsis on hard cut")
	}
}
