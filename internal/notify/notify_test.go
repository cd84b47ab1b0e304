package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/abelbrown/feedwire/internal/parse"
	"github.com/abelbrown/feedwire/internal/store"
)

// fakeSender records calls and fails a configurable number of times.
type fakeSender struct {
	channelCalls []string
	webhookCalls [][2]string
	lastEmbed    *discordgo.MessageEmbed
	failures     int // fail this many leading attempts
}

func (f *fakeSender) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.channelCalls = append(f.channelCalls, channelID)
	f.lastEmbed = embed
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("channel unavailable")
	}
	return &discordgo.Message{}, nil
}

func (f *fakeSender) WebhookExecute(webhookID, token string, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.webhookCalls = append(f.webhookCalls, [2]string{webhookID, token})
	if len(data.Embeds) > 0 {
		f.lastEmbed = data.Embeds[0]
	}
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("webhook unavailable")
	}
	return &discordgo.Message{}, nil
}

func testFeed() store.Feed {
	return store.Feed{
		ID:        1,
		GuildID:   "g1",
		ChannelID: "c1",
		URL:       "http://example.com/feed",
		Title:     "Example Feed",
	}
}

func testEntry() parse.Entry {
	published := time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC)
	return parse.Entry{
		Title:     "An Update",
		Summary:   "<p>Something happened.</p>",
		Link:      "http://example.com/posts/update",
		Published: &published,
	}
}

func TestDeliverToChannel(t *testing.T) {
	sender := &fakeSender{}
	n := newWithSender(sender)

	if err := n.Deliver(context.Background(), testFeed(), testEntry()); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if len(sender.channelCalls) != 1 || sender.channelCalls[0] != "c1" {
		t.Errorf("expected one send to channel c1, got %v", sender.channelCalls)
	}
	if len(sender.webhookCalls) != 0 {
		t.Error("did not expect webhook delivery")
	}
}

func TestDeliverToWebhook(t *testing.T) {
	sender := &fakeSender{}
	n := newWithSender(sender)

	feed := testFeed()
	feed.WebhookURL = "https://discord.com/api/webhooks/12345/secrettoken"

	if err := n.Deliver(context.Background(), feed, testEntry()); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if len(sender.webhookCalls) != 1 {
		t.Fatalf("expected one webhook call, got %d", len(sender.webhookCalls))
	}
	if got := sender.webhookCalls[0]; got[0] != "12345" || got[1] != "secrettoken" {
		t.Errorf("webhook id/token parsed wrong: %v", got)
	}
	if len(sender.channelCalls) != 0 {
		t.Error("did not expect channel delivery")
	}
}

func TestDeliverRetriesOnce(t *testing.T) {
	sender := &fakeSender{failures: 1}
	n := newWithSender(sender)

	if err := n.Deliver(context.Background(), testFeed(), testEntry()); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if len(sender.channelCalls) != 2 {
		t.Errorf("expected 2 attempts, got %d", len(sender.channelCalls))
	}
}

func TestDeliverFailsAfterTwoAttempts(t *testing.T) {
	sender := &fakeSender{failures: 2}
	n := newWithSender(sender)

	err := n.Deliver(context.Background(), testFeed(), testEntry())
	var dErr *DeliveryError
	if !errors.As(err, &dErr) {
		t.Fatalf("expected *DeliveryError, got %v", err)
	}
	if dErr.Attempts != 2 {
		t.Errorf("expected 2 attempts recorded, got %d", dErr.Attempts)
	}
	if len(sender.channelCalls) != 2 {
		t.Errorf("expected exactly 2 attempts, got %d", len(sender.channelCalls))
	}
}

func TestDeliverBadWebhookURL(t *testing.T) {
	sender := &fakeSender{}
	n := newWithSender(sender)

	feed := testFeed()
	feed.WebhookURL = "https://discord.com/api/nothooks/12345"

	err := n.Deliver(context.Background(), feed, testEntry())
	var dErr *DeliveryError
	if !errors.As(err, &dErr) {
		t.Fatalf("expected *DeliveryError for bad webhook URL, got %v", err)
	}
	if len(sender.channelCalls)+len(sender.webhookCalls) != 0 {
		t.Error("no send should be attempted for an unresolvable target")
	}
}

func TestRenderEmbed(t *testing.T) {
	embed := renderEmbed(testFeed(), testEntry())

	if embed.Title != "An Update" {
		t.Errorf("unexpected title: %q", embed.Title)
	}
	if embed.Description != "Something happened." {
		t.Errorf("unexpected description: %q", embed.Description)
	}
	if embed.URL != "http://example.com/posts/update" {
		t.Errorf("unexpected URL: %q", embed.URL)
	}
	if embed.Timestamp != "2024-01-05T10:30:00Z" {
		t.Errorf("unexpected timestamp: %q", embed.Timestamp)
	}
	if embed.Footer == nil || embed.Footer.Text != "Example Feed" {
		t.Errorf("unexpected footer: %+v", embed.Footer)
	}
	if embed.Image != nil {
		t.Errorf("did not expect an image: %+v", embed.Image)
	}
}

func TestRenderEmbedImageAndFooterHost(t *testing.T) {
	feed := testFeed()
	feed.Title = ""

	entry := testEntry()
	entry.Content = `<p><img src="http://example.com/cover.jpg"></p>`

	embed := renderEmbed(feed, entry)
	if embed.Image == nil || embed.Image.URL != "http://example.com/cover.jpg" {
		t.Errorf("expected extracted image, got %+v", embed.Image)
	}
	if embed.Footer.Text != "example.com" {
		t.Errorf("expected host footer, got %q", embed.Footer.Text)
	}
}

func TestRenderEmbedTruncatesTitle(t *testing.T) {
	entry := testEntry()
	long := ""
	for range 40 {
		long += "verylongword "
	}
	entry.Title = long

	embed := renderEmbed(testFeed(), entry)
	if got := len([]rune(embed.Title)); got > 256 {
		t.Errorf("title exceeds 256 runes: %d", got)
	}
}
