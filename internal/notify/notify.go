// Package notify renders feed entries as Discord embeds and delivers them
// to a feed's configured destination, either a webhook or a channel.
package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/abelbrown/feedwire/internal/logging"
	"github.com/abelbrown/feedwire/internal/parse"
	"github.com/abelbrown/feedwire/internal/store"
)

const (
	// maxTitleLen is Discord's embed title limit.
	maxTitleLen = 256

	// deliveryAttempts is the total number of send attempts per entry.
	deliveryAttempts = 2
)

// DeliveryError indicates the destination rejected or was unreachable for
// every attempt.
type DeliveryError struct {
	Attempts int
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to deliver after %d attempts: %v", e.Attempts, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// sender is the slice of discordgo.Session the notifier uses.
type sender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Notifier delivers rendered entries over a Discord session.
type Notifier struct {
	session sender
}

// New creates a Notifier on top of an open Discord session.
func New(session *discordgo.Session) *Notifier {
	return &Notifier{session: session}
}

// newWithSender allows injecting a fake session in tests.
func newWithSender(s sender) *Notifier {
	return &Notifier{session: s}
}

// target is the resolved destination for one feed: a webhook when the feed
// carries one, otherwise the bound channel.
type target struct {
	webhookID    string
	webhookToken string
	channelID    string
}

func (t target) isWebhook() bool { return t.webhookID != "" }

// resolveTarget works out where a feed's entries go. Resolved once per
// delivery, not duck-typed at send time.
func resolveTarget(feed store.Feed) (target, error) {
	if feed.WebhookURL == "" {
		if feed.ChannelID == "" {
			return target{}, fmt.Errorf("feed %s has no destination", feed.URL)
		}
		return target{channelID: feed.ChannelID}, nil
	}

	u, err := url.Parse(feed.WebhookURL)
	if err != nil {
		return target{}, fmt.Errorf("invalid webhook URL for feed %s: %w", feed.URL, err)
	}

	// Discord webhook URLs end in /webhooks/{id}/{token}.
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, s := range segs {
		if s == "webhooks" && i+2 < len(segs) {
			return target{webhookID: segs[i+1], webhookToken: segs[i+2]}, nil
		}
	}
	return target{}, fmt.Errorf("invalid webhook URL for feed %s: missing id/token", feed.URL)
}

// Deliver renders entry against feed's presentation rules and sends it,
// retrying once immediately on failure. A second failure surfaces as a
// *DeliveryError.
func (n *Notifier) Deliver(ctx context.Context, feed store.Feed, entry parse.Entry) error {
	tgt, err := resolveTarget(feed)
	if err != nil {
		return &DeliveryError{Attempts: 0, Err: err}
	}

	embed := renderEmbed(feed, entry)

	var lastErr error
	for attempt := 1; attempt <= deliveryAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if tgt.isWebhook() {
			_, lastErr = n.session.WebhookExecute(tgt.webhookID, tgt.webhookToken, true,
				&discordgo.WebhookParams{Embeds: []*discordgo.MessageEmbed{embed}})
		} else {
			_, lastErr = n.session.ChannelMessageSendEmbed(tgt.channelID, embed)
		}
		if lastErr == nil {
			return nil
		}
		if attempt < deliveryAttempts {
			logging.Warn("failed to send message, retrying",
				"feed", feed.URL, "attempt", attempt, "error", lastErr)
		}
	}

	return &DeliveryError{Attempts: deliveryAttempts, Err: lastErr}
}

// renderEmbed builds the Discord embed for one entry: truncated title,
// sanitized description, link, timestamp, optional image, and a footer
// identifying the source feed.
func renderEmbed(feed store.Feed, entry parse.Entry) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       parse.Truncate(parse.EntryTitle(entry), maxTitleLen),
		Description: parse.EntryDescription(entry),
	}

	if entry.Link != "" {
		embed.URL = entry.Link
	}
	if entry.Published != nil {
		embed.Timestamp = entry.Published.UTC().Format(time.RFC3339)
	}
	if img := parse.ExtractImage(entry); img != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: img}
	}

	embed.Footer = &discordgo.MessageEmbedFooter{Text: footerText(feed)}
	return embed
}

// footerText prefers the feed's human label, falling back to its host.
func footerText(feed store.Feed) string {
	if feed.Title != "" {
		return parse.Clean(feed.Title)
	}
	if u, err := url.Parse(feed.URL); err == nil && u.Host != "" {
		return u.Host
	}
	return feed.URL
}
