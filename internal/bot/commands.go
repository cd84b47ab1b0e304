package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/abelbrown/feedwire/internal/engine"
	"github.com/abelbrown/feedwire/internal/logging"
	"github.com/abelbrown/feedwire/internal/parse"
)

// commandTimeout bounds the work behind one slash command. Sync of a whole
// guild can take a while; Discord gives deferred replies 15 minutes.
const commandTimeout = 5 * time.Minute

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.Name != "feedwire" {
		return
	}

	if i.GuildID == "" {
		respond(s, i, "This command can only be used in a server.")
		return
	}

	// Defer: add and sync hit the network.
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}); err != nil {
		logging.Error("failed to defer interaction", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	sub := data.Options[0]
	var content string
	switch sub.Name {
	case "add":
		content = b.handleAdd(ctx, i, sub)
	case "remove":
		content = b.handleRemove(i, sub)
	case "list":
		content = b.handleList(i)
	case "sync":
		content = b.handleSync(ctx, i, sub)
	default:
		content = "Unknown subcommand."
	}

	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	}); err != nil {
		logging.Error("failed to edit interaction response", "error", err)
	}
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags:   discordgo.MessageFlagsEphemeral,
			Content: content,
		},
	})
	if err != nil {
		logging.Error("failed to respond to interaction", "error", err)
	}
}

// handleAdd validates the feed by fetching and parsing it once, then
// registers it for this guild.
func (b *Bot) handleAdd(ctx context.Context, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) string {
	var url, webhook string
	channelID := i.ChannelID
	for _, opt := range sub.Options {
		switch opt.Name {
		case "url":
			url = strings.TrimSpace(opt.StringValue())
		case "channel":
			channelID = opt.ChannelValue(nil).ID
		case "webhook":
			webhook = strings.TrimSpace(opt.StringValue())
		}
	}

	dup, err := b.store.Duplicate(i.GuildID, channelID, url)
	if err != nil {
		logging.Error("failed to check for duplicate feed", "error", err)
		return "Something went wrong, try again later."
	}
	if dup {
		return "That feed is already subscribed in that channel."
	}

	raw, err := b.fetcher.Fetch(ctx, url)
	if err != nil {
		return fmt.Sprintf("Could not fetch that feed: %v", err)
	}
	feed, err := parse.ParseFeed(raw)
	if err != nil {
		return fmt.Sprintf("That URL does not look like a valid RSS/Atom feed: %v", err)
	}

	if err := b.store.Add(i.GuildID, channelID, url, feed.Title, webhook); err != nil {
		logging.Error("failed to add feed", "url", url, "error", err)
		return "Failed to save the subscription, try again later."
	}

	title := feed.Title
	if title == "" {
		title = url
	}
	logging.Info("feed added", "guild", i.GuildID, "channel", channelID, "url", url)
	return fmt.Sprintf("Subscribed to **%s** (%d entries).", title, len(feed.Entries))
}

func (b *Bot) handleRemove(i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) string {
	url := strings.TrimSpace(sub.Options[0].StringValue())

	removed, err := b.store.Remove(i.GuildID, url)
	if err != nil {
		logging.Error("failed to remove feed", "url", url, "error", err)
		return "Failed to remove the subscription, try again later."
	}
	if !removed {
		return "No subscription found for that URL."
	}
	logging.Info("feed removed", "guild", i.GuildID, "url", url)
	return "Unsubscribed."
}

func (b *Bot) handleList(i *discordgo.InteractionCreate) string {
	feeds, err := b.store.Guild(i.GuildID)
	if err != nil {
		logging.Error("failed to list feeds", "guild", i.GuildID, "error", err)
		return "Failed to list subscriptions, try again later."
	}
	if len(feeds) == 0 {
		return "No feed subscriptions yet. Use `/feedwire add` to create one."
	}

	var sb strings.Builder
	sb.WriteString("Subscriptions:\n")
	for _, f := range feeds {
		title := f.Title
		if title == "" {
			title = f.URL
		}
		fmt.Fprintf(&sb, "- **%s** <%s> → <#%s>\n", title, f.URL, f.ChannelID)
	}
	return sb.String()
}

func (b *Bot) handleSync(ctx context.Context, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) string {
	var url string
	for _, opt := range sub.Options {
		if opt.Name == "url" {
			url = strings.TrimSpace(opt.StringValue())
		}
	}

	if url != "" {
		n, err := b.engine.SyncOne(ctx, url)
		if err != nil {
			if errors.Is(err, engine.ErrFeedNotFound) {
				return "No subscription found for that URL."
			}
			return fmt.Sprintf("Failed to sync feed: %v", err)
		}
		if n == 0 {
			return "Synced feed, no new items found."
		}
		return fmt.Sprintf("Synced feed and found %d new item(s).", n)
	}

	sum, err := b.engine.CheckGuild(ctx, i.GuildID)
	if err != nil {
		return fmt.Sprintf("Failed to sync feeds: %v", err)
	}
	return fmt.Sprintf("Synced %d feed(s): %d new item(s), %d failure(s).",
		sum.Succeeded+sum.Failed, sum.Delivered, sum.Failed)
}
