// Package bot wires the sync engine to Discord: slash commands, lifecycle
// handlers, and the periodic check tickers.
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/abelbrown/feedwire/internal/engine"
	"github.com/abelbrown/feedwire/internal/fetch"
	"github.com/abelbrown/feedwire/internal/logging"
	"github.com/abelbrown/feedwire/internal/store"
)

var (
	defaultMemberPermissions int64 = discordgo.PermissionAdministrator // admin only
	commands                       = []*discordgo.ApplicationCommand{
		{
			Name:                     "feedwire",
			Description:              "Manage RSS feed subscriptions",
			DefaultMemberPermissions: &defaultMemberPermissions,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "subscribe this server to a feed",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "url",
							Description: "the url of the feed",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionChannel,
							Name:        "channel",
							Description: "channel to post to (defaults to the current channel)",
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "webhook",
							Description: "webhook url to post through instead of the channel",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "remove a feed subscription",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "url",
							Description: "the url of the feed",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "list this server's feed subscriptions",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "sync",
					Description: "synchronize one feed, or all of this server's feeds",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "url",
							Description: "specific feed url to sync",
						},
					},
				},
			},
		},
	}
)

// Bot owns the Discord session and the background check loops.
type Bot struct {
	session *discordgo.Session
	store   *store.Store
	engine  *engine.Engine
	fetcher *fetch.Fetcher

	checkInterval  time.Duration
	statusInterval time.Duration

	wg sync.WaitGroup
}

// New creates a Bot over an unopened session. Call Start to connect.
func New(session *discordgo.Session, st *store.Store, eng *engine.Engine,
	fetcher *fetch.Fetcher, checkInterval, statusInterval time.Duration) *Bot {
	return &Bot{
		session:        session,
		store:          st,
		engine:         eng,
		fetcher:        fetcher,
		checkInterval:  checkInterval,
		statusInterval: statusInterval,
	}
}

// Start opens the session, registers the slash commands, and launches the
// periodic check and presence loops. The loops stop when ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	b.session.AddHandler(onReady)
	b.session.AddHandler(b.onInteraction)
	b.session.AddHandler(b.onChannelDelete)
	b.session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}

	for _, cmd := range commands {
		if _, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, "", cmd); err != nil {
			return fmt.Errorf("failed to register command %s: %w", cmd.Name, err)
		}
	}

	b.wg.Add(2)
	go b.checkLoop(ctx)
	go b.statusLoop(ctx)
	return nil
}

// Close waits for the background loops and closes the session.
func (b *Bot) Close() error {
	b.wg.Wait()
	return b.session.Close()
}

func onReady(_ *discordgo.Session, r *discordgo.Ready) {
	logging.Info("bot is ready", "user", r.User.Username+"#"+r.User.Discriminator)
}

// checkLoop drives the full sweep on the configured interval. The first
// sweep runs immediately.
func (b *Bot) checkLoop(ctx context.Context) {
	defer b.wg.Done()

	b.engine.CheckAll(ctx)

	ticker := time.NewTicker(b.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.engine.CheckAll(ctx)
		}
	}
}

// statusLoop refreshes the bot presence with the current feed count.
func (b *Bot) statusLoop(ctx context.Context) {
	defer b.wg.Done()

	b.updateStatus()

	ticker := time.NewTicker(b.statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.updateStatus()
		}
	}
}

func (b *Bot) updateStatus() {
	count, err := b.store.Count()
	if err != nil {
		logging.Error("failed to count feeds for status", "error", err)
		return
	}
	plural := "s"
	if count == 1 {
		plural = ""
	}
	if err := b.session.UpdateWatchStatus(0, fmt.Sprintf("%d feed%s", count, plural)); err != nil {
		logging.Warn("failed to update presence", "error", err)
	}
}

// onChannelDelete prunes every feed bound to a deleted channel. A feed can
// vanish mid-cycle this way; the engine tolerates the resulting delivery
// failure.
func (b *Bot) onChannelDelete(_ *discordgo.Session, c *discordgo.ChannelDelete) {
	if c.GuildID == "" {
		return
	}
	removed, err := b.store.RemoveChannel(c.GuildID, c.ID)
	if err != nil {
		logging.Error("failed to clean up feeds for deleted channel",
			"guild", c.GuildID, "channel", c.ID, "error", err)
		return
	}
	if removed > 0 {
		logging.Info("removed feeds for deleted channel",
			"guild", c.GuildID, "channel", c.ID, "count", removed)
	}
}
