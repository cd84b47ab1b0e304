package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"github.com/abelbrown/feedwire/internal/bot"
	"github.com/abelbrown/feedwire/internal/config"
	"github.com/abelbrown/feedwire/internal/engine"
	"github.com/abelbrown/feedwire/internal/fetch"
	"github.com/abelbrown/feedwire/internal/logging"
	"github.com/abelbrown/feedwire/internal/notify"
	"github.com/abelbrown/feedwire/internal/store"
)

var configPath = flag.String("config", config.DefaultPath(), "path to config file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, config.ErrTokenMissing) {
			log.Fatalf("No bot token configured: edit %s and restart (%v)", *configPath, err)
		}
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logging.Init(cfg.Log.Dir); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Close()
	logging.SetLevel(cfg.Log.Level)

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		logging.Fatal("failed to open database", "path", cfg.Database.Path, "error", err)
	}
	defer st.Close()

	session, err := discordgo.New("Bot " + cfg.Bot.Token)
	if err != nil {
		logging.Fatal("failed to create discord session", "error", err)
	}

	// One outbound fetch every couple hundred milliseconds keeps a big
	// sweep from hammering hosts behind shared CDNs.
	fetcher := fetch.NewFetcher(fetch.DefaultTimeout).
		WithLimiter(rate.NewLimiter(rate.Every(200*time.Millisecond), 4))

	eng := engine.New(st, fetcher, notify.New(session))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bot.New(session, st, eng, fetcher,
		time.Duration(cfg.Bot.CheckIntervalMinutes)*time.Minute,
		time.Duration(cfg.Bot.StatusIntervalMinutes)*time.Minute)
	if err := b.Start(ctx); err != nil {
		logging.Fatal("failed to start bot", "error", err)
	}

	logging.Info("feedwire started", "config", *configPath, "db", cfg.Database.Path)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logging.Info("shutting down")
	cancel()
	if err := b.Close(); err != nil {
		logging.Error("failed to close bot cleanly", "error", err)
	}
}
