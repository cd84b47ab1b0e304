// Package engine drives feed synchronization for Feedwire.
//
// The engine decides which feeds to check, fetches and parses them, works
// out which entries are new relative to each feed's cursor, deduplicates
// against recently delivered content, and hands new entries to the notifier.
// It assumes a single active poller instance; the only shared mutable state
// is the fingerprint set and the full-sweep single-flight flag.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/feedwire/internal/logging"
	"github.com/abelbrown/feedwire/internal/parse"
	"github.com/abelbrown/feedwire/internal/store"
)

const (
	// fullSweepWorkers bounds concurrency for a full sweep across all feeds.
	fullSweepWorkers = 8

	// guildSweepWorkers bounds concurrency for a single guild's sweep.
	guildSweepWorkers = 4

	// feedTimeout is the hard per-feed budget inside a sweep. One slow feed
	// must not stall the cycle; on timeout the feed is recorded as failed.
	feedTimeout = 45 * time.Second

	// cursorWindow is how many of the most recent entries are examined for
	// a feed that has synced before. Tolerates feeds that reorder or
	// backfill slightly.
	cursorWindow = 3
)

// ErrFeedNotFound is returned by SyncOne when the URL is not registered.
var ErrFeedNotFound = errors.New("feed not found")

// Registry is the slice of the feed store the engine consumes.
type Registry interface {
	All() ([]store.Feed, error)
	Guild(guildID string) ([]store.Feed, error)
	Find(url string) (*store.Feed, error)
	UpdateCursor(id int64, newestDelivered time.Time) error
}

// Fetcher retrieves raw feed bytes.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Notifier renders and delivers one entry to a feed's destination,
// including any bounded retry it applies internally.
type Notifier interface {
	Deliver(ctx context.Context, feed store.Feed, entry parse.Entry) error
}

// Summary aggregates one sweep's results.
type Summary struct {
	Succeeded int // feeds that completed without error
	Failed    int // feeds that fetch/parse/deliver failed or timed out
	Delivered int // total entries delivered
}

// Engine is the sync orchestrator. Construct with New; all collaborators
// are injected so tests can build isolated instances.
type Engine struct {
	registry Registry
	fetcher  Fetcher
	notifier Notifier
	seen     *Seen

	// sweeping guards full sweeps only. Guild and single-feed syncs may
	// run alongside one; cursor updates are last-writer-wins.
	sweeping atomic.Bool
}

// New creates an Engine with an empty dedup set.
func New(registry Registry, fetcher Fetcher, notifier Notifier) *Engine {
	return &Engine{
		registry: registry,
		fetcher:  fetcher,
		notifier: notifier,
		seen:     NewSeen(),
	}
}

// CheckAll synchronizes every registered feed with bounded concurrency.
// If a full sweep is already running the call is a logged no-op.
// Per-feed failures are counted, never propagated.
func (e *Engine) CheckAll(ctx context.Context) {
	if !e.sweeping.CompareAndSwap(false, true) {
		logging.Warn("feed check already in progress, skipping this cycle")
		return
	}
	defer e.sweeping.Store(false)

	feeds, err := e.registry.All()
	if err != nil {
		logging.Error("failed to list feeds", "error", err)
		return
	}

	logging.Info("checking feeds", "count", len(feeds))
	if len(feeds) == 0 {
		return
	}

	sum := e.sweep(ctx, feeds, fullSweepWorkers)
	logging.Info("feed check complete",
		"succeeded", sum.Succeeded, "failed", sum.Failed, "delivered", sum.Delivered)
}

// CheckGuild synchronizes one guild's feeds. Runs independently of the
// full-sweep lock. The error covers only the registry lookup; per-feed
// failures are reflected in the summary.
func (e *Engine) CheckGuild(ctx context.Context, guildID string) (Summary, error) {
	feeds, err := e.registry.Guild(guildID)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list feeds for guild %s: %w", guildID, err)
	}

	sum := e.sweep(ctx, feeds, guildSweepWorkers)
	logging.Info("guild feed check complete", "guild", guildID,
		"succeeded", sum.Succeeded, "failed", sum.Failed, "delivered", sum.Delivered)
	return sum, nil
}

// SyncOne synchronizes the single feed registered under url and returns the
// number of newly delivered entries. Unlike the sweep modes, errors
// propagate to the caller.
func (e *Engine) SyncOne(ctx context.Context, url string) (int, error) {
	feed, err := e.registry.Find(url)
	if err != nil {
		return 0, fmt.Errorf("failed to look up feed %s: %w", url, err)
	}
	if feed == nil {
		return 0, fmt.Errorf("%w: %s", ErrFeedNotFound, url)
	}
	return e.syncFeed(ctx, *feed)
}

// sweep runs the per-feed routine over feeds with at most workers running
// concurrently, applying the per-feed timeout. Failures are recorded, not
// returned.
func (e *Engine) sweep(ctx context.Context, feeds []store.Feed, workers int) Summary {
	var succeeded, failed, delivered atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(workers)

	for _, feed := range feeds {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, feedTimeout)
			defer cancel()

			n, err := e.syncFeed(fctx, feed)
			delivered.Add(int64(n))
			if err != nil {
				failed.Add(1)
				if errors.Is(err, context.DeadlineExceeded) {
					logging.Warn("feed check timed out", "url", feed.URL)
				} else {
					logging.Error("feed check failed", "url", feed.URL, "error", err)
				}
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}
	g.Wait()

	return Summary{
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
		Delivered: int(delivered.Load()),
	}
}

// syncFeed is the per-feed routine: fetch, parse, pick candidates against
// the cursor, deliver, advance the cursor. Returns the number of entries
// delivered for this feed this cycle.
func (e *Engine) syncFeed(ctx context.Context, feed store.Feed) (int, error) {
	logging.Debug("checking feed", "url", feed.URL)

	raw, err := e.fetcher.Fetch(ctx, feed.URL)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", feed.URL, err)
	}

	entries, err := parse.Parse(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", feed.URL, err)
	}
	if len(entries) == 0 {
		logging.Debug("feed is empty", "url", feed.URL)
		return 0, nil
	}

	// A feed that has synced before gets a small window to tolerate
	// reordering; a brand new feed gets exactly one entry so the first
	// cycle cannot flood the channel.
	window := 1
	if feed.LastItemDate != nil {
		window = min(cursorWindow, len(entries))
	}

	// Newest first; entries without a timestamp sort last.
	sort.SliceStable(entries, func(i, j int) bool {
		var ti, tj int64
		if entries[i].Published != nil {
			ti = entries[i].Published.UnixNano()
		}
		if entries[j].Published != nil {
			tj = entries[j].Published.UnixNano()
		}
		return ti > tj
	})

	var (
		delivered  int
		newest     time.Time
		deliverErr error
	)

	for _, entry := range entries[:window] {
		fp := Fingerprint(entry)
		if e.seen.Has(fp) {
			logging.Debug("skipping already delivered entry", "fingerprint", fp)
			continue
		}

		// No timestamp means no safe comparison against the cursor.
		if entry.Published == nil {
			continue
		}

		var isNew bool
		if feed.LastItemDate == nil {
			isNew = delivered == 0
		} else {
			// Inclusive on purpose: a repost carrying the exact cursor
			// timestamp is treated as a distinct entry.
			isNew = !entry.Published.Before(*feed.LastItemDate)
		}
		if !isNew {
			continue
		}

		logging.Info("delivering new entry", "feed", feed.URL, "title", parse.EntryTitle(entry))
		if err := e.notifier.Deliver(ctx, feed, entry); err != nil {
			// A newer entry failed; do not cascade into older candidates.
			deliverErr = fmt.Errorf("deliver %s: %w", feed.URL, err)
			break
		}

		delivered++
		e.seen.Add(fp)
		if entry.Published.After(newest) {
			newest = *entry.Published
		}
	}

	if delivered > 0 {
		// Delivery is not transactional with the cursor update; a failure
		// here is logged and the entries stay delivered.
		if err := e.registry.UpdateCursor(feed.ID, newest); err != nil {
			logging.Error("failed to update cursor", "url", feed.URL, "error", err)
		}
	}

	if deliverErr != nil {
		return delivered, deliverErr
	}

	logging.Debug("feed synced", "url", feed.URL, "delivered", delivered)
	return delivered, nil
}
