package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// recordTimeout bounds a RecordAsync write.
const recordTimeout = 5 * time.Second

// Hit is a request for a post page.
type Hit struct {
	PostID    string
	Slug      string
	IP        string
	UserAgent string
	Referrer  string
	DNT       bool
}

// TrackerConfig configures a Tracker.
type TrackerConfig struct {
	SiteHost     string        // referrers from this host are reported as "Internal"
	RepeatWindow time.Duration // default 30m
	Logger       *slog.Logger
}

// Tracker turns post page hits into stored views.
type Tracker struct {
	store    *Store
	salt     string
	siteHost string
	repeats  *repeatFilter
	log      *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// NewTracker loads the hashing salt from store and returns a Tracker.
func NewTracker(ctx context.Context, store *Store, cfg TrackerConfig) (*Tracker, error) {
	salt, err := LoadSalt(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("analytics: %w", err)
	}
	window := cfg.RepeatWindow
	if window == 0 {
		window = 30 * time.Minute
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{
		store:    store,
		salt:     salt,
		siteHost: cfg.SiteHost,
		repeats:  newRepeatFilter(window),
		log:      log,
		now:      time.Now,
	}, nil
}

// Store returns the underlying view store.
func (t *Tracker) Store() *Store {
	return t.store
}

// Record stores h unless the visitor opted out or already read the post
// within the repeat window. Crawlers go to the bot table.
func (t *Tracker) Record(ctx context.Context, h Hit) error {
	if h.DNT || h.PostID == "" {
		return nil
	}
	ts := t.now().UTC()
	ipHash := HashIP(t.salt, h.IP)

	if IsBot(h.UserAgent) {
		return t.store.SaveBotView(ctx, &BotView{
			PostID:    h.PostID,
			BotName:   BotName(h.UserAgent),
			IPHash:    ipHash,
			UserAgent: h.UserAgent,
			Timestamp: ts,
		})
	}

	visitor := VisitorID(t.salt, h.IP, h.UserAgent)
	if !t.repeats.first(visitor + "|" + h.PostID) {
		t.log.Debug("repeat view skipped", "post", h.PostID)
		return nil
	}

	browser, os, device := ParseUserAgent(h.UserAgent)
	return t.store.SaveView(ctx, &View{
		PostID:    h.PostID,
		Slug:      h.Slug,
		VisitorID: visitor,
		IPHash:    ipHash,
		Browser:   browser,
		OS:        os,
		Device:    device,
		Referrer:  CleanReferrer(h.Referrer, t.siteHost),
		Timestamp: ts,
	})
}

// RecordAsync records h in the background. Errors are logged. Hits arriving
// after Close are dropped.
func (t *Tracker) RecordAsync(h Hit) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.pending.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := t.Record(ctx, h); err != nil {
			t.log.Warn("record view", "post", h.PostID, "error", err)
		}
	}()
}

// Close waits for pending RecordAsync writes and stops background work.
// The store stays open.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()

	t.pending.Wait()
	t.repeats.stop()
}
