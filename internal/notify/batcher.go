// Package notify aggregates "new content" events into batched push
// notifications. A burst of N posts produces one notification carrying all N,
// while a background sweep bounds how long a lone event can wait before
// clients learn about it.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/devlinkhq/backend/internal/models"
	"go.uber.org/zap"
)

// Default threshold policy: flush after this many events, or once this much
// time has passed since the last flush, whichever comes first.
const (
	DefaultCountThreshold = 10
	DefaultTimeThreshold  = 5 * time.Minute
	DefaultSweepInterval  = 30 * time.Second

	flushTimeout = 10 * time.Second
)

// Source supplies the content that goes into a flushed batch: the items
// created since the flush marker, newest first, plus the total count.
type Source interface {
	RecentSince(ctx context.Context, since time.Time, limit int) ([]models.Post, int64, error)
}

// Publisher delivers one aggregated batch on a named channel. Failures must
// be self-contained; the batcher logs and moves on.
type Publisher interface {
	Publish(ctx context.Context, channel string, batch *Batch) error
}

// Batch is the payload of one aggregated push event.
type Batch struct {
	Posts      []models.Post `json:"posts"`
	TotalCount int64         `json:"totalCount"`
}

// Config tunes the flush policy.
type Config struct {
	CountThreshold int
	TimeThreshold  time.Duration
	SweepInterval  time.Duration
}

func (c Config) withDefaults() Config {
	if c.CountThreshold <= 0 {
		c.CountThreshold = DefaultCountThreshold
	}
	if c.TimeThreshold <= 0 {
		c.TimeThreshold = DefaultTimeThreshold
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	return c
}

// channelState is the per-channel accumulation record. Its lock serializes
// every event and flush decision on the channel, so two concurrent events can
// never both observe "threshold not reached" and neither flush.
type channelState struct {
	mu        sync.Mutex
	count     int
	lastFlush time.Time
	marker    time.Time
}

// Batcher converts discrete content-creation events into infrequent
// aggregated pushes using a count-or-time threshold per channel.
type Batcher struct {
	source    Source
	publisher Publisher
	cfg       Config
	logger    *zap.Logger

	mu       sync.Mutex
	channels map[string]*channelState

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a Batcher and starts its background sweep.
func New(source Source, publisher Publisher, cfg Config, logger *zap.Logger) *Batcher {
	b := &Batcher{
		source:    source,
		publisher: publisher,
		cfg:       cfg.withDefaults(),
		logger:    logger.Named("notify"),
		channels:  make(map[string]*channelState),
		done:      make(chan struct{}),
	}

	b.wg.Add(1)
	go b.sweepLoop()

	return b
}

// Close stops the background sweep. Pending events are not flushed.
func (b *Batcher) Close() {
	close(b.done)
	b.wg.Wait()
}

// RecordEvent registers one new content event on channel and flushes when the
// count or time threshold is met. It never returns an error: a failed flush
// costs a notification, not the write that produced the event.
func (b *Batcher) RecordEvent(ctx context.Context, channel string) {
	st := b.state(channel)

	st.mu.Lock()
	defer st.mu.Unlock()

	st.count++
	now := time.Now()
	if st.count >= b.cfg.CountThreshold || now.Sub(st.lastFlush) >= b.cfg.TimeThreshold {
		b.flushLocked(ctx, channel, st)
	}
}

func (b *Batcher) state(channel string) *channelState {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.channels[channel]
	if !ok {
		now := time.Now()
		st = &channelState{lastFlush: now, marker: now}
		b.channels[channel] = st
	}
	return st
}

func (b *Batcher) sweepLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.sweep()
		}
	}
}

// sweep flushes channels whose oldest unflushed event has waited past the
// time threshold. This is what gets a single post after a quiet period
// delivered without further traffic.
func (b *Batcher) sweep() {
	b.mu.Lock()
	channels := make(map[string]*channelState, len(b.channels))
	for name, st := range b.channels {
		channels[name] = st
	}
	b.mu.Unlock()

	for name, st := range channels {
		st.mu.Lock()
		if st.count > 0 && time.Since(st.lastFlush) >= b.cfg.TimeThreshold {
			ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			b.flushLocked(ctx, name, st)
			cancel()
		}
		st.mu.Unlock()
	}
}

// flushLocked fetches the batch since the marker and emits one push event.
// Callers hold st.mu. On fetch failure the accumulation state is kept so the
// next event or sweep retries; on an empty fetch the state resets but nothing
// is published.
func (b *Batcher) flushLocked(ctx context.Context, channel string, st *channelState) {
	posts, total, err := b.source.RecentSince(ctx, st.marker, b.cfg.CountThreshold)
	if err != nil {
		b.logger.Warn("batch fetch failed, keeping accumulated events",
			zap.String("channel", channel), zap.Int("pending", st.count), zap.Error(err))
		return
	}

	now := time.Now()
	st.count = 0
	st.lastFlush = now
	st.marker = now

	if len(posts) == 0 {
		// The marker advanced concurrently; never push an empty batch.
		return
	}

	batch := &Batch{Posts: posts, TotalCount: total}
	if err := b.publisher.Publish(ctx, channel, batch); err != nil {
		b.logger.Warn("batch publish failed, notification dropped",
			zap.String("channel", channel), zap.Int64("totalCount", total), zap.Error(err))
		return
	}

	b.logger.Info("published aggregated batch",
		zap.String("channel", channel),
		zap.Int("items", len(posts)),
		zap.Int64("totalCount", total))
}
