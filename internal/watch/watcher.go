// Package watch triggers scans when tracked wallets show on-chain activity.
package watch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"solana-copurchase/internal/solana"
)

// DefaultCooldown is the minimum spacing between triggered scans.
const DefaultCooldown = 5 * time.Minute

// ErrNoSubscriptions is returned when no wallet could be subscribed.
var ErrNoSubscriptions = errors.New("no wallet subscriptions established")

// Watcher subscribes to logs mentioning each wallet and calls onActivity at
// most once per cooldown. A trigger that is still running suppresses new ones.
type Watcher struct {
	ws         solana.WSClient
	cooldown   time.Duration
	onActivity func(ctx context.Context)
	logger     zerolog.Logger
	now        func() time.Time

	mu      sync.Mutex
	last    time.Time
	running atomic.Bool
	fired   atomic.Int64
}

// New creates a Watcher. A non-positive cooldown uses DefaultCooldown.
func New(ws solana.WSClient, cooldown time.Duration, onActivity func(ctx context.Context), logger zerolog.Logger) *Watcher {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Watcher{
		ws:         ws,
		cooldown:   cooldown,
		onActivity: onActivity,
		logger:     logger,
		now:        time.Now,
	}
}

// Triggered returns how many times onActivity has been started.
func (w *Watcher) Triggered() int64 {
	return w.fired.Load()
}

// Run subscribes to every wallet and processes notifications until ctx is
// cancelled or every subscription channel closes. Wallets that fail to
// subscribe are skipped.
func (w *Watcher) Run(ctx context.Context, wallets []string) error {
	var channels []<-chan solana.LogNotification
	for _, wallet := range wallets {
		ch, err := w.ws.SubscribeLogs(ctx, solana.LogsFilter{Mentions: []string{wallet}})
		if err != nil {
			w.logger.Warn().Err(err).Str("wallet", wallet).Msg("subscribe failed")
			continue
		}
		channels = append(channels, ch)
		w.logger.Debug().Str("wallet", wallet).Msg("subscribed to wallet logs")
	}
	if len(channels) == 0 {
		return ErrNoSubscriptions
	}
	w.logger.Info().Int("wallets", len(channels)).Dur("cooldown", w.cooldown).Msg("watching wallet activity")

	merged := make(chan solana.LogNotification, 256)
	var readers sync.WaitGroup
	for _, ch := range channels {
		readers.Add(1)
		go func(logsCh <-chan solana.LogNotification) {
			defer readers.Done()
			for n := range logsCh {
				select {
				case merged <- n:
				case <-ctx.Done():
					return
				}
			}
		}(ch)
	}
	go func() {
		readers.Wait()
		close(merged)
	}()

	var triggers sync.WaitGroup
	defer triggers.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-merged:
			if !ok {
				return nil
			}
			if n.Err != nil {
				continue // failed transactions move no tokens
			}
			w.maybeTrigger(ctx, n, &triggers)
		}
	}
}

func (w *Watcher) maybeTrigger(ctx context.Context, n solana.LogNotification, wg *sync.WaitGroup) {
	w.mu.Lock()
	now := w.now()
	if !w.last.IsZero() && now.Sub(w.last) < w.cooldown {
		w.mu.Unlock()
		return
	}
	if !w.running.CompareAndSwap(false, true) {
		w.mu.Unlock()
		return
	}
	w.last = now
	w.mu.Unlock()

	w.fired.Add(1)
	w.logger.Info().Str("signature", n.Signature).Int64("slot", n.Slot).Msg("wallet activity, triggering scan")

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer w.running.Store(false)
		w.onActivity(ctx)
	}()
}
