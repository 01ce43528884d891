// Package presence consumes the dashboard's online-users channel. The
// channel's real wire protocol lives behind the backend; the client only
// sees a per-channel count and polls for it.
package presence

import (
	"context"
	"time"

	"github.com/mbelkin/authfront/internal/client/api"
	"github.com/mbelkin/authfront/internal/logging"
)

type countPayload struct {
	Channel string `json:"channel"`
	Count   int    `json:"count"`
}

// Watcher polls a presence channel and reports count changes through a
// callback. It never retries faster than its interval and stops when its
// context is cancelled; a poll failure keeps the last known count.
type Watcher struct {
	api      *api.Client
	channel  string
	interval time.Duration
	log      logging.Logger
	onCount  func(int)
}

func NewWatcher(c *api.Client, channel string, interval time.Duration, log logging.Logger, onCount func(int)) *Watcher {
	if log == nil {
		log = logging.NewNop()
	}
	return &Watcher{api: c, channel: channel, interval: interval, log: log, onCount: onCount}
}

// Run polls until ctx is cancelled. Blocking; run it in its own goroutine.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	last := -1
	for {
		select {
		case <-ticker.C:
			pollCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			count, err := w.poll(pollCtx)
			cancel()

			if err != nil {
				w.log.Debug(ctx, "presence poll failed", "channel", w.channel, "error", err)
				continue
			}
			if count != last {
				last = count
				w.onCount(count)
			}

		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) poll(ctx context.Context) (int, error) {
	var payload countPayload
	if _, err := w.api.Get(ctx, "/presence/"+w.channel, &payload); err != nil {
		return 0, err
	}
	return payload.Count, nil
}
