package rate

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// WindowStore is the fixed-window counter backend.
type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Window is one velocity bound: at most Max events per Span.
type Window struct {
	Span time.Duration
	Max  int
}

// Limiter guards the unlimited tiers against scripted swipe bursts.
// Capped tiers are already bounded by their daily quota and skip this
// check entirely.
type Limiter struct {
	store   WindowStore
	windows []Window
}

func NewLimiter(store WindowStore, windows ...Window) *Limiter {
	kept := make([]Window, 0, len(windows))
	for _, w := range windows {
		if w.Span > 0 && w.Max > 0 {
			kept = append(kept, w)
		}
	}
	return &Limiter{store: store, windows: kept}
}

// AllowSwipe consumes one slot in every window and reports whether the
// action may proceed; when throttled it returns the seconds to wait.
func (l *Limiter) AllowSwipe(ctx context.Context, userID string) (bool, int64, error) {
	if strings.TrimSpace(userID) == "" {
		return false, 0, fmt.Errorf("user id is required")
	}
	if l.store == nil || len(l.windows) == 0 {
		return true, 0, nil
	}

	var retryAfter int64
	for _, w := range l.windows {
		count, ttl, err := l.store.IncrementWindow(ctx, windowKey(userID, w.Span), w.Span)
		if err != nil {
			return false, 0, fmt.Errorf("apply swipe window: %w", err)
		}
		if count > int64(w.Max) {
			if sec := ceilSeconds(ttl); sec > retryAfter {
				retryAfter = sec
			}
		}
	}

	if retryAfter > 0 {
		return false, retryAfter, nil
	}
	return true, 0, nil
}

func windowKey(userID string, span time.Duration) string {
	return fmt.Sprintf("rate:swipes:%s:%d", userID, int64(span.Seconds()))
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 1
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}
