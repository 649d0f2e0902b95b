package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
)

// HistoryStore persists when each alert key last notified.
// GetAlertHistory returns nil, nil for a key that has never notified.
type HistoryStore interface {
	GetAlertHistory(ctx context.Context, key model.HistoryKey) (*model.AlertHistoryEntry, error)
	PutAlertHistory(ctx context.Context, key model.HistoryKey, entry model.AlertHistoryEntry) error
}

// HistorySwapper is implemented by stores that can replace an entry
// atomically. SwapAlertHistory writes next only if the stored entry still
// equals old (nil meaning absent) and reports whether it did.
type HistorySwapper interface {
	SwapAlertHistory(ctx context.Context, key model.HistoryKey, old *model.AlertHistoryEntry, next model.AlertHistoryEntry) (bool, error)
}

// KeyMode selects how alerts map onto history keys.
type KeyMode string

const (
	KeyByLevel     KeyMode = "level"     // one key per (dimension, level)
	KeyByDimension KeyMode = "dimension" // one key per dimension
)

// Windows maps a severity to its minimum interval between notifications.
type Windows map[model.Level]time.Duration

// DefaultWindows returns the standard cooldown windows.
func DefaultWindows() Windows {
	return Windows{
		model.LevelInfo:     24 * time.Hour,
		model.LevelWarning:  60 * time.Minute,
		model.LevelCritical: 15 * time.Minute,
		model.LevelExceeded: 0,
	}
}

const maxSwapAttempts = 3

// CooldownGate suppresses repeat notifications for the same alert key.
// It is safe for concurrent use.
type CooldownGate struct {
	store   HistoryStore
	windows Windows
	mode    KeyMode
	logger  *slog.Logger
	metrics *Metrics

	mu    sync.Mutex
	locks map[model.HistoryKey]*sync.Mutex
}

// NewCooldownGate creates a gate over store. A nil windows map uses
// DefaultWindows.
func NewCooldownGate(store HistoryStore, windows Windows, logger *slog.Logger, metrics *Metrics) *CooldownGate {
	if windows == nil {
		windows = DefaultWindows()
	}
	return &CooldownGate{
		store:   store,
		windows: windows,
		mode:    KeyByLevel,
		logger:  logger,
		metrics: metrics,
		locks:   make(map[model.HistoryKey]*sync.Mutex),
	}
}

// WithKeyMode sets the history key mode and returns the gate.
func (g *CooldownGate) WithKeyMode(mode KeyMode) *CooldownGate {
	g.mode = mode
	return g
}

// Key returns the history key an alert is tracked under.
func (g *CooldownGate) Key(a model.Alert) model.HistoryKey {
	if g.mode == KeyByDimension {
		return model.HistoryKey{Dimension: a.Dimension}
	}
	return model.HistoryKey{Dimension: a.Dimension, Level: a.Severity()}
}

// Allow returns the alerts permitted to notify at now, in input order,
// and records them in the history store. If the store fails the alert is
// allowed.
func (g *CooldownGate) Allow(ctx context.Context, alerts []model.Alert, now time.Time) []model.Alert {
	allowed := make([]model.Alert, 0, len(alerts))
	for _, a := range alerts {
		if g.allow(ctx, a, now) {
			allowed = append(allowed, a)
			continue
		}
		g.metrics.notification("suppressed")
		g.logger.Debug("alert in cooldown",
			"dimension", a.Dimension,
			"level", a.Severity(),
		)
	}
	return allowed
}

// Commit records alerts delivered at now and returns the ones recorded.
// The window is checked again under the key lock, so an alert another
// writer recorded in the meantime is left out. If the store fails the
// alert counts as recorded.
func (g *CooldownGate) Commit(ctx context.Context, alerts []model.Alert, now time.Time) []model.Alert {
	committed := make([]model.Alert, 0, len(alerts))
	for _, a := range alerts {
		if g.allow(ctx, a, now) {
			committed = append(committed, a)
			continue
		}
		g.logger.Debug("alert already recorded",
			"dimension", a.Dimension,
			"level", a.Severity(),
		)
	}
	return committed
}

// Peek returns the alerts Allow would permit at now without recording
// anything.
func (g *CooldownGate) Peek(ctx context.Context, alerts []model.Alert, now time.Time) []model.Alert {
	allowed := make([]model.Alert, 0, len(alerts))
	for _, a := range alerts {
		prev, err := g.store.GetAlertHistory(ctx, g.Key(a))
		if err != nil {
			g.degrade("get", g.Key(a), err)
			allowed = append(allowed, a)
			continue
		}
		if prev == nil || g.elapsed(*prev, a.Severity(), now) {
			allowed = append(allowed, a)
		}
	}
	return allowed
}

func (g *CooldownGate) allow(ctx context.Context, a model.Alert, now time.Time) bool {
	key := g.Key(a)
	lock := g.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	sev := a.Severity()
	for range maxSwapAttempts {
		prev, err := g.store.GetAlertHistory(ctx, key)
		if err != nil {
			g.degrade("get", key, err)
			return true
		}
		if prev != nil && !g.elapsed(*prev, sev, now) {
			return false
		}

		next := model.AlertHistoryEntry{LastSentAt: now, SentCount: 1, LastLevel: sev}
		if prev != nil {
			next.SentCount = prev.SentCount + 1
		}

		swapper, ok := g.store.(HistorySwapper)
		if !ok {
			if err := g.store.PutAlertHistory(ctx, key, next); err != nil {
				g.degrade("put", key, err)
			}
			return true
		}

		swapped, err := swapper.SwapAlertHistory(ctx, key, prev, next)
		if err != nil {
			g.degrade("swap", key, err)
			return true
		}
		if swapped {
			return true
		}
	}

	// Another writer kept recording this key, so it has just notified.
	g.logger.Warn("alert history contended", "key", key.String())
	return false
}

// elapsed reports whether the cooldown of prev has run out for an alert
// of severity sev. A more severe alert is held only to the shorter of the
// two windows, a less severe one to the longer.
func (g *CooldownGate) elapsed(prev model.AlertHistoryEntry, sev model.Level, now time.Time) bool {
	last := prev.LastLevel
	if last == "" {
		last = sev
	}
	window := g.windows[last]
	switch {
	case sev.Rank() > last.Rank():
		window = min(window, g.windows[sev])
	case sev.Rank() < last.Rank():
		window = max(window, g.windows[sev])
	}
	return now.Sub(prev.LastSentAt) >= window
}

func (g *CooldownGate) keyLock(key model.HistoryKey) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[key]
	if !ok {
		l = &sync.Mutex{}
		g.locks[key] = l
	}
	return l
}

func (g *CooldownGate) degrade(op string, key model.HistoryKey, err error) {
	g.metrics.historyError(op)
	g.logger.Error("alert history unavailable, notifying anyway",
		"error", &HistoryStoreError{Op: op, Key: key, Err: err},
	)
}
