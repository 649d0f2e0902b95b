package sources

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
	"golang.org/x/sync/errgroup"
)

// Collection is the joined result of fetching every registered channel.
type Collection struct {
	Snapshots map[string]model.ChannelSnapshot
	// Failed holds the fetch error of each channel that fell back to an
	// empty snapshot.
	Failed map[string]error
}

// Collector fetches all channels of a Registry concurrently.
type Collector struct {
	registry *Registry
	limit    int
	logger   *slog.Logger
}

// NewCollector creates a collector running at most limit fetches at once.
// A limit below 1 means no limit.
func NewCollector(registry *Registry, limit int, logger *slog.Logger) *Collector {
	return &Collector{registry: registry, limit: limit, logger: logger}
}

// Collect fetches every channel and waits for all of them. A failed
// channel does not cancel the others; it is recorded in Failed and
// replaced by an empty Missing snapshot.
func (c *Collector) Collect(ctx context.Context) Collection {
	channels := c.registry.Channels()
	out := Collection{
		Snapshots: make(map[string]model.ChannelSnapshot, len(channels)),
		Failed:    make(map[string]error),
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	if c.limit > 0 {
		g.SetLimit(c.limit)
	}

	for _, id := range channels {
		g.Go(func() error {
			snap, err := c.fetch(ctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.logger.Warn("channel fetch failed", "channel", id, "error", err)
				out.Failed[id] = err
				out.Snapshots[id] = model.MissingSnapshot(id)
				return nil
			}
			out.Snapshots[id] = snap
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (c *Collector) fetch(ctx context.Context, id string) (model.ChannelSnapshot, error) {
	src, err := c.registry.Get(id)
	if err != nil {
		return model.ChannelSnapshot{}, err
	}
	snap, err := src.FetchChannelSnapshot(ctx, id)
	if err != nil {
		return model.ChannelSnapshot{}, err
	}
	snap.ChannelID = id
	return snap, nil
}
