package collector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/sifter/internal/core/domain"
	"github.com/vietddude/sifter/internal/infra/automation"
	"github.com/vietddude/sifter/internal/infra/store"
	"github.com/vietddude/sifter/internal/scan/metrics"
)

// Config holds collector pagination settings.
type Config struct {
	PageFrom        int
	PageTo          int
	CheckpointEvery int
}

// Collector paginates the listing and builds the deduplicated work list,
// checkpointing the running list every few pages.
type Collector struct {
	cfg     Config
	fetcher automation.PageFetcher
	store   store.Store
	log     *slog.Logger
}

// New creates a collector.
func New(cfg Config, fetcher automation.PageFetcher, st store.Store) *Collector {
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = 5
	}
	return &Collector{
		cfg:     cfg,
		fetcher: fetcher,
		store:   st,
		log:     slog.Default(),
	}
}

// Collect walks pages [PageFrom, PageTo], accumulating identifiers in order.
// An empty page stops pagination early. A single page's fetch failure is
// logged and skipped; it never touches the escalation error budget.
func (c *Collector) Collect(ctx context.Context, runID string) ([]string, error) {
	seen := make(map[string]struct{})
	var items []string
	fetchedPages := 0

	for page := c.cfg.PageFrom; page <= c.cfg.PageTo; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pageItems, err := c.fetcher.FetchPage(ctx, page)
		if err != nil {
			metrics.PagesFetched.WithLabelValues("error").Inc()
			c.log.Warn("page fetch failed, skipping", "run", runID, "page", page, "error", err)
			continue
		}
		if len(pageItems) == 0 {
			metrics.PagesFetched.WithLabelValues("empty").Inc()
			c.log.Info("empty page, stopping pagination", "run", runID, "page", page)
			break
		}
		metrics.PagesFetched.WithLabelValues("ok").Inc()

		for _, it := range pageItems {
			if _, ok := seen[it]; ok {
				continue
			}
			seen[it] = struct{}{}
			items = append(items, it)
		}

		fetchedPages++
		if fetchedPages%c.cfg.CheckpointEvery == 0 {
			if err := c.checkpoint(runID, items); err != nil {
				return nil, err
			}
		}
	}

	if err := c.checkpoint(runID, items); err != nil {
		return nil, err
	}

	c.log.Info("work list collected", "run", runID, "items", len(items), "pages", fetchedPages)
	return items, nil
}

func (c *Collector) checkpoint(runID string, items []string) error {
	name := domain.QueueCheckpointName(runID)
	if _, err := c.store.WriteJSON(name, domain.WorkList{RunID: runID, Items: items}); err != nil {
		return fmt.Errorf("failed to checkpoint work list: %w", err)
	}
	return nil
}
