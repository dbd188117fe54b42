package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"hacktown/internal/config"
	appLog "hacktown/internal/log"
	"hacktown/internal/source"
)

// Loader builds a fresh Dataset.
type Loader func(ctx context.Context) (*Dataset, error)

// Cache memoizes one Dataset for the lifetime of the process. Failed loads
// are not memoized. Invalidate drops the value so the next Get reloads.
type Cache struct {
	load Loader

	// loadMu serializes loads; mu guards the cached state only, so
	// Invalidate and LoadedAt never wait on a fetch.
	loadMu sync.Mutex

	mu       sync.Mutex
	ds       *Dataset
	loadedAt time.Time
	gen      uint64
}

func NewCache(load Loader) *Cache {
	return &Cache{load: load}
}

// Get returns the cached dataset, loading it on first use. Concurrent callers
// share a single load. The load is not cancelled with ctx, since other
// callers may be waiting on it; it is bounded by the fetcher's timeout.
func (c *Cache) Get(ctx context.Context) (*Dataset, error) {
	if ds, _ := c.current(); ds != nil {
		return ds, nil
	}
	if c.load == nil {
		return nil, errors.New("schedule cache has no loader")
	}

	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	ds, gen := c.current()
	if ds != nil {
		return ds, nil
	}

	ds, err := c.load(context.WithoutCancel(ctx))
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	// An Invalidate during the load means the result may already be stale.
	if c.gen == gen {
		c.ds = ds
		c.loadedAt = time.Now()
	}
	c.mu.Unlock()
	return ds, nil
}

func (c *Cache) current() (*Dataset, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ds, c.gen
}

// Invalidate forgets the cached dataset.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ds = nil
	c.loadedAt = time.Time{}
	c.gen++
}

// LoadedAt returns when the cached dataset was built, or the zero time.
func (c *Cache) LoadedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadedAt
}

// Pipeline is the standard fetch -> extract -> normalize chain.
type Pipeline struct {
	Fetcher    source.Fetcher
	URL        string
	Days       []string
	AllLabel   string
	Policy     TablePolicy
	Normalizer Normalizer
}

// NewPipeline wires a Pipeline from configuration.
func NewPipeline(cfg *config.Config, f source.Fetcher) Pipeline {
	policy := TablePolicyStrict
	if cfg.IgnoreExtraTables {
		policy = TablePolicyIgnoreExtra
	}
	return Pipeline{
		Fetcher:    f,
		URL:        cfg.SourceURL,
		Days:       cfg.Days,
		AllLabel:   cfg.AllLabel,
		Policy:     policy,
		Normalizer: Normalizer{DefaultStart: cfg.DefaultStart},
	}
}

// Load runs the pipeline once.
func (p Pipeline) Load(ctx context.Context) (*Dataset, error) {
	markup, err := p.Fetcher.Fetch(ctx, p.URL)
	if err != nil {
		return nil, err
	}

	rows, err := Extract(markup, p.Days, p.Policy)
	if err != nil {
		appLog.Error("schedule extract failed", err)
		return nil, err
	}

	ds := NewDataset(p.Normalizer.NormalizeAll(rows), p.Days, p.AllLabel)
	appLog.Info("schedule loaded", "events", ds.Len(), "days", len(ds.DistinctDays())-1)
	return ds, nil
}

// StartInvalidator invalidates cache on the given cron schedule (standard
// five fields). The returned stop function waits for a running job.
func StartInvalidator(spec string, cache *Cache) (stop func(), err error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		cache.Invalidate()
		appLog.Info("schedule cache invalidated", "trigger", "cron", "spec", spec)
	}); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	c.Start()
	return func() { <-c.Stop().Done() }, nil
}
