package exploreController

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"waxworks/internal/events"
	"waxworks/internal/repositories"
	"waxworks/internal/types"
	"waxworks/pkg/logger"

	"golang.org/x/sync/errgroup"
)

type AutocompleteResponse struct {
	Results []types.AutocompleteResult `json:"results"`
}

type ExploreControllerInterface interface {
	Autocomplete(ctx context.Context, kind types.ExploreType, query string, limit int) (*AutocompleteResponse, error)
	Explore(ctx context.Context, kind types.ExploreType, name string) (*types.ExploreResponse, bool, error)
	ValidCategories(kind types.ExploreType) []string
	Expand(ctx context.Context, kind types.ExploreType, category, nodeID string, limit, offset int) (*types.ExpandResponse, error)
	Details(ctx context.Context, kind types.ExploreType, nodeID string) (map[string]any, bool, error)
	Trends(ctx context.Context, kind types.ExploreType, name string) (*types.TrendsResponse, error)
	InvalidateCache(pattern string) int
}

type ExploreController struct {
	exploreRepo repositories.ExploreRepository
	cache       *autocompleteCache
	log         logger.Logger
}

func New(exploreRepo repositories.ExploreRepository, eventBus *events.EventBus) ExploreControllerInterface {
	controller := &ExploreController{
		exploreRepo: exploreRepo,
		cache:       newAutocompleteCache(autocompleteCacheMax),
		log:         logger.New("exploreController"),
	}

	if eventBus != nil {
		if err := eventBus.Subscribe(events.CACHE_CHANNEL, controller.onCacheEvent); err != nil {
			controller.log.Warn("failed to subscribe to cache invalidations", "error", err)
		}
	}

	return controller
}

func (c *ExploreController) onCacheEvent(event events.Event) error {
	if event.Type != events.CACHE_INVALIDATE {
		return nil
	}
	pattern, _ := event.Data["pattern"].(string)
	dropped := c.InvalidateCache(pattern)
	if dropped > 0 {
		c.log.Info("autocomplete cache invalidated", "pattern", pattern, "dropped", dropped)
	}
	return nil
}

func (c *ExploreController) Autocomplete(
	ctx context.Context,
	kind types.ExploreType,
	query string,
	limit int,
) (*AutocompleteResponse, error) {
	key := cacheKey{query: strings.ToLower(strings.TrimSpace(query)), kind: kind, limit: limit}
	if results, ok := c.cache.get(key); ok {
		return &AutocompleteResponse{Results: results}, nil
	}

	results, err := c.exploreRepo.Autocomplete(ctx, kind, query, limit)
	if err != nil {
		return nil, err
	}

	c.cache.put(key, results)
	return &AutocompleteResponse{Results: results}, nil
}

func (c *ExploreController) Explore(
	ctx context.Context,
	kind types.ExploreType,
	name string,
) (*types.ExploreResponse, bool, error) {
	center, found, err := c.exploreRepo.Explore(ctx, kind, name)
	if err != nil || !found {
		return nil, found, err
	}

	id, _ := center["id"].(string)
	centerName, _ := center["name"].(string)
	return &types.ExploreResponse{
		Center:     types.ExploreCenter{ID: id, Name: centerName, Type: kind},
		Categories: buildCategories(kind, center),
	}, true, nil
}

func (c *ExploreController) ValidCategories(kind types.ExploreType) []string {
	return c.exploreRepo.ValidCategories(kind)
}

// Expand pages through one category of a node's neighbors, running the
// children query and the total count in parallel.
func (c *ExploreController) Expand(
	ctx context.Context,
	kind types.ExploreType,
	category, nodeID string,
	limit, offset int,
) (*types.ExpandResponse, error) {
	var children []map[string]any
	var total int64

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		rows, err := c.exploreRepo.Expand(groupCtx, kind, category, nodeID, limit, offset)
		if err != nil {
			return err
		}
		children = rows
		return nil
	})
	group.Go(func() error {
		count, err := c.exploreRepo.ExpandCount(groupCtx, kind, category, nodeID)
		if err != nil {
			return err
		}
		total = count
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	if children == nil {
		children = []map[string]any{}
	}
	return &types.ExpandResponse{
		Children: children,
		Total:    total,
		Offset:   offset,
		Limit:    limit,
		HasMore:  int64(offset+len(children)) < total,
	}, nil
}

func (c *ExploreController) Details(
	ctx context.Context,
	kind types.ExploreType,
	nodeID string,
) (map[string]any, bool, error) {
	return c.exploreRepo.Details(ctx, kind, nodeID)
}

func (c *ExploreController) Trends(
	ctx context.Context,
	kind types.ExploreType,
	name string,
) (*types.TrendsResponse, error) {
	points, err := c.exploreRepo.Trends(ctx, kind, name)
	if err != nil {
		return nil, err
	}
	if points == nil {
		points = []types.TrendPoint{}
	}
	return &types.TrendsResponse{Name: name, Type: kind, Data: points}, nil
}

// InvalidateCache drops cached autocomplete entries whose composed key
// matches the glob pattern. Returns the number of entries dropped.
func (c *ExploreController) InvalidateCache(pattern string) int {
	return c.cache.invalidate(pattern)
}

func buildCategories(kind types.ExploreType, center map[string]any) []types.ExploreCategory {
	category := func(category, name, countKey string) types.ExploreCategory {
		return types.ExploreCategory{
			ID:       "cat-" + category,
			Name:     name,
			Category: category,
			Count:    countOf(center, countKey),
		}
	}

	switch kind {
	case types.ExploreArtist:
		return []types.ExploreCategory{
			category("releases", "Releases", "release_count"),
			category("labels", "Labels", "label_count"),
			category("aliases", "Aliases & Members", "alias_count"),
		}
	case types.ExploreGenre:
		return []types.ExploreCategory{
			category("releases", "Releases", "release_count"),
			category("artists", "Artists", "artist_count"),
			category("labels", "Labels", "label_count"),
			category("styles", "Styles", "style_count"),
		}
	case types.ExploreLabel:
		return []types.ExploreCategory{
			category("releases", "Releases", "release_count"),
			category("artists", "Artists", "artist_count"),
			category("genres", "Genres", "genre_count"),
		}
	case types.ExploreStyle:
		return []types.ExploreCategory{
			category("releases", "Releases", "release_count"),
			category("artists", "Artists", "artist_count"),
			category("labels", "Labels", "label_count"),
			category("genres", "Genres", "genre_count"),
		}
	default:
		return []types.ExploreCategory{}
	}
}

func countOf(row map[string]any, key string) int64 {
	switch v := row[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

const (
	autocompleteCacheMax = 512
	// When the cache fills, the oldest quarter is dropped in one sweep so
	// inserts stay O(1) amortized.
	autocompleteEvictFraction = 4
)

type cacheKey struct {
	query string
	kind  types.ExploreType
	limit int
}

// autocompleteCache is a bounded FIFO map: entries keep their insertion
// position, and eviction removes the oldest entries first. Reads do not
// refresh position.
type autocompleteCache struct {
	mu      sync.Mutex
	max     int
	entries map[cacheKey][]types.AutocompleteResult
	order   []cacheKey
}

func newAutocompleteCache(max int) *autocompleteCache {
	return &autocompleteCache{
		max:     max,
		entries: make(map[cacheKey][]types.AutocompleteResult, max),
	}
}

func (c *autocompleteCache) get(key cacheKey) ([]types.AutocompleteResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	results, ok := c.entries[key]
	return results, ok
}

func (c *autocompleteCache) put(key cacheKey, results []types.AutocompleteResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		if len(c.entries) >= c.max {
			evict := c.max / autocompleteEvictFraction
			for i := 0; i < evict && len(c.order) > 0; i++ {
				delete(c.entries, c.order[0])
				c.order = c.order[1:]
			}
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = results
}

func (c *autocompleteCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// invalidate drops entries whose composed key string matches the glob
// pattern (* and ? wildcards, Redis style).
func (c *autocompleteCache) invalidate(pattern string) int {
	if pattern == "" {
		return 0
	}

	matcher, err := globToRegexp(pattern)
	if err != nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := 0
	kept := c.order[:0]
	for _, key := range c.order {
		composed := fmt.Sprintf("autocomplete:%s:%s:%d", key.kind, key.query, key.limit)
		if matcher.MatchString(composed) {
			delete(c.entries, key)
			dropped++
			continue
		}
		kept = append(kept, key)
	}
	c.order = kept
	return dropped
}

func globToRegexp(pattern string) (*regexp.Regexp, error) {
	quoted := regexp.QuoteMeta(pattern)
	quoted = strings.ReplaceAll(quoted, `\*`, `.*`)
	quoted = strings.ReplaceAll(quoted, `\?`, `.`)
	return regexp.Compile("^" + quoted + "$")
}
