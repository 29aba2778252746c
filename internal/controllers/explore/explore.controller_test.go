package exploreController

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"waxworks/internal/events"
	"waxworks/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExploreRepo struct {
	autocompleteCalls   int
	autocompleteQueries []string
	autocompleteResults []types.AutocompleteResult
	autocompleteErr     error

	exploreRow   map[string]any
	exploreFound bool

	expandRows  []map[string]any
	expandTotal int64

	trendPoints []types.TrendPoint
}

func (s *stubExploreRepo) Autocomplete(
	_ context.Context,
	_ types.ExploreType,
	query string,
	_ int,
) ([]types.AutocompleteResult, error) {
	s.autocompleteCalls++
	s.autocompleteQueries = append(s.autocompleteQueries, query)
	if s.autocompleteErr != nil {
		return nil, s.autocompleteErr
	}
	return s.autocompleteResults, nil
}

func (s *stubExploreRepo) Explore(
	_ context.Context,
	_ types.ExploreType,
	_ string,
) (map[string]any, bool, error) {
	return s.exploreRow, s.exploreFound, nil
}

func (s *stubExploreRepo) Expand(
	_ context.Context,
	_ types.ExploreType,
	_, _ string,
	_, _ int,
) ([]map[string]any, error) {
	return s.expandRows, nil
}

func (s *stubExploreRepo) ExpandCount(
	_ context.Context,
	_ types.ExploreType,
	_, _ string,
) (int64, error) {
	return s.expandTotal, nil
}

func (s *stubExploreRepo) ValidCategories(kind types.ExploreType) []string {
	if kind == types.ExploreArtist {
		return []string{"releases", "labels", "aliases"}
	}
	return []string{"releases"}
}

func (s *stubExploreRepo) Details(
	_ context.Context,
	_ types.ExploreType,
	_ string,
) (map[string]any, bool, error) {
	return s.exploreRow, s.exploreFound, nil
}

func (s *stubExploreRepo) Trends(
	_ context.Context,
	_ types.ExploreType,
	_ string,
) ([]types.TrendPoint, error) {
	return s.trendPoints, nil
}

func newTestController(repo *stubExploreRepo) *ExploreController {
	return New(repo, nil).(*ExploreController)
}

func TestAutocomplete_CachesByNormalizedKey(t *testing.T) {
	repo := &stubExploreRepo{
		autocompleteResults: []types.AutocompleteResult{{ID: "1", Name: "Radiohead", Score: 2.5}},
	}
	controller := newTestController(repo)
	ctx := context.Background()

	first, err := controller.Autocomplete(ctx, types.ExploreArtist, "  Radio  ", 10)
	require.NoError(t, err)
	require.Len(t, first.Results, 1)
	assert.Equal(t, 1, repo.autocompleteCalls)
	// The repository sees the raw query; only the cache key is normalized.
	assert.Equal(t, "  Radio  ", repo.autocompleteQueries[0])

	second, err := controller.Autocomplete(ctx, types.ExploreArtist, "radio", 10)
	require.NoError(t, err)
	assert.Equal(t, first.Results, second.Results)
	assert.Equal(t, 1, repo.autocompleteCalls, "normalized repeat should be served from cache")

	_, err = controller.Autocomplete(ctx, types.ExploreArtist, "radio", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.autocompleteCalls, "limit is part of the cache key")

	_, err = controller.Autocomplete(ctx, types.ExploreLabel, "radio", 10)
	require.NoError(t, err)
	assert.Equal(t, 3, repo.autocompleteCalls, "type is part of the cache key")
}

func TestAutocomplete_ErrorsAreNotCached(t *testing.T) {
	repo := &stubExploreRepo{autocompleteErr: errors.New("graph unavailable")}
	controller := newTestController(repo)
	ctx := context.Background()

	_, err := controller.Autocomplete(ctx, types.ExploreArtist, "radio", 10)
	require.Error(t, err)
	_, err = controller.Autocomplete(ctx, types.ExploreArtist, "radio", 10)
	require.Error(t, err)

	assert.Equal(t, 2, repo.autocompleteCalls)
	assert.Equal(t, 0, controller.cache.len())
}

func TestInvalidateCache_DropsMatchingEntries(t *testing.T) {
	repo := &stubExploreRepo{
		autocompleteResults: []types.AutocompleteResult{{ID: "1", Name: "x", Score: 1}},
	}
	controller := newTestController(repo)
	ctx := context.Background()

	_, err := controller.Autocomplete(ctx, types.ExploreArtist, "radiohead", 10)
	require.NoError(t, err)
	_, err = controller.Autocomplete(ctx, types.ExploreArtist, "radium", 10)
	require.NoError(t, err)
	_, err = controller.Autocomplete(ctx, types.ExploreLabel, "rough trade", 5)
	require.NoError(t, err)
	require.Equal(t, 3, controller.cache.len())

	dropped := controller.InvalidateCache("autocomplete:artist:*")
	assert.Equal(t, 2, dropped)
	assert.Equal(t, 1, controller.cache.len())

	// Artist entries must be refetched, the label entry is still cached.
	_, err = controller.Autocomplete(ctx, types.ExploreArtist, "radiohead", 10)
	require.NoError(t, err)
	assert.Equal(t, 4, repo.autocompleteCalls)

	_, err = controller.Autocomplete(ctx, types.ExploreLabel, "rough trade", 5)
	require.NoError(t, err)
	assert.Equal(t, 4, repo.autocompleteCalls)
}

func TestInvalidateCache_EmptyPatternDropsNothing(t *testing.T) {
	repo := &stubExploreRepo{
		autocompleteResults: []types.AutocompleteResult{{ID: "1", Name: "x", Score: 1}},
	}
	controller := newTestController(repo)

	_, err := controller.Autocomplete(context.Background(), types.ExploreArtist, "radio", 10)
	require.NoError(t, err)

	assert.Equal(t, 0, controller.InvalidateCache(""))
	assert.Equal(t, 1, controller.cache.len())
}

func TestOnCacheEvent_FiltersByType(t *testing.T) {
	repo := &stubExploreRepo{
		autocompleteResults: []types.AutocompleteResult{{ID: "1", Name: "x", Score: 1}},
	}
	controller := newTestController(repo)

	_, err := controller.Autocomplete(context.Background(), types.ExploreArtist, "radio", 10)
	require.NoError(t, err)

	require.NoError(t, controller.onCacheEvent(events.Event{
		Type: events.SYNC_STARTED,
		Data: map[string]any{"pattern": "*"},
	}))
	assert.Equal(t, 1, controller.cache.len(), "sync events must not touch the cache")

	require.NoError(t, controller.onCacheEvent(events.Event{
		Type: events.CACHE_INVALIDATE,
		Data: map[string]any{"pattern": "autocomplete:*"},
	}))
	assert.Equal(t, 0, controller.cache.len())
}

func TestOnCacheEvent_MissingPatternIsNoop(t *testing.T) {
	repo := &stubExploreRepo{
		autocompleteResults: []types.AutocompleteResult{{ID: "1", Name: "x", Score: 1}},
	}
	controller := newTestController(repo)

	_, err := controller.Autocomplete(context.Background(), types.ExploreArtist, "radio", 10)
	require.NoError(t, err)

	require.NoError(t, controller.onCacheEvent(events.Event{
		Type: events.CACHE_INVALIDATE,
		Data: map[string]any{},
	}))
	assert.Equal(t, 1, controller.cache.len())
}

func cacheKeyFor(i int) cacheKey {
	return cacheKey{query: fmt.Sprintf("query-%03d", i), kind: types.ExploreArtist, limit: 10}
}

func TestAutocompleteCache_EvictsOldestQuarter(t *testing.T) {
	cache := newAutocompleteCache(8)
	for i := 0; i < 8; i++ {
		cache.put(cacheKeyFor(i), []types.AutocompleteResult{{ID: fmt.Sprint(i)}})
	}
	require.Equal(t, 8, cache.len())

	cache.put(cacheKeyFor(8), []types.AutocompleteResult{{ID: "8"}})

	// 8/4 = 2 oldest entries dropped, then the new one inserted.
	assert.Equal(t, 7, cache.len())
	for i, wantHit := range map[int]bool{0: false, 1: false, 2: true, 7: true, 8: true} {
		_, ok := cache.get(cacheKeyFor(i))
		assert.Equal(t, wantHit, ok, "entry %d", i)
	}
}

func TestAutocompleteCache_OverwriteKeepsInsertionOrder(t *testing.T) {
	cache := newAutocompleteCache(4)
	for i := 0; i < 4; i++ {
		cache.put(cacheKeyFor(i), []types.AutocompleteResult{{ID: fmt.Sprint(i)}})
	}

	cache.put(cacheKeyFor(0), []types.AutocompleteResult{{ID: "updated"}})
	require.Equal(t, 4, cache.len(), "overwriting must not evict")

	results, ok := cache.get(cacheKeyFor(0))
	require.True(t, ok)
	assert.Equal(t, "updated", results[0].ID)

	// Entry 0 keeps its original position, so it is still the first to go.
	cache.put(cacheKeyFor(4), nil)
	_, ok = cache.get(cacheKeyFor(0))
	assert.False(t, ok)
}

func TestAutocompleteCache_ReadsDoNotRefreshPosition(t *testing.T) {
	cache := newAutocompleteCache(4)
	for i := 0; i < 4; i++ {
		cache.put(cacheKeyFor(i), nil)
	}

	_, ok := cache.get(cacheKeyFor(0))
	require.True(t, ok)

	cache.put(cacheKeyFor(4), nil)
	_, ok = cache.get(cacheKeyFor(0))
	assert.False(t, ok, "a read must not save the oldest entry from eviction")
	_, ok = cache.get(cacheKeyFor(1))
	assert.True(t, ok)
}

func TestGlobToRegexp(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		match   bool
	}{
		{"autocomplete:artist:*", "autocomplete:artist:radiohead:10", true},
		{"autocomplete:artist:*", "autocomplete:label:radiohead:10", false},
		{"autocomplete:*:radio*", "autocomplete:genre:radio:20", true},
		{"autocomplete:artist:radio:1?", "autocomplete:artist:radio:10", true},
		{"autocomplete:artist:radio:1?", "autocomplete:artist:radio:100", false},
		// Anchored: a bare substring is not a match.
		{"artist", "autocomplete:artist:radio:10", false},
		{"*", "anything at all", true},
		// Regexp metacharacters in the pattern stay literal.
		{"a+b", "a+b", true},
		{"a+b", "aab", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.input, func(t *testing.T) {
			matcher, err := globToRegexp(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.match, matcher.MatchString(tt.input))
		})
	}
}

func TestExplore_AssemblesCategories(t *testing.T) {
	repo := &stubExploreRepo{
		exploreRow: map[string]any{
			"id":            "artist-42",
			"name":          "Radiohead",
			"release_count": int64(120),
			"label_count":   int64(4),
			"alias_count":   float64(3),
		},
		exploreFound: true,
	}
	controller := newTestController(repo)

	response, found, err := controller.Explore(context.Background(), types.ExploreArtist, "Radiohead")
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, "artist-42", response.Center.ID)
	assert.Equal(t, "Radiohead", response.Center.Name)
	assert.Equal(t, types.ExploreArtist, response.Center.Type)

	require.Len(t, response.Categories, 3)
	assert.Equal(t, types.ExploreCategory{
		ID: "cat-releases", Name: "Releases", Category: "releases", Count: 120,
	}, response.Categories[0])
	assert.Equal(t, types.ExploreCategory{
		ID: "cat-labels", Name: "Labels", Category: "labels", Count: 4,
	}, response.Categories[1])
	assert.Equal(t, types.ExploreCategory{
		ID: "cat-aliases", Name: "Aliases & Members", Category: "aliases", Count: 3,
	}, response.Categories[2])
}

func TestExplore_GenreCategoryOrder(t *testing.T) {
	repo := &stubExploreRepo{
		exploreRow:   map[string]any{"id": "Jazz", "name": "Jazz"},
		exploreFound: true,
	}
	controller := newTestController(repo)

	response, found, err := controller.Explore(context.Background(), types.ExploreGenre, "Jazz")
	require.NoError(t, err)
	require.True(t, found)

	got := make([]string, 0, len(response.Categories))
	for _, category := range response.Categories {
		got = append(got, category.Category)
		assert.Zero(t, category.Count, "missing counts default to zero")
	}
	assert.Equal(t, []string{"releases", "artists", "labels", "styles"}, got)
}

func TestExplore_NotFoundPassesThrough(t *testing.T) {
	controller := newTestController(&stubExploreRepo{exploreFound: false})

	response, found, err := controller.Explore(context.Background(), types.ExploreArtist, "Nobody")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, response)
}

func TestExpand_ComputesHasMore(t *testing.T) {
	repo := &stubExploreRepo{
		expandRows: []map[string]any{
			{"id": "r1", "name": "OK Computer", "type": "release"},
			{"id": "r2", "name": "Kid A", "type": "release"},
		},
		expandTotal: 5,
	}
	controller := newTestController(repo)

	response, err := controller.Expand(context.Background(), types.ExploreArtist, "releases", "Radiohead", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), response.Total)
	assert.True(t, response.HasMore)

	response, err = controller.Expand(context.Background(), types.ExploreArtist, "releases", "Radiohead", 2, 3)
	require.NoError(t, err)
	assert.False(t, response.HasMore, "offset 3 + 2 children reaches total 5")
}

func TestExpand_NilRowsBecomeEmptySlice(t *testing.T) {
	controller := newTestController(&stubExploreRepo{expandRows: nil, expandTotal: 0})

	response, err := controller.Expand(context.Background(), types.ExploreArtist, "releases", "Radiohead", 10, 0)
	require.NoError(t, err)
	require.NotNil(t, response.Children)
	assert.Empty(t, response.Children)
	assert.False(t, response.HasMore)
}

func TestTrends_NilPointsBecomeEmptySeries(t *testing.T) {
	controller := newTestController(&stubExploreRepo{trendPoints: nil})

	response, err := controller.Trends(context.Background(), types.ExploreGenre, "Jazz")
	require.NoError(t, err)
	assert.Equal(t, "Jazz", response.Name)
	assert.Equal(t, types.ExploreGenre, response.Type)
	require.NotNil(t, response.Data)
	assert.Empty(t, response.Data)
}

func TestCountOf(t *testing.T) {
	row := map[string]any{
		"as_int64":   int64(7),
		"as_int":     3,
		"as_float64": float64(9),
		"as_string":  "12",
	}

	assert.Equal(t, int64(7), countOf(row, "as_int64"))
	assert.Equal(t, int64(3), countOf(row, "as_int"))
	assert.Equal(t, int64(9), countOf(row, "as_float64"))
	assert.Equal(t, int64(0), countOf(row, "as_string"))
	assert.Equal(t, int64(0), countOf(row, "missing"))
}
