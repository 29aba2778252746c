package repositories

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"waxworks/internal/graph"
	"waxworks/internal/types"
	"waxworks/pkg/logger"
)

// Graph model reference:
//   (Release)-[:BY]->(Artist)           (Release)-[:ON]->(Label)
//   (Release)-[:IS]->(Genre|Style)      (Release)-[:VERSION_OF]->(Master)
//   (Artist)-[:ALIAS_OF]->(Artist)      (Artist)-[:MEMBER_OF]->(Artist)
//   (Label)-[:SUBLABEL_OF]->(Label)     (Master)-[:BY]->(Artist)
// Master carries the canonical year; Genre and Style nodes are keyed by name.

type ExploreRepository interface {
	Autocomplete(ctx context.Context, kind types.ExploreType, query string, limit int) ([]types.AutocompleteResult, error)
	Explore(ctx context.Context, kind types.ExploreType, name string) (map[string]any, bool, error)
	Expand(ctx context.Context, kind types.ExploreType, category, name string, limit, offset int) ([]map[string]any, error)
	ExpandCount(ctx context.Context, kind types.ExploreType, category, name string) (int64, error)
	ValidCategories(kind types.ExploreType) []string
	Details(ctx context.Context, kind types.ExploreType, nodeID string) (map[string]any, bool, error)
	Trends(ctx context.Context, kind types.ExploreType, name string) ([]types.TrendPoint, error)
}

type exploreRepository struct {
	graph *graph.Graph
	log   logger.Logger
}

func NewExploreRepository(gr *graph.Graph) ExploreRepository {
	return &exploreRepository{
		graph: gr,
		log:   logger.New("exploreRepository"),
	}
}

// luceneSpecial matches every character the fulltext index treats as an
// operator, plus space.
var luceneSpecial = regexp.MustCompile(`[+\-&|!(){}\[\]^"~*?:\\/ ]`)

// BuildFulltextQuery turns free text into a Lucene query: each whitespace
// token is escaped, suffixed with * for prefix matching, and the tokens are
// AND-ed together.
func BuildFulltextQuery(query string) string {
	terms := strings.Fields(query)
	escaped := make([]string, 0, len(terms))
	for _, term := range terms {
		escaped = append(escaped, luceneSpecial.ReplaceAllString(term, `\$0`)+"*")
	}
	return strings.Join(escaped, " AND ")
}

const autocompleteFulltext = `
CALL db.index.fulltext.queryNodes($index, $query)
YIELD node, score
RETURN node.id AS id, node.name AS name, score
ORDER BY score DESC
LIMIT $limit`

const autocompletePrefix = `
MATCH (n:%s)
WHERE toLower(n.name) STARTS WITH toLower($query)
RETURN n.name AS id, n.name AS name, 1.0 AS score
ORDER BY n.name
LIMIT $limit`

func (r *exploreRepository) Autocomplete(
	ctx context.Context,
	kind types.ExploreType,
	query string,
	limit int,
) ([]types.AutocompleteResult, error) {
	log := r.log.Function("Autocomplete")

	var rows []map[string]any
	var err error
	switch kind {
	case types.ExploreArtist, types.ExploreLabel:
		index := "artist_name_fulltext"
		if kind == types.ExploreLabel {
			index = "label_name_fulltext"
		}
		rows, err = r.graph.ReadRows(ctx, autocompleteFulltext, map[string]any{
			"index": index,
			"query": BuildFulltextQuery(query),
			"limit": limit,
		})
	case types.ExploreGenre, types.ExploreStyle:
		label := "Genre"
		if kind == types.ExploreStyle {
			label = "Style"
		}
		rows, err = r.graph.ReadRows(ctx, fmt.Sprintf(autocompletePrefix, label), map[string]any{
			"query": query,
			"limit": limit,
		})
	default:
		return nil, fmt.Errorf("unsupported autocomplete type: %s", kind)
	}
	if err != nil {
		return nil, log.Err("autocomplete query failed", err, "type", kind, "query", query)
	}

	results := make([]types.AutocompleteResult, 0, len(rows))
	for _, row := range rows {
		id, _ := row["id"].(string)
		name, _ := row["name"].(string)
		score, _ := row["score"].(float64)
		results = append(results, types.AutocompleteResult{ID: id, Name: name, Score: score})
	}
	return results, nil
}

var exploreQueries = map[types.ExploreType]string{
	types.ExploreArtist: `
MATCH (a:Artist {name: $name})
OPTIONAL MATCH (r:Release)-[:BY]->(a)
WITH a, count(DISTINCT r) AS release_count
OPTIONAL MATCH (r2:Release)-[:BY]->(a), (r2)-[:ON]->(l:Label)
WITH a, release_count, count(DISTINCT l) AS label_count
OPTIONAL MATCH (a)-[:ALIAS_OF]->(alias:Artist)
WITH a, release_count, label_count, count(DISTINCT alias) AS alias_count
OPTIONAL MATCH (a)-[:MEMBER_OF]->(grp:Artist)
WITH a, release_count, label_count, alias_count, count(DISTINCT grp) AS group_count
OPTIONAL MATCH (m:Artist)-[:MEMBER_OF]->(a)
WITH a, release_count, label_count, alias_count, group_count, count(DISTINCT m) AS member_count
RETURN a.id AS id, a.name AS name,
       release_count, label_count, alias_count + group_count + member_count AS alias_count`,
	types.ExploreGenre: `
MATCH (g:Genre {name: $name})
OPTIONAL MATCH (r:Release)-[:IS]->(g)
WITH g, count(DISTINCT r) AS release_count
OPTIONAL MATCH (r2:Release)-[:IS]->(g), (r2)-[:BY]->(a:Artist)
WITH g, release_count, count(DISTINCT a) AS artist_count
OPTIONAL MATCH (r3:Release)-[:IS]->(g), (r3)-[:ON]->(l:Label)
WITH g, release_count, artist_count, count(DISTINCT l) AS label_count
OPTIONAL MATCH (r4:Release)-[:IS]->(g), (r4)-[:IS]->(s:Style)
WITH g, release_count, artist_count, label_count, count(DISTINCT s) AS style_count
RETURN g.name AS id, g.name AS name,
       release_count, artist_count, label_count, style_count`,
	types.ExploreLabel: `
MATCH (l:Label {name: $name})
OPTIONAL MATCH (r:Release)-[:ON]->(l)
WITH l, count(DISTINCT r) AS release_count
OPTIONAL MATCH (r2:Release)-[:ON]->(l), (r2)-[:BY]->(a:Artist)
WITH l, release_count, count(DISTINCT a) AS artist_count
OPTIONAL MATCH (r3:Release)-[:ON]->(l), (r3)-[:IS]->(g:Genre)
WITH l, release_count, artist_count, count(DISTINCT g) AS genre_count
RETURN l.id AS id, l.name AS name,
       release_count, artist_count, genre_count`,
	types.ExploreStyle: `
MATCH (s:Style {name: $name})
OPTIONAL MATCH (r:Release)-[:IS]->(s)
WITH s, count(DISTINCT r) AS release_count
OPTIONAL MATCH (r2:Release)-[:IS]->(s), (r2)-[:BY]->(a:Artist)
WITH s, release_count, count(DISTINCT a) AS artist_count
OPTIONAL MATCH (r3:Release)-[:IS]->(s), (r3)-[:ON]->(l:Label)
WITH s, release_count, artist_count, count(DISTINCT l) AS label_count
OPTIONAL MATCH (r4:Release)-[:IS]->(s), (r4)-[:IS]->(g:Genre)
WITH s, release_count, artist_count, label_count, count(DISTINCT g) AS genre_count
RETURN s.name AS id, s.name AS name,
       release_count, artist_count, label_count, genre_count`,
}

func (r *exploreRepository) Explore(
	ctx context.Context,
	kind types.ExploreType,
	name string,
) (map[string]any, bool, error) {
	log := r.log.Function("Explore")

	query, ok := exploreQueries[kind]
	if !ok {
		return nil, false, fmt.Errorf("unsupported explore type: %s", kind)
	}

	row, found, err := r.graph.ReadSingle(ctx, query, map[string]any{"name": name})
	if err != nil {
		return nil, false, log.Err("explore query failed", err, "type", kind, "name", name)
	}
	return row, found, nil
}

// expandReleases is shared by every type; only the anchoring MATCH differs.
const expandReleases = `
MATCH %s
OPTIONAL MATCH (r)-[:VERSION_OF]->(m:Master)
WITH r, m.year AS year
RETURN r.id AS id, r.title AS name, 'release' AS type,
       CASE WHEN toInteger(year) > 0 THEN toInteger(year) ELSE null END AS year
ORDER BY year DESC
SKIP $offset
LIMIT $limit`

const countReleases = `MATCH %s RETURN count(DISTINCT r) AS total`

func releasesPair(match string) expandQueries {
	return expandQueries{
		children: fmt.Sprintf(expandReleases, match),
		count:    fmt.Sprintf(countReleases, match),
	}
}

type expandQueries struct {
	children string
	count    string
}

var expandDispatch = map[types.ExploreType]map[string]expandQueries{
	types.ExploreArtist: {
		"releases": releasesPair(`(r:Release)-[:BY]->(a:Artist {name: $name})`),
		"labels": {
			children: `
MATCH (r:Release)-[:BY]->(a:Artist {name: $name}), (r)-[:ON]->(l:Label)
RETURN l.id AS id, l.name AS name, 'label' AS type, count(DISTINCT r) AS release_count
ORDER BY release_count DESC
SKIP $offset
LIMIT $limit`,
			count: `
MATCH (r:Release)-[:BY]->(a:Artist {name: $name}), (r)-[:ON]->(l:Label)
RETURN count(DISTINCT l) AS total`,
		},
		"aliases": {
			children: `
MATCH (a:Artist {name: $name})
OPTIONAL MATCH (a)-[:ALIAS_OF]->(alias:Artist)
WITH a, collect(DISTINCT {id: alias.id, name: alias.name, type: 'artist'}) AS aliases
OPTIONAL MATCH (a)-[:MEMBER_OF]->(grp:Artist)
WITH a, aliases, collect(DISTINCT {id: grp.id, name: grp.name, type: 'artist'}) AS groups
OPTIONAL MATCH (m:Artist)-[:MEMBER_OF]->(a)
WITH aliases, groups, collect(DISTINCT {id: m.id, name: m.name, type: 'artist'}) AS members
UNWIND (aliases + groups + members) AS item
WITH item WHERE item.id IS NOT NULL
RETURN DISTINCT item.id AS id, item.name AS name, item.type AS type
ORDER BY id
SKIP $offset
LIMIT $limit`,
			count: `
MATCH (a:Artist {name: $name})
OPTIONAL MATCH (a)-[:ALIAS_OF]->(alias:Artist)
WITH a, count(DISTINCT alias) AS alias_count
OPTIONAL MATCH (a)-[:MEMBER_OF]->(grp:Artist)
WITH a, alias_count, count(DISTINCT grp) AS group_count
OPTIONAL MATCH (m:Artist)-[:MEMBER_OF]->(a)
RETURN alias_count + group_count + count(DISTINCT m) AS total`,
		},
	},
	types.ExploreGenre: {
		"releases": releasesPair(`(r:Release)-[:IS]->(g:Genre {name: $name})`),
		"artists": {
			children: `
MATCH (r:Release)-[:IS]->(g:Genre {name: $name}), (r)-[:BY]->(a:Artist)
RETURN DISTINCT a.id AS id, a.name AS name, 'artist' AS type
ORDER BY a.name
SKIP $offset
LIMIT $limit`,
			count: `
MATCH (r:Release)-[:IS]->(g:Genre {name: $name}), (r)-[:BY]->(a:Artist)
RETURN count(DISTINCT a) AS total`,
		},
		"labels": {
			children: `
MATCH (r:Release)-[:IS]->(g:Genre {name: $name}), (r)-[:ON]->(l:Label)
RETURN l.id AS id, l.name AS name, 'label' AS type, count(DISTINCT r) AS release_count
ORDER BY release_count DESC
SKIP $offset
LIMIT $limit`,
			count: `
MATCH (r:Release)-[:IS]->(g:Genre {name: $name}), (r)-[:ON]->(l:Label)
RETURN count(DISTINCT l) AS total`,
		},
		"styles": {
			children: `
MATCH (r:Release)-[:IS]->(g:Genre {name: $name}), (r)-[:IS]->(s:Style)
RETURN s.name AS id, s.name AS name, 'style' AS type, count(DISTINCT r) AS release_count
ORDER BY release_count DESC
SKIP $offset
LIMIT $limit`,
			count: `
MATCH (r:Release)-[:IS]->(g:Genre {name: $name}), (r)-[:IS]->(s:Style)
RETURN count(DISTINCT s) AS total`,
		},
	},
	types.ExploreLabel: {
		"releases": releasesPair(`(r:Release)-[:ON]->(l:Label {name: $name})`),
		"artists": {
			children: `
MATCH (r:Release)-[:ON]->(l:Label {name: $name}), (r)-[:BY]->(a:Artist)
RETURN a.id AS id, a.name AS name, 'artist' AS type, count(DISTINCT r) AS release_count
ORDER BY release_count DESC
SKIP $offset
LIMIT $limit`,
			count: `
MATCH (r:Release)-[:ON]->(l:Label {name: $name}), (r)-[:BY]->(a:Artist)
RETURN count(DISTINCT a) AS total`,
		},
		"genres": {
			children: `
MATCH (r:Release)-[:ON]->(l:Label {name: $name}), (r)-[:IS]->(g:Genre)
RETURN g.name AS id, g.name AS name, 'genre' AS type, count(DISTINCT r) AS release_count
ORDER BY release_count DESC
SKIP $offset
LIMIT $limit`,
			count: `
MATCH (r:Release)-[:ON]->(l:Label {name: $name}), (r)-[:IS]->(g:Genre)
RETURN count(DISTINCT g) AS total`,
		},
	},
	types.ExploreStyle: {
		"releases": releasesPair(`(r:Release)-[:IS]->(s:Style {name: $name})`),
		"artists": {
			children: `
MATCH (r:Release)-[:IS]->(s:Style {name: $name}), (r)-[:BY]->(a:Artist)
RETURN DISTINCT a.id AS id, a.name AS name, 'artist' AS type
ORDER BY a.name
SKIP $offset
LIMIT $limit`,
			count: `
MATCH (r:Release)-[:IS]->(s:Style {name: $name}), (r)-[:BY]->(a:Artist)
RETURN count(DISTINCT a) AS total`,
		},
		"labels": {
			children: `
MATCH (r:Release)-[:IS]->(s:Style {name: $name}), (r)-[:ON]->(l:Label)
RETURN l.id AS id, l.name AS name, 'label' AS type, count(DISTINCT r) AS release_count
ORDER BY release_count DESC
SKIP $offset
LIMIT $limit`,
			count: `
MATCH (r:Release)-[:IS]->(s:Style {name: $name}), (r)-[:ON]->(l:Label)
RETURN count(DISTINCT l) AS total`,
		},
		"genres": {
			children: `
MATCH (r:Release)-[:IS]->(s:Style {name: $name}), (r)-[:IS]->(g:Genre)
RETURN g.name AS id, g.name AS name, 'genre' AS type, count(DISTINCT r) AS release_count
ORDER BY release_count DESC
SKIP $offset
LIMIT $limit`,
			count: `
MATCH (r:Release)-[:IS]->(s:Style {name: $name}), (r)-[:IS]->(g:Genre)
RETURN count(DISTINCT g) AS total`,
		},
	},
}

// categoryOrder fixes the listing order for error messages and explore
// category assembly.
var categoryOrder = map[types.ExploreType][]string{
	types.ExploreArtist: {"releases", "labels", "aliases"},
	types.ExploreGenre:  {"releases", "artists", "labels", "styles"},
	types.ExploreLabel:  {"releases", "artists", "genres"},
	types.ExploreStyle:  {"releases", "artists", "labels", "genres"},
}

func (r *exploreRepository) ValidCategories(kind types.ExploreType) []string {
	return categoryOrder[kind]
}

func (r *exploreRepository) Expand(
	ctx context.Context,
	kind types.ExploreType,
	category, name string,
	limit, offset int,
) ([]map[string]any, error) {
	log := r.log.Function("Expand")

	queries, ok := expandDispatch[kind][category]
	if !ok {
		return nil, fmt.Errorf("unsupported expand category %q for type %q", category, kind)
	}

	rows, err := r.graph.ReadRows(ctx, queries.children, map[string]any{
		"name":   name,
		"limit":  limit,
		"offset": offset,
	})
	if err != nil {
		return nil, log.Err("expand query failed", err, "type", kind, "category", category)
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return rows, nil
}

func (r *exploreRepository) ExpandCount(
	ctx context.Context,
	kind types.ExploreType,
	category, name string,
) (int64, error) {
	log := r.log.Function("ExpandCount")

	queries, ok := expandDispatch[kind][category]
	if !ok {
		return 0, fmt.Errorf("unsupported expand category %q for type %q", category, kind)
	}

	total, err := r.graph.ReadCount(ctx, queries.count, map[string]any{"name": name}, "total")
	if err != nil {
		return 0, log.Err("expand count query failed", err, "type", kind, "category", category)
	}
	return total, nil
}

var detailQueries = map[types.ExploreType]string{
	types.ExploreArtist: `
MATCH (a:Artist) WHERE a.id = $id OR a.name = $id
OPTIONAL MATCH (r:Release)-[:BY]->(a), (r)-[:IS]->(g:Genre)
WITH a, collect(DISTINCT g.name) AS genres
OPTIONAL MATCH (r2:Release)-[:BY]->(a), (r2)-[:IS]->(s:Style)
WITH a, genres, collect(DISTINCT s.name) AS styles
OPTIONAL MATCH (r3:Release)-[:BY]->(a)
WITH a, genres, styles, count(DISTINCT r3) AS release_count
OPTIONAL MATCH (a)-[:MEMBER_OF]->(grp:Artist)
WITH a, genres, styles, release_count, collect(DISTINCT grp.name) AS groups
RETURN a.id AS id, a.name AS name, genres, styles, release_count, groups`,
	types.ExploreRelease: `
MATCH (r:Release) WHERE r.id = $id OR r.title = $id
OPTIONAL MATCH (r)-[:BY]->(a:Artist)
WITH r, collect(DISTINCT a.name) AS artists
OPTIONAL MATCH (r)-[:ON]->(l:Label)
WITH r, artists, collect(DISTINCT l.name) AS labels
OPTIONAL MATCH (r)-[:IS]->(g:Genre)
WITH r, artists, labels, collect(DISTINCT g.name) AS genres
OPTIONAL MATCH (r)-[:IS]->(s:Style)
WITH r, artists, labels, genres, collect(DISTINCT s.name) AS styles
OPTIONAL MATCH (r)-[:VERSION_OF]->(m:Master)
WITH r, artists, labels, genres, styles,
     CASE WHEN toInteger(m.year) > 0 THEN toInteger(m.year) ELSE null END AS year
RETURN r.id AS id, r.title AS name, year,
       artists, labels, genres, styles`,
	types.ExploreLabel: `
MATCH (l:Label) WHERE l.id = $id OR l.name = $id
OPTIONAL MATCH (r:Release)-[:ON]->(l)
WITH l, count(DISTINCT r) AS release_count
RETURN l.id AS id, l.name AS name, release_count`,
	types.ExploreGenre: `
MATCH (g:Genre {name: $id})
OPTIONAL MATCH (r:Release)-[:IS]->(g), (r)-[:BY]->(a:Artist)
WITH g, count(DISTINCT a) AS artist_count
RETURN g.name AS id, g.name AS name, artist_count`,
	types.ExploreStyle: `
MATCH (s:Style {name: $id})
OPTIONAL MATCH (r:Release)-[:IS]->(s), (r)-[:BY]->(a:Artist)
WITH s, count(DISTINCT a) AS artist_count
RETURN s.name AS id, s.name AS name, artist_count`,
}

func (r *exploreRepository) Details(
	ctx context.Context,
	kind types.ExploreType,
	nodeID string,
) (map[string]any, bool, error) {
	log := r.log.Function("Details")

	query, ok := detailQueries[kind]
	if !ok {
		return nil, false, fmt.Errorf("unsupported details type: %s", kind)
	}

	row, found, err := r.graph.ReadSingle(ctx, query, map[string]any{"id": nodeID})
	if err != nil {
		return nil, false, log.Err("details query failed", err, "type", kind, "nodeID", nodeID)
	}
	return row, found, nil
}

var trendMatches = map[types.ExploreType]string{
	types.ExploreArtist: `(r:Release)-[:BY]->(a:Artist {name: $name})`,
	types.ExploreGenre:  `(r:Release)-[:IS]->(g:Genre {name: $name})`,
	types.ExploreLabel:  `(r:Release)-[:ON]->(l:Label {name: $name})`,
	types.ExploreStyle:  `(r:Release)-[:IS]->(s:Style {name: $name})`,
}

const trendsQuery = `
MATCH %s,
      (r)-[:VERSION_OF]->(m:Master)
WHERE toInteger(m.year) > 0
WITH toInteger(m.year) AS year, count(DISTINCT r) AS count
RETURN year, count
ORDER BY year`

func (r *exploreRepository) Trends(
	ctx context.Context,
	kind types.ExploreType,
	name string,
) ([]types.TrendPoint, error) {
	log := r.log.Function("Trends")

	match, ok := trendMatches[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported trends type: %s", kind)
	}

	rows, err := r.graph.ReadRows(ctx, fmt.Sprintf(trendsQuery, match), map[string]any{"name": name})
	if err != nil {
		return nil, log.Err("trends query failed", err, "type", kind, "name", name)
	}

	points := make([]types.TrendPoint, 0, len(rows))
	for _, row := range rows {
		year, _ := row["year"].(int64)
		count, _ := row["count"].(int64)
		points = append(points, types.TrendPoint{Year: year, Count: count})
	}
	return points, nil
}
