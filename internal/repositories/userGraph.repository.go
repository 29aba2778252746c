package repositories

import (
	"context"
	"waxworks/internal/graph"
	"waxworks/internal/types"
	"waxworks/pkg/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// UserGraphRepository owns the user-facing side of the graph: COLLECTED and
// WANTS edges written by the sync engine, and the read queries built on them.
// Edge merges MATCH the release instead of merging it, so items whose release
// has not been ingested yet are silently skipped; the next sync after the
// catalog catches up converges them.
type UserGraphRepository interface {
	MergeCollectedEdges(ctx context.Context, userID, username, syncID string, releases []map[string]any) error
	MergeWantsEdges(ctx context.Context, userID, username, syncID string, releases []map[string]any) error
	PruneStaleEdges(ctx context.Context, userID, syncID string) (int64, error)
	CollectionRows(ctx context.Context, userID string, limit, offset int) ([]types.UserReleaseRow, error)
	CollectionCount(ctx context.Context, userID string) (int64, error)
	WantlistRows(ctx context.Context, userID string, limit, offset int) ([]types.UserReleaseRow, error)
	WantlistCount(ctx context.Context, userID string) (int64, error)
	Recommendations(ctx context.Context, userID string, limit int) ([]types.RecommendationRow, error)
	Stats(ctx context.Context, userID string) (types.CollectionStats, error)
	ReleaseStatus(ctx context.Context, userID string, releaseIDs []int64) (map[int64]types.ReleaseStatus, error)
}

type userGraphRepository struct {
	graph *graph.Graph
	log   logger.Logger
}

func NewUserGraphRepository(gr *graph.Graph) UserGraphRepository {
	return &userGraphRepository{
		graph: gr,
		log:   logger.New("userGraphRepository"),
	}
}

const mergeCollectedQuery = `
MERGE (u:User {id: $user_id})
ON CREATE SET u.discogs_username = $username
WITH u
UNWIND $releases AS rel
MATCH (r:Release {id: toString(rel.release_id)})
MERGE (u)-[c:COLLECTED {instance_id: rel.instance_id}]->(r)
SET c.rating = rel.rating,
    c.folder_id = rel.folder_id,
    c.date_added = rel.date_added,
    c.sync_id = $sync_id,
    c.synced_at = datetime()`

func (r *userGraphRepository) MergeCollectedEdges(
	ctx context.Context,
	userID, username, syncID string,
	releases []map[string]any,
) error {
	log := r.log.Function("MergeCollectedEdges")

	if len(releases) == 0 {
		return nil
	}

	_, err := r.graph.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, mergeCollectedQuery, map[string]any{
			"user_id":  userID,
			"username": username,
			"sync_id":  syncID,
			"releases": releases,
		})
		if err != nil {
			return nil, err
		}
		_, err = result.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return log.Err("failed to merge collection edges", err, "userID", userID, "batch", len(releases))
	}
	return nil
}

const mergeWantsQuery = `
MERGE (u:User {id: $user_id})
ON CREATE SET u.discogs_username = $username
WITH u
UNWIND $releases AS rel
MATCH (r:Release {id: toString(rel.release_id)})
MERGE (u)-[w:WANTS]->(r)
SET w.rating = rel.rating,
    w.date_added = rel.date_added,
    w.sync_id = $sync_id,
    w.synced_at = datetime()`

func (r *userGraphRepository) MergeWantsEdges(
	ctx context.Context,
	userID, username, syncID string,
	releases []map[string]any,
) error {
	log := r.log.Function("MergeWantsEdges")

	if len(releases) == 0 {
		return nil
	}

	_, err := r.graph.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, mergeWantsQuery, map[string]any{
			"user_id":  userID,
			"username": username,
			"sync_id":  syncID,
			"releases": releases,
		})
		if err != nil {
			return nil, err
		}
		_, err = result.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return log.Err("failed to merge wantlist edges", err, "userID", userID, "batch", len(releases))
	}
	return nil
}

const pruneStaleEdgesQuery = `
MATCH (u:User {id: $user_id})-[e:COLLECTED|WANTS]->(:Release)
WHERE e.sync_id IS NULL OR e.sync_id <> $sync_id
DELETE e`

// PruneStaleEdges sweeps edges the given run did not mark. Mark-and-sweep
// keeps the prune exact without comparing clocks between this process and
// the graph server.
func (r *userGraphRepository) PruneStaleEdges(
	ctx context.Context,
	userID, syncID string,
) (int64, error) {
	log := r.log.Function("PruneStaleEdges")

	removed, err := r.graph.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, pruneStaleEdgesQuery, map[string]any{
			"user_id": userID,
			"sync_id": syncID,
		})
		if err != nil {
			return nil, err
		}
		summary, err := result.Consume(ctx)
		if err != nil {
			return nil, err
		}
		return int64(summary.Counters().RelationshipsDeleted()), nil
	})
	if err != nil {
		return 0, log.Err("failed to prune stale edges", err, "userID", userID)
	}

	count, _ := removed.(int64)
	return count, nil
}

const collectionRowsQuery = `
MATCH (u:User {id: $user_id})-[c:COLLECTED]->(r:Release)
OPTIONAL MATCH (r)-[:BY]->(a:Artist)
OPTIONAL MATCH (r)-[:ON]->(l:Label)
OPTIONAL MATCH (r)-[:VERSION_OF]->(m:Master)
WITH r, c,
     collect(DISTINCT a.name)[0] AS artist_name,
     collect(DISTINCT l.name)[0] AS label_name,
     CASE WHEN toInteger(m.year) > 0 THEN toInteger(m.year) ELSE null END AS year
RETURN r.id AS id, r.title AS title, year,
       artist_name AS artist, label_name AS label,
       c.rating AS rating, toString(c.date_added) AS date_added, c.folder_id AS folder_id
ORDER BY c.date_added DESC
SKIP $offset
LIMIT $limit`

const collectionCountQuery = `
MATCH (u:User {id: $user_id})-[c:COLLECTED]->(:Release)
RETURN count(c) AS total`

func (r *userGraphRepository) CollectionRows(
	ctx context.Context,
	userID string,
	limit, offset int,
) ([]types.UserReleaseRow, error) {
	log := r.log.Function("CollectionRows")

	rows, err := r.graph.ReadRows(ctx, collectionRowsQuery, map[string]any{
		"user_id": userID,
		"limit":   limit,
		"offset":  offset,
	})
	if err != nil {
		return nil, log.Err("collection query failed", err, "userID", userID)
	}
	return userReleaseRows(rows, true), nil
}

func (r *userGraphRepository) CollectionCount(ctx context.Context, userID string) (int64, error) {
	log := r.log.Function("CollectionCount")

	total, err := r.graph.ReadCount(ctx, collectionCountQuery, map[string]any{"user_id": userID}, "total")
	if err != nil {
		return 0, log.Err("collection count failed", err, "userID", userID)
	}
	return total, nil
}

const wantlistRowsQuery = `
MATCH (u:User {id: $user_id})-[w:WANTS]->(r:Release)
OPTIONAL MATCH (r)-[:BY]->(a:Artist)
OPTIONAL MATCH (r)-[:ON]->(l:Label)
OPTIONAL MATCH (r)-[:VERSION_OF]->(m:Master)
WITH r, w,
     collect(DISTINCT a.name)[0] AS artist_name,
     collect(DISTINCT l.name)[0] AS label_name,
     CASE WHEN toInteger(m.year) > 0 THEN toInteger(m.year) ELSE null END AS year
RETURN r.id AS id, r.title AS title, year,
       artist_name AS artist, label_name AS label,
       w.rating AS rating, toString(w.date_added) AS date_added
ORDER BY w.date_added DESC
SKIP $offset
LIMIT $limit`

const wantlistCountQuery = `
MATCH (u:User {id: $user_id})-[w:WANTS]->(:Release)
RETURN count(w) AS total`

func (r *userGraphRepository) WantlistRows(
	ctx context.Context,
	userID string,
	limit, offset int,
) ([]types.UserReleaseRow, error) {
	log := r.log.Function("WantlistRows")

	rows, err := r.graph.ReadRows(ctx, wantlistRowsQuery, map[string]any{
		"user_id": userID,
		"limit":   limit,
		"offset":  offset,
	})
	if err != nil {
		return nil, log.Err("wantlist query failed", err, "userID", userID)
	}
	return userReleaseRows(rows, false), nil
}

func (r *userGraphRepository) WantlistCount(ctx context.Context, userID string) (int64, error) {
	log := r.log.Function("WantlistCount")

	total, err := r.graph.ReadCount(ctx, wantlistCountQuery, map[string]any{"user_id": userID}, "total")
	if err != nil {
		return 0, log.Err("wantlist count failed", err, "userID", userID)
	}
	return total, nil
}

func userReleaseRows(rows []map[string]any, withFolder bool) []types.UserReleaseRow {
	out := make([]types.UserReleaseRow, 0, len(rows))
	for _, row := range rows {
		item := types.UserReleaseRow{}
		item.ID, _ = row["id"].(string)
		item.Title, _ = row["title"].(string)
		if year, ok := row["year"].(int64); ok {
			item.Year = &year
		}
		item.Artist, _ = row["artist"].(string)
		item.Label, _ = row["label"].(string)
		item.Rating, _ = row["rating"].(int64)
		item.DateAdded, _ = row["date_added"].(string)
		if withFolder {
			if folderID, ok := row["folder_id"].(int64); ok {
				item.FolderID = &folderID
			}
		}
		out = append(out, item)
	}
	return out
}

// recommendationsQuery scores candidate releases by how heavily the user has
// collected their artists: top ten artists by collected count, then unowned
// and unwanted releases by those artists, ranked by the summed counts.
const recommendationsQuery = `
MATCH (u:User {id: $user_id})-[:COLLECTED]->(r:Release)-[:BY]->(a:Artist)
WITH u, a, count(r) AS collected_count
ORDER BY collected_count DESC
LIMIT 10
MATCH (cand:Release)-[:BY]->(a)
WHERE NOT (u)-[:COLLECTED]->(cand) AND NOT (u)-[:WANTS]->(cand)
OPTIONAL MATCH (cand)-[:ON]->(l:Label)
OPTIONAL MATCH (cand)-[:VERSION_OF]->(m:Master)
OPTIONAL MATCH (cand)-[:IS]->(g:Genre)
WITH cand, a, collected_count,
     collect(DISTINCT l.name)[0] AS label_name,
     CASE WHEN toInteger(m.year) > 0 THEN toInteger(m.year) ELSE null END AS year,
     collect(DISTINCT g.name) AS genres
WITH cand, year, label_name, genres,
     collect(DISTINCT a.name)[0] AS artist_name,
     sum(collected_count) AS score
RETURN cand.id AS id, cand.title AS title, year,
       artist_name AS artist, label_name AS label, genres, score
ORDER BY score DESC
LIMIT $limit`

func (r *userGraphRepository) Recommendations(
	ctx context.Context,
	userID string,
	limit int,
) ([]types.RecommendationRow, error) {
	log := r.log.Function("Recommendations")

	rows, err := r.graph.ReadRows(ctx, recommendationsQuery, map[string]any{
		"user_id": userID,
		"limit":   limit,
	})
	if err != nil {
		return nil, log.Err("recommendations query failed", err, "userID", userID)
	}

	out := make([]types.RecommendationRow, 0, len(rows))
	for _, row := range rows {
		rec := types.RecommendationRow{}
		rec.ID, _ = row["id"].(string)
		rec.Title, _ = row["title"].(string)
		if year, ok := row["year"].(int64); ok {
			rec.Year = &year
		}
		rec.Artist, _ = row["artist"].(string)
		rec.Label, _ = row["label"].(string)
		if genres, ok := row["genres"].([]any); ok {
			rec.Genres = make([]string, 0, len(genres))
			for _, g := range genres {
				if name, ok := g.(string); ok {
					rec.Genres = append(rec.Genres, name)
				}
			}
		}
		rec.Score, _ = row["score"].(int64)
		out = append(out, rec)
	}
	return out, nil
}

const statsTotalQuery = `
MATCH (u:User {id: $user_id})-[c:COLLECTED]->(:Release)
RETURN count(c) AS total`

const statsUniqueQuery = `
MATCH (u:User {id: $user_id})-[:COLLECTED]->(r:Release)
RETURN count(DISTINCT r) AS total`

const statsTopArtistsQuery = `
MATCH (u:User {id: $user_id})-[c:COLLECTED]->(r:Release)-[:BY]->(a:Artist)
RETURN a.name AS artist, count(c) AS count
ORDER BY count DESC, artist
LIMIT 10`

// Stats aggregates collection shape from the graph. The monetary value block
// lives in Postgres and is attached by the service layer.
func (r *userGraphRepository) Stats(ctx context.Context, userID string) (types.CollectionStats, error) {
	log := r.log.Function("Stats")

	params := map[string]any{"user_id": userID}
	stats := types.CollectionStats{TopArtists: []types.ArtistCount{}}

	total, err := r.graph.ReadCount(ctx, statsTotalQuery, params, "total")
	if err != nil {
		return stats, log.Err("stats total failed", err, "userID", userID)
	}
	stats.TotalItems = total

	unique, err := r.graph.ReadCount(ctx, statsUniqueQuery, params, "total")
	if err != nil {
		return stats, log.Err("stats unique failed", err, "userID", userID)
	}
	stats.UniqueReleases = unique

	rows, err := r.graph.ReadRows(ctx, statsTopArtistsQuery, params)
	if err != nil {
		return stats, log.Err("stats top artists failed", err, "userID", userID)
	}
	for _, row := range rows {
		artist, _ := row["artist"].(string)
		count, _ := row["count"].(int64)
		stats.TopArtists = append(stats.TopArtists, types.ArtistCount{Artist: artist, Count: count})
	}

	return stats, nil
}

const releaseStatusQuery = `
MATCH (u:User {id: $user_id})
UNWIND $ids AS rid
OPTIONAL MATCH (u)-[c:COLLECTED]->(:Release {id: toString(rid)})
OPTIONAL MATCH (u)-[w:WANTS]->(:Release {id: toString(rid)})
RETURN rid AS id, count(c) > 0 AS in_collection, count(w) > 0 AS in_wantlist`

// ReleaseStatus reports collection and wantlist membership for each id. A
// user node that does not exist yet yields no rows; callers treat missing
// ids as not-owned.
func (r *userGraphRepository) ReleaseStatus(
	ctx context.Context,
	userID string,
	releaseIDs []int64,
) (map[int64]types.ReleaseStatus, error) {
	log := r.log.Function("ReleaseStatus")

	statuses := make(map[int64]types.ReleaseStatus, len(releaseIDs))
	if len(releaseIDs) == 0 {
		return statuses, nil
	}

	rows, err := r.graph.ReadRows(ctx, releaseStatusQuery, map[string]any{
		"user_id": userID,
		"ids":     releaseIDs,
	})
	if err != nil {
		return nil, log.Err("release status query failed", err, "userID", userID)
	}

	for _, row := range rows {
		id, _ := row["id"].(int64)
		inCollection, _ := row["in_collection"].(bool)
		inWantlist, _ := row["in_wantlist"].(bool)
		statuses[id] = types.ReleaseStatus{InCollection: inCollection, InWantlist: inWantlist}
	}
	return statuses, nil
}
