package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// schemaStatements are rerun-safe: every constraint and index is declared
// IF NOT EXISTS so bootstrap can run on every deploy.
var schemaStatements = []string{
	"CREATE CONSTRAINT artist_id_unique IF NOT EXISTS FOR (a:Artist) REQUIRE a.id IS UNIQUE",
	"CREATE CONSTRAINT label_id_unique IF NOT EXISTS FOR (l:Label) REQUIRE l.id IS UNIQUE",
	"CREATE CONSTRAINT master_id_unique IF NOT EXISTS FOR (m:Master) REQUIRE m.id IS UNIQUE",
	"CREATE CONSTRAINT release_id_unique IF NOT EXISTS FOR (r:Release) REQUIRE r.id IS UNIQUE",
	"CREATE CONSTRAINT genre_name_unique IF NOT EXISTS FOR (g:Genre) REQUIRE g.name IS UNIQUE",
	"CREATE CONSTRAINT style_name_unique IF NOT EXISTS FOR (s:Style) REQUIRE s.name IS UNIQUE",
	"CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE",

	"CREATE INDEX artist_hash IF NOT EXISTS FOR (a:Artist) ON (a.hash)",
	"CREATE INDEX label_hash IF NOT EXISTS FOR (l:Label) ON (l.hash)",
	"CREATE INDEX master_hash IF NOT EXISTS FOR (m:Master) ON (m.hash)",
	"CREATE INDEX release_hash IF NOT EXISTS FOR (r:Release) ON (r.hash)",
	"CREATE INDEX release_year IF NOT EXISTS FOR (r:Release) ON (r.year)",

	"CREATE FULLTEXT INDEX artist_name_fulltext IF NOT EXISTS FOR (a:Artist) ON EACH [a.name]",
	"CREATE FULLTEXT INDEX label_name_fulltext IF NOT EXISTS FOR (l:Label) ON EACH [l.name]",
	"CREATE FULLTEXT INDEX release_title_fulltext IF NOT EXISTS FOR (r:Release) ON EACH [r.title]",
}

// EnsureSchema creates the constraints and indexes the catalog relies on.
// Schema statements cannot share a transaction with data statements, so
// each runs in its own write transaction.
func (g *Graph) EnsureSchema(ctx context.Context) error {
	log := g.log.Function("EnsureSchema")
	log.Info("Ensuring graph schema", "statements", len(schemaStatements))

	for _, statement := range schemaStatements {
		_, err := g.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			result, err := tx.Run(ctx, statement, nil)
			if err != nil {
				return nil, err
			}
			_, err = result.Consume(ctx)
			return nil, err
		})
		if err != nil {
			return log.Err("failed to apply graph schema statement", err, "statement", statement)
		}
	}

	log.Info("Graph schema ensured")
	return nil
}
