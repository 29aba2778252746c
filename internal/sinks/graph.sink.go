package sinks

import (
	"context"
	"fmt"

	"waxworks/internal/graph"
	"waxworks/internal/types"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// GraphStore writes catalog records into the property graph. Every
// referenced entity is MERGE'd by id so records may arrive in any order:
// a reference creates a placeholder node and the defining message, landing
// later, fills in the descriptive properties.
type GraphStore struct {
	graph *graph.Graph
}

func NewGraphStore(g *graph.Graph) *GraphStore {
	return &GraphStore{graph: g}
}

func (s *GraphStore) ReadHash(
	ctx context.Context,
	kind types.EntityKind,
	id string,
) (string, bool, error) {
	query := fmt.Sprintf("MATCH (n:%s {id: $id}) RETURN n.hash AS hash", kind.NodeLabel())

	row, found, err := s.graph.ReadSingle(ctx, query, map[string]any{"id": id})
	if err != nil {
		return "", false, err
	}
	if !found {
		return "", false, nil
	}

	// A placeholder node created by a reference has no hash yet; the
	// defining record still counts as a first write.
	hash, ok := row["hash"].(string)
	if !ok || hash == "" {
		return "", false, nil
	}

	return hash, true, nil
}

func (s *GraphStore) Write(ctx context.Context, record Record) error {
	_, err := s.graph.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		switch record.Kind {
		case types.KindArtists:
			return nil, writeArtist(ctx, tx, types.ArtistDocFrom(record.Norm), record.Hash)
		case types.KindLabels:
			return nil, writeLabel(ctx, tx, types.LabelDocFrom(record.Norm), record.Hash)
		case types.KindMasters:
			return nil, writeMaster(ctx, tx, types.MasterDocFrom(record.Norm), record.Hash)
		case types.KindReleases:
			return nil, writeRelease(ctx, tx, types.ReleaseDocFrom(record.Norm), record.Hash)
		default:
			return nil, fmt.Errorf("unknown entity kind %q", record.Kind)
		}
	})
	return err
}

func writeArtist(
	ctx context.Context,
	tx neo4j.ManagedTransaction,
	doc *types.ArtistDoc,
	hash string,
) error {
	if err := run(ctx, tx, `
		MERGE (a:Artist {id: $id})
		SET a.name = $name,
		    a.real_name = $real_name,
		    a.profile = $profile,
		    a.namevariations = $namevariations,
		    a.hash = $hash`,
		map[string]any{
			"id":             doc.ID,
			"name":           doc.Name,
			"real_name":      doc.RealName,
			"profile":        doc.Profile,
			"namevariations": doc.NameVariations,
			"hash":           hash,
		}); err != nil {
		return err
	}

	if len(doc.Aliases) > 0 {
		if err := run(ctx, tx, `
			MATCH (a:Artist {id: $id})
			UNWIND $aliases AS alias
			MERGE (o:Artist {id: alias.id})
			MERGE (o)-[:ALIAS_OF]->(a)
			MERGE (a)-[:ALIAS_OF]->(o)`,
			map[string]any{"id": doc.ID, "aliases": refParams(doc.Aliases)},
		); err != nil {
			return err
		}
	}

	if len(doc.Groups) > 0 {
		if err := run(ctx, tx, `
			MATCH (a:Artist {id: $id})
			UNWIND $groups AS group
			MERGE (g:Artist {id: group.id})
			MERGE (a)-[:MEMBER_OF]->(g)`,
			map[string]any{"id": doc.ID, "groups": refParams(doc.Groups)},
		); err != nil {
			return err
		}
	}

	if len(doc.Members) > 0 {
		if err := run(ctx, tx, `
			MATCH (a:Artist {id: $id})
			UNWIND $members AS member
			MERGE (m:Artist {id: member.id})
			MERGE (m)-[:MEMBER_OF]->(a)`,
			map[string]any{"id": doc.ID, "members": refParams(doc.Members)},
		); err != nil {
			return err
		}
	}

	return writeClassifications(ctx, tx, "Artist", doc.ID, doc.Genres, doc.Styles)
}

func writeLabel(
	ctx context.Context,
	tx neo4j.ManagedTransaction,
	doc *types.LabelDoc,
	hash string,
) error {
	if err := run(ctx, tx, `
		MERGE (l:Label {id: $id})
		SET l.name = $name,
		    l.profile = $profile,
		    l.contact_info = $contact_info,
		    l.hash = $hash`,
		map[string]any{
			"id":           doc.ID,
			"name":         doc.Name,
			"profile":      doc.Profile,
			"contact_info": doc.ContactInfo,
			"hash":         hash,
		}); err != nil {
		return err
	}

	if doc.ParentLabel != nil {
		if err := run(ctx, tx, `
			MATCH (l:Label {id: $id})
			MERGE (p:Label {id: $parent_id})
			MERGE (l)-[:SUBLABEL_OF]->(p)`,
			map[string]any{"id": doc.ID, "parent_id": doc.ParentLabel.ID},
		); err != nil {
			return err
		}
	}

	if len(doc.Sublabels) > 0 {
		if err := run(ctx, tx, `
			MATCH (l:Label {id: $id})
			UNWIND $sublabels AS sublabel
			MERGE (s:Label {id: sublabel.id})
			MERGE (s)-[:SUBLABEL_OF]->(l)`,
			map[string]any{"id": doc.ID, "sublabels": refParams(doc.Sublabels)},
		); err != nil {
			return err
		}
	}

	return nil
}

func writeMaster(
	ctx context.Context,
	tx neo4j.ManagedTransaction,
	doc *types.MasterDoc,
	hash string,
) error {
	if err := run(ctx, tx, `
		MERGE (m:Master {id: $id})
		SET m.title = $title,
		    m.year = $year,
		    m.hash = $hash`,
		map[string]any{
			"id":    doc.ID,
			"title": doc.Title,
			"year":  doc.Year,
			"hash":  hash,
		}); err != nil {
		return err
	}

	if len(doc.Artists) > 0 {
		if err := run(ctx, tx, `
			MATCH (m:Master {id: $id})
			UNWIND $artists AS artist
			MERGE (a:Artist {id: artist.id})
			MERGE (m)-[:BY]->(a)`,
			map[string]any{"id": doc.ID, "artists": refParams(doc.Artists)},
		); err != nil {
			return err
		}
	}

	return writeClassifications(ctx, tx, "Master", doc.ID, doc.Genres, doc.Styles)
}

func writeRelease(
	ctx context.Context,
	tx neo4j.ManagedTransaction,
	doc *types.ReleaseDoc,
	hash string,
) error {
	if err := run(ctx, tx, `
		MERGE (r:Release {id: $id})
		SET r.title = $title,
		    r.year = $year,
		    r.country = $country,
		    r.format = $format,
		    r.hash = $hash`,
		map[string]any{
			"id":      doc.ID,
			"title":   doc.Title,
			"year":    doc.Year,
			"country": doc.Country,
			"format":  doc.Format,
			"hash":    hash,
		}); err != nil {
		return err
	}

	if len(doc.Artists) > 0 {
		if err := run(ctx, tx, `
			MATCH (r:Release {id: $id})
			UNWIND $artists AS artist
			MERGE (a:Artist {id: artist.id})
			MERGE (r)-[:BY]->(a)`,
			map[string]any{"id": doc.ID, "artists": refParams(doc.Artists)},
		); err != nil {
			return err
		}
	}

	if len(doc.Labels) > 0 {
		if err := run(ctx, tx, `
			MATCH (r:Release {id: $id})
			UNWIND $labels AS label
			MERGE (l:Label {id: label.id})
			MERGE (r)-[:ON]->(l)`,
			map[string]any{"id": doc.ID, "labels": refParams(doc.Labels)},
		); err != nil {
			return err
		}
	}

	if doc.MasterID != "" {
		if err := run(ctx, tx, `
			MATCH (r:Release {id: $id})
			MERGE (m:Master {id: $master_id})
			MERGE (r)-[:VERSION_OF]->(m)`,
			map[string]any{"id": doc.ID, "master_id": doc.MasterID},
		); err != nil {
			return err
		}
	}

	return writeClassifications(ctx, tx, "Release", doc.ID, doc.Genres, doc.Styles)
}

// writeClassifications links a catalog node to its genres and styles.
// Genre and Style nodes are keyed by name; the name doubles as their id
// in the read API.
func writeClassifications(
	ctx context.Context,
	tx neo4j.ManagedTransaction,
	label string,
	id string,
	genres []string,
	styles []string,
) error {
	if len(genres) > 0 {
		query := fmt.Sprintf(`
			MATCH (n:%s {id: $id})
			UNWIND $names AS name
			MERGE (g:Genre {name: name})
			MERGE (n)-[:IS]->(g)`, label)
		if err := run(ctx, tx, query, map[string]any{"id": id, "names": genres}); err != nil {
			return err
		}
	}

	if len(styles) > 0 {
		query := fmt.Sprintf(`
			MATCH (n:%s {id: $id})
			UNWIND $names AS name
			MERGE (s:Style {name: name})
			MERGE (n)-[:IS]->(s)`, label)
		if err := run(ctx, tx, query, map[string]any{"id": id, "names": styles}); err != nil {
			return err
		}
	}

	return nil
}

func run(
	ctx context.Context,
	tx neo4j.ManagedTransaction,
	query string,
	params map[string]any,
) error {
	result, err := tx.Run(ctx, query, params)
	if err != nil {
		return err
	}
	_, err = result.Consume(ctx)
	return err
}

func refParams(refs []types.IDRef) []map[string]any {
	params := make([]map[string]any, 0, len(refs))
	for _, ref := range refs {
		params = append(params, map[string]any{"id": ref.ID})
	}
	return params
}
