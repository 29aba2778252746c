package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeDoc(t *testing.T, raw string) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func TestNormalizeArtist_AttributeEncoding(t *testing.T) {
	doc := decodeDoc(t, `{
		"@id": "125246",
		"name": "Nirvana",
		"realname": "Nirvana",
		"profile": "Grunge band from Aberdeen",
		"aliases": {"name": [{"@id": "2514", "#text": "Pen Cap Chew"}]},
		"groups": {"name": {"@id": "8, 900", "#text": "Ignored Single"}},
		"members": {"name": [{"@id": "270", "#text": "Kurt Cobain"}, {"@id": "271", "#text": "Krist Novoselic"}]},
		"namevariations": {"name": ["NIRVANA", "Nirvana (US)"]}
	}`)

	norm := NormalizeRecord(KindArtists, doc)

	assert.Equal(t, "125246", norm["id"])
	assert.Equal(t, "Nirvana", norm["name"])
	assert.Equal(t, "Grunge band from Aberdeen", norm["profile"])

	artist := ArtistDocFrom(norm)
	require.Len(t, artist.Aliases, 1)
	assert.Equal(t, IDRef{ID: "2514", Name: "Pen Cap Chew"}, artist.Aliases[0])
	require.Len(t, artist.Members, 2)
	assert.Equal(t, "270", artist.Members[0].ID)
	assert.Equal(t, "Kurt Cobain", artist.Members[0].Name)
	assert.Equal(t, []string{"NIRVANA", "Nirvana (US)"}, artist.NameVariations)
}

func TestNormalizeArtist_PlainEncoding(t *testing.T) {
	doc := decodeDoc(t, `{
		"id": "125246",
		"name": "Nirvana",
		"aliases": [{"id": "2514", "name": "Pen Cap Chew"}],
		"members": [{"id": "270", "name": "Kurt Cobain"}]
	}`)

	norm := NormalizeRecord(KindArtists, doc)
	artist := ArtistDocFrom(norm)

	assert.Equal(t, "125246", artist.ID)
	require.Len(t, artist.Aliases, 1)
	assert.Equal(t, IDRef{ID: "2514", Name: "Pen Cap Chew"}, artist.Aliases[0])
	require.Len(t, artist.Members, 1)
	assert.Equal(t, "270", artist.Members[0].ID)
}

func TestNormalizeArtist_BothEncodingsConverge(t *testing.T) {
	attr := decodeDoc(t, `{
		"@id": "100",
		"name": "Aphex Twin",
		"aliases": {"name": {"@id": "200", "#text": "AFX"}}
	}`)
	plain := decodeDoc(t, `{
		"id": "100",
		"name": "Aphex Twin",
		"aliases": [{"id": "200", "name": "AFX"}]
	}`)

	fromAttr := ArtistDocFrom(NormalizeRecord(KindArtists, attr))
	fromPlain := ArtistDocFrom(NormalizeRecord(KindArtists, plain))

	assert.Equal(t, fromPlain, fromAttr)
}

func TestNormalizeArtist_NumericIDCoerced(t *testing.T) {
	doc := decodeDoc(t, `{"id": 125246, "name": "Nirvana"}`)

	norm := NormalizeRecord(KindArtists, doc)
	assert.Equal(t, "125246", norm["id"])
}

func TestNormalizeArtist_ReferenceWithoutIDDropped(t *testing.T) {
	doc := decodeDoc(t, `{
		"id": "1",
		"name": "Someone",
		"aliases": [{"name": "No Id Here"}, {"id": "2", "name": "Kept"}]
	}`)

	artist := ArtistDocFrom(NormalizeRecord(KindArtists, doc))
	require.Len(t, artist.Aliases, 1)
	assert.Equal(t, "2", artist.Aliases[0].ID)
}

func TestNormalizeLabel(t *testing.T) {
	doc := decodeDoc(t, `{
		"id": "1",
		"name": "Planet E",
		"contactinfo": "Detroit, Michigan",
		"profile": "Classic techno label",
		"parentLabel": {"@id": "900", "#text": "Parent Group"},
		"sublabels": {"label": [{"@id": "31405", "#text": "Antidote"}, {"@id": "42", "#text": "TTT"}]}
	}`)

	norm := NormalizeRecord(KindLabels, doc)
	label := LabelDocFrom(norm)

	assert.Equal(t, "1", label.ID)
	assert.Equal(t, "Planet E", label.Name)
	assert.Equal(t, "Detroit, Michigan", label.ContactInfo)
	require.NotNil(t, label.ParentLabel)
	assert.Equal(t, "900", label.ParentLabel.ID)
	require.Len(t, label.Sublabels, 2)
	assert.Equal(t, "31405", label.Sublabels[0].ID)
}

func TestNormalizeMaster(t *testing.T) {
	doc := decodeDoc(t, `{
		"id": "18512",
		"title": "Selected Ambient Works 85-92",
		"year": "1992",
		"artists": {"artist": {"id": "100", "name": "Aphex Twin"}},
		"genres": {"genre": "Electronic"},
		"styles": {"style": ["Ambient", "Techno"]}
	}`)

	norm := NormalizeRecord(KindMasters, doc)
	master := MasterDocFrom(norm)

	assert.Equal(t, "18512", master.ID)
	assert.Equal(t, "Selected Ambient Works 85-92", master.Title)
	assert.Equal(t, 1992, master.Year)
	require.Len(t, master.Artists, 1)
	assert.Equal(t, "100", master.Artists[0].ID)
	assert.Equal(t, []string{"Electronic"}, master.Genres)
	assert.Equal(t, []string{"Ambient", "Techno"}, master.Styles)
}

func TestNormalizeMaster_NumericYear(t *testing.T) {
	doc := decodeDoc(t, `{"id": "1", "title": "X", "year": 1994}`)

	master := MasterDocFrom(NormalizeRecord(KindMasters, doc))
	assert.Equal(t, 1994, master.Year)
}

func TestNormalizeRelease(t *testing.T) {
	doc := decodeDoc(t, `{
		"@id": "249504",
		"title": "Nevermind",
		"country": "US",
		"released": "1991-09-24",
		"master_id": {"#text": "13814", "@is_main_release": "true"},
		"artists": {"artist": [{"id": "125246", "name": "Nirvana"}]},
		"labels": {"label": {"@id": "1866", "#text": "DGC"}},
		"genres": {"genre": "Rock"},
		"styles": {"style": ["Grunge", "Alternative Rock"]},
		"formats": {"format": {"@name": "CD", "@qty": "1"}}
	}`)

	norm := NormalizeRecord(KindReleases, doc)
	release := ReleaseDocFrom(norm)

	assert.Equal(t, "249504", release.ID)
	assert.Equal(t, "Nevermind", release.Title)
	assert.Equal(t, 1991, release.Year)
	assert.Equal(t, "US", release.Country)
	assert.Equal(t, "13814", release.MasterID)
	assert.Equal(t, "CD", release.Format)
	require.Len(t, release.Artists, 1)
	assert.Equal(t, "125246", release.Artists[0].ID)
	require.Len(t, release.Labels, 1)
	assert.Equal(t, "1866", release.Labels[0].ID)
	assert.Equal(t, []string{"Rock"}, release.Genres)
	assert.Equal(t, []string{"Grunge", "Alternative Rock"}, release.Styles)
}

func TestNormalizeRelease_PlainMasterID(t *testing.T) {
	doc := decodeDoc(t, `{"id": "1", "title": "X", "master_id": 13814}`)

	release := ReleaseDocFrom(NormalizeRecord(KindReleases, doc))
	assert.Equal(t, "13814", release.MasterID)
}

func TestYearFromReleased(t *testing.T) {
	testCases := []struct {
		released string
		year     int
	}{
		{"1994-03-08", 1994},
		{"1994", 1994},
		{"199", 0},
		{"", 0},
		{"unknown", 0},
		{"0000-00-00", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.released, func(t *testing.T) {
			assert.Equal(t, tc.year, yearFromReleased(tc.released))
		})
	}
}

func TestFormatNames_DeduplicatesAcrossEntries(t *testing.T) {
	doc := decodeDoc(t, `{
		"formats": {"format": [
			{"@name": "Vinyl", "@qty": "2"},
			{"@name": "Vinyl", "@qty": "1"},
			{"name": "CD"}
		]}
	}`)

	assert.Equal(t, "Vinyl, CD", formatNames(doc["formats"]))
}

func TestParseEntityKind(t *testing.T) {
	kind, ok := ParseEntityKind("artists")
	assert.True(t, ok)
	assert.Equal(t, KindArtists, kind)
	assert.Equal(t, "Artist", kind.NodeLabel())
	assert.Equal(t, "artists", kind.Table())

	_, ok = ParseEntityKind("podcasts")
	assert.False(t, ok)
}
