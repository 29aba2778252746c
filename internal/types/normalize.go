package types

import (
	"strconv"
	"strings"

	"waxworks/internal/utils"
)

// Upstream publishers disagree about encoding: one emits xmltodict-style
// documents ("@id" attributes, "#text" content, single objects where lists
// are expected), the other emits plain JSON. NormalizeRecord folds both into
// one shape so the sinks and the stored documents never see the difference:
// ids live under "id" as strings, list fields are always arrays, attribute
// keys lose their "@" prefix.
func NormalizeRecord(kind EntityKind, doc map[string]any) map[string]any {
	switch kind {
	case KindArtists:
		return normalizeArtist(doc)
	case KindLabels:
		return normalizeLabel(doc)
	case KindMasters:
		return normalizeMaster(doc)
	case KindReleases:
		return normalizeRelease(doc)
	default:
		return doc
	}
}

func normalizeArtist(doc map[string]any) map[string]any {
	result := map[string]any{
		"id":   normalizeID(doc["id"], doc["@id"]),
		"name": normalizeText(doc["name"]),
	}

	if members := refItems(doc["members"], "name"); len(members) > 0 {
		result["members"] = members
	}
	if groups := refItems(doc["groups"], "name"); len(groups) > 0 {
		result["groups"] = groups
	}
	if aliases := refItems(doc["aliases"], "name"); len(aliases) > 0 {
		result["aliases"] = aliases
	}
	if variations := stringItems(doc["namevariations"], "name"); len(variations) > 0 {
		result["namevariations"] = variations
	}
	if genres := stringItems(doc["genres"], "genre"); len(genres) > 0 {
		result["genres"] = genres
	}
	if styles := stringItems(doc["styles"], "style"); len(styles) > 0 {
		result["styles"] = styles
	}

	copyFields(doc, result, "realname", "profile", "data_quality", "urls")
	return result
}

func normalizeLabel(doc map[string]any) map[string]any {
	result := map[string]any{
		"id":   normalizeID(doc["id"], doc["@id"]),
		"name": normalizeText(doc["name"]),
	}

	if parent := refItem(doc["parentLabel"]); parent != nil {
		result["parentLabel"] = parent
	}
	if sublabels := refItems(doc["sublabels"], "label"); len(sublabels) > 0 {
		result["sublabels"] = sublabels
	}

	copyFields(doc, result, "profile", "contactinfo", "data_quality", "urls")
	return result
}

func normalizeMaster(doc map[string]any) map[string]any {
	result := map[string]any{
		"id":    normalizeID(doc["id"], doc["@id"]),
		"title": normalizeText(doc["title"]),
	}

	if year, ok := doc["year"]; ok {
		result["year"] = year
	}
	if artists := refItems(doc["artists"], "artist"); len(artists) > 0 {
		result["artists"] = artists
	}
	if genres := stringItems(doc["genres"], "genre"); len(genres) > 0 {
		result["genres"] = genres
	}
	if styles := stringItems(doc["styles"], "style"); len(styles) > 0 {
		result["styles"] = styles
	}

	copyFields(doc, result, "main_release", "notes", "data_quality", "videos")
	return result
}

func normalizeRelease(doc map[string]any) map[string]any {
	result := map[string]any{
		"id":    normalizeID(doc["id"], doc["@id"]),
		"title": normalizeText(doc["title"]),
	}

	if artists := refItems(doc["artists"], "artist"); len(artists) > 0 {
		result["artists"] = artists
	}
	if labels := refItems(doc["labels"], "label"); len(labels) > 0 {
		result["labels"] = labels
	}
	if masterID := normalizeID(doc["master_id"], nil); masterID != "" {
		result["master_id"] = masterID
	}
	if genres := stringItems(doc["genres"], "genre"); len(genres) > 0 {
		result["genres"] = genres
	}
	if styles := stringItems(doc["styles"], "style"); len(styles) > 0 {
		result["styles"] = styles
	}

	copyFields(doc, result,
		"released", "country", "notes", "data_quality",
		"formats", "tracklist", "identifiers", "videos", "companies")
	return result
}

// normalizeID extracts an id from a value that may be a string, a number, or
// an object carrying "id"/"@id"/"#text". Numeric ids are stringified.
func normalizeID(value, attrValue any) string {
	if value == nil {
		value = attrValue
	}
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case map[string]any:
		if id := normalizeID(v["id"], v["@id"]); id != "" {
			return id
		}
		return normalizeID(v["#text"], nil)
	default:
		return ""
	}
}

// normalizeText extracts display text from a string or an object with
// "#text" content, cleaning any invalid UTF-8 on the way out.
func normalizeText(value any) string {
	switch v := value.(type) {
	case string:
		cleaned, _ := utils.CleanUTF8(v)
		return cleaned
	case map[string]any:
		return normalizeText(v["#text"])
	default:
		return ""
	}
}

func ensureList(value any) []any {
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		return v
	default:
		return []any{v}
	}
}

// nestedList unwraps container shapes like {"artist": [...]} or
// {"artist": {...}} down to a flat slice. Already-flat lists pass through.
func nestedList(container any, key string) []any {
	switch v := container.(type) {
	case nil:
		return nil
	case []any:
		return v
	case map[string]any:
		return ensureList(v[key])
	default:
		return nil
	}
}

// refItem converts one referenced entity into {"id": ..., "name": ...} form.
// Returns nil when no id can be found, which drops the reference.
func refItem(item any) map[string]any {
	switch v := item.(type) {
	case nil:
		return nil
	case string:
		return map[string]any{"id": v}
	case float64, int, int64:
		return map[string]any{"id": normalizeID(v, nil)}
	case map[string]any:
		result := map[string]any{}
		if id := normalizeID(v["id"], v["@id"]); id != "" {
			result["id"] = id
		}
		if text := normalizeText(v["#text"]); text != "" {
			result["name"] = text
		}
		for key, value := range v {
			if key == "id" || key == "@id" || key == "#text" {
				continue
			}
			result[strings.TrimPrefix(key, "@")] = value
		}
		if result["id"] == nil || result["id"] == "" {
			return nil
		}
		return result
	default:
		return nil
	}
}

func refItems(container any, key string) []map[string]any {
	var items []map[string]any
	for _, raw := range nestedList(container, key) {
		if item := refItem(raw); item != nil {
			items = append(items, item)
		}
	}
	return items
}

// stringItems flattens a genre/style style container into plain strings.
func stringItems(container any, key string) []string {
	var items []string
	for _, raw := range nestedList(container, key) {
		switch v := raw.(type) {
		case string:
			items = append(items, v)
		case map[string]any:
			if text := normalizeText(v); text != "" {
				items = append(items, text)
			}
		}
	}
	return items
}

func copyFields(src, dst map[string]any, keys ...string) {
	for _, key := range keys {
		if value, ok := src[key]; ok {
			dst[key] = value
		}
	}
}

// Typed views over normalized documents. The graph sink works from these
// rather than poking maps.

func ArtistDocFrom(norm map[string]any) *ArtistDoc {
	return &ArtistDoc{
		ID:             mapString(norm, "id"),
		Name:           mapString(norm, "name"),
		RealName:       mapString(norm, "realname"),
		Profile:        mapString(norm, "profile"),
		NameVariations: plainStrings(norm["namevariations"]),
		Aliases:        idRefs(norm["aliases"]),
		Groups:         idRefs(norm["groups"]),
		Members:        idRefs(norm["members"]),
		Genres:         plainStrings(norm["genres"]),
		Styles:         plainStrings(norm["styles"]),
	}
}

func LabelDocFrom(norm map[string]any) *LabelDoc {
	doc := &LabelDoc{
		ID:          mapString(norm, "id"),
		Name:        mapString(norm, "name"),
		Profile:     mapString(norm, "profile"),
		ContactInfo: mapString(norm, "contactinfo"),
		Sublabels:   idRefs(norm["sublabels"]),
	}
	if parent, ok := norm["parentLabel"].(map[string]any); ok {
		if id, ok := parent["id"].(string); ok && id != "" {
			doc.ParentLabel = &IDRef{ID: id, Name: stringOrEmpty(parent["name"])}
		}
	}
	return doc
}

func MasterDocFrom(norm map[string]any) *MasterDoc {
	return &MasterDoc{
		ID:      mapString(norm, "id"),
		Title:   mapString(norm, "title"),
		Year:    flexInt(norm["year"]),
		Artists: idRefs(norm["artists"]),
		Genres:  plainStrings(norm["genres"]),
		Styles:  plainStrings(norm["styles"]),
	}
}

func ReleaseDocFrom(norm map[string]any) *ReleaseDoc {
	return &ReleaseDoc{
		ID:       mapString(norm, "id"),
		Title:    mapString(norm, "title"),
		Year:     yearFromReleased(mapString(norm, "released")),
		Country:  mapString(norm, "country"),
		Format:   formatNames(norm["formats"]),
		MasterID: mapString(norm, "master_id"),
		Artists:  idRefs(norm["artists"]),
		Labels:   idRefs(norm["labels"]),
		Genres:   plainStrings(norm["genres"]),
		Styles:   plainStrings(norm["styles"]),
	}
}

func mapString(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		cleaned, _ := utils.CleanUTF8(s)
		return cleaned
	}
	return ""
}

func stringOrEmpty(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}

func idRefs(value any) []IDRef {
	var refs []IDRef
	for _, raw := range ensureList(value) {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		id, _ := item["id"].(string)
		if id == "" {
			continue
		}
		refs = append(refs, IDRef{ID: id, Name: stringOrEmpty(item["name"])})
	}
	return refs
}

func plainStrings(value any) []string {
	var items []string
	for _, raw := range ensureList(value) {
		if s, ok := raw.(string); ok && s != "" {
			items = append(items, s)
		}
	}
	return items
}

func flexInt(value any) int {
	switch v := value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return 0
}

// yearFromReleased pulls the year out of a free-form release date such as
// "1994-03-08" or "1994". Unparseable dates yield 0, which readers treat
// as unknown.
func yearFromReleased(released string) int {
	if len(released) < 4 {
		return 0
	}
	year, err := strconv.Atoi(released[:4])
	if err != nil || year <= 0 {
		return 0
	}
	return year
}

// formatNames joins the distinct format names of a release into the free
// text surfaced on the graph node, e.g. "Vinyl, CD".
func formatNames(formats any) string {
	seen := map[string]bool{}
	var names []string
	for _, raw := range nestedList(formats, "format") {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name := stringOrEmpty(item["name"])
		if name == "" {
			name = stringOrEmpty(item["@name"])
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}
