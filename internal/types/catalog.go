package types

// EntityKind identifies one of the four catalog streams flowing through the
// message bus. The string value doubles as routing-key prefix, queue suffix,
// and relational table name.
type EntityKind string

const (
	KindArtists  EntityKind = "artists"
	KindLabels   EntityKind = "labels"
	KindMasters  EntityKind = "masters"
	KindReleases EntityKind = "releases"
)

// EntityKinds lists every catalog stream a sink consumes.
var EntityKinds = []EntityKind{KindArtists, KindLabels, KindMasters, KindReleases}

// ParseEntityKind maps a routing-key prefix or table name onto its kind.
func ParseEntityKind(s string) (EntityKind, bool) {
	switch EntityKind(s) {
	case KindArtists, KindLabels, KindMasters, KindReleases:
		return EntityKind(s), true
	default:
		return "", false
	}
}

// NodeLabel returns the graph label for the kind.
func (k EntityKind) NodeLabel() string {
	switch k {
	case KindArtists:
		return "Artist"
	case KindLabels:
		return "Label"
	case KindMasters:
		return "Master"
	case KindReleases:
		return "Release"
	default:
		return ""
	}
}

// Table returns the relational table name for the kind.
func (k EntityKind) Table() string {
	return string(k)
}

// IDRef is a reference to another catalog entity by id, optionally carrying
// the display name the source document attached to it.
type IDRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ArtistDoc is the typed view of a normalized artist record.
type ArtistDoc struct {
	ID             string
	Name           string
	RealName       string
	Profile        string
	NameVariations []string
	Aliases        []IDRef
	Groups         []IDRef
	Members        []IDRef
	Genres         []string
	Styles         []string
}

// LabelDoc is the typed view of a normalized label record.
type LabelDoc struct {
	ID          string
	Name        string
	Profile     string
	ContactInfo string
	ParentLabel *IDRef
	Sublabels   []IDRef
}

// MasterDoc is the typed view of a normalized master record.
type MasterDoc struct {
	ID      string
	Title   string
	Year    int
	Artists []IDRef
	Genres  []string
	Styles  []string
}

// ReleaseDoc is the typed view of a normalized release record.
type ReleaseDoc struct {
	ID       string
	Title    string
	Year     int
	Country  string
	Format   string
	MasterID string
	Artists  []IDRef
	Labels   []IDRef
	Genres   []string
	Styles   []string
}

// ChangeType classifies what a sink write did to a record.
type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// ChangeEvent is the compact notification published to `{type}.changes`
// after a sink applies a non-skip write.
type ChangeEvent struct {
	DataType        string     `json:"data_type"`
	RecordID        string     `json:"record_id"`
	ChangeType      ChangeType `json:"change_type"`
	ProcessingRunID string     `json:"processing_run_id"`
	Timestamp       string     `json:"timestamp"`
}
