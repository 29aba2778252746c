package types

// ExploreType identifies the node families the explore endpoints accept.
type ExploreType string

const (
	ExploreArtist  ExploreType = "artist"
	ExploreGenre   ExploreType = "genre"
	ExploreLabel   ExploreType = "label"
	ExploreStyle   ExploreType = "style"
	ExploreRelease ExploreType = "release"
)

// ParseExploreType validates a type query param. Release nodes are only
// addressable through the details endpoint.
func ParseExploreType(s string, allowRelease bool) (ExploreType, bool) {
	switch ExploreType(s) {
	case ExploreArtist, ExploreGenre, ExploreLabel, ExploreStyle:
		return ExploreType(s), true
	case ExploreRelease:
		return ExploreRelease, allowRelease
	default:
		return "", false
	}
}

// AutocompleteResult is one suggestion row.
type AutocompleteResult struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// ExploreCenter is the node an explore view is anchored on.
type ExploreCenter struct {
	ID   string      `json:"id"`
	Name string      `json:"name"`
	Type ExploreType `json:"type"`
}

// ExploreCategory is a synthetic child bucket with a total count, expanded
// lazily through the expand endpoint.
type ExploreCategory struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// ExploreResponse is the center-plus-categories envelope.
type ExploreResponse struct {
	Center     ExploreCenter     `json:"center"`
	Categories []ExploreCategory `json:"categories"`
}

// ExpandResponse is one page of category children. Child shapes vary by
// category (releases carry year, labels carry release_count), so rows stay
// as raw maps from the graph query.
type ExpandResponse struct {
	Children []map[string]any `json:"children"`
	Total    int64            `json:"total"`
	Offset   int              `json:"offset"`
	Limit    int              `json:"limit"`
	HasMore  bool             `json:"has_more"`
}

// TrendPoint is one year bucket in a release-count time series.
type TrendPoint struct {
	Year  int64 `json:"year"`
	Count int64 `json:"count"`
}

// TrendsResponse is the release-count-by-year series for a node.
type TrendsResponse struct {
	Name string       `json:"name"`
	Type ExploreType  `json:"type"`
	Data []TrendPoint `json:"data"`
}

// UserReleaseRow is one collection or wantlist entry joined against the
// catalog graph. FolderID is only populated for collection rows.
type UserReleaseRow struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Year      *int64 `json:"year"`
	Artist    string `json:"artist"`
	Label     string `json:"label"`
	Rating    int64  `json:"rating"`
	DateAdded string `json:"date_added"`
	FolderID  *int64 `json:"folder_id,omitempty"`
}

// UserReleasesResponse is one cursor-paged slice of a user view.
type UserReleasesResponse struct {
	Releases   []UserReleaseRow `json:"releases"`
	Total      int64            `json:"total"`
	Offset     int              `json:"offset"`
	Limit      int              `json:"limit"`
	HasMore    bool             `json:"has_more"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// RecommendationRow is one suggested release with its affinity score.
type RecommendationRow struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Year   *int64   `json:"year"`
	Artist string   `json:"artist"`
	Label  string   `json:"label"`
	Genres []string `json:"genres"`
	Score  int64    `json:"score"`
}

// RecommendationsResponse wraps the scored suggestions.
type RecommendationsResponse struct {
	Recommendations []RecommendationRow `json:"recommendations"`
	Total           int                 `json:"total"`
}

// ArtistCount is one top-artists stats row.
type ArtistCount struct {
	Artist string `json:"artist"`
	Count  int64  `json:"count"`
}

// ValueSummary is the Discogs marketplace estimate for a collection.
type ValueSummary struct {
	Minimum  string `json:"minimum"`
	Median   string `json:"median"`
	Maximum  string `json:"maximum"`
	Currency string `json:"currency"`
}

// CollectionStats is the aggregate view over a user's collection.
type CollectionStats struct {
	TotalItems     int64         `json:"total_items"`
	UniqueReleases int64         `json:"unique_releases"`
	TopArtists     []ArtistCount `json:"top_artists"`
	Value          *ValueSummary `json:"value,omitempty"`
}

// ReleaseStatus reports whether one release id is in the requesting user's
// collection or wantlist.
type ReleaseStatus struct {
	InCollection bool `json:"in_collection"`
	InWantlist   bool `json:"in_wantlist"`
}
