package types

import "time"

// Pagination is the paging envelope Discogs wraps around list responses.
type Pagination struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"per_page"`
	Items   int `json:"items"`
}

// Identity is the response from GET /oauth/identity.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Resource string `json:"resource_url,omitempty"`
	Consumer string `json:"consumer_name,omitempty"`
}

// ItemArtist is an artist credit inside basic_information.
type ItemArtist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	ANV  string `json:"anv,omitempty"`
	Join string `json:"join,omitempty"`
}

// ItemLabel is a label credit inside basic_information.
type ItemLabel struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	CatNo string `json:"catno,omitempty"`
}

// ItemFormat is a physical format entry inside basic_information.
type ItemFormat struct {
	Name         string   `json:"name"`
	Qty          string   `json:"qty,omitempty"`
	Descriptions []string `json:"descriptions,omitempty"`
}

// BasicInformation is the release summary Discogs embeds in collection
// and wantlist items.
type BasicInformation struct {
	ID      int64        `json:"id"`
	Title   string       `json:"title"`
	Year    int          `json:"year,omitempty"`
	Artists []ItemArtist `json:"artists,omitempty"`
	Labels  []ItemLabel  `json:"labels,omitempty"`
	Formats []ItemFormat `json:"formats,omitempty"`
	Genres  []string     `json:"genres,omitempty"`
	Styles  []string     `json:"styles,omitempty"`
}

// PrimaryArtist returns the first credited artist name, or "".
func (b BasicInformation) PrimaryArtist() string {
	if len(b.Artists) == 0 {
		return ""
	}
	return b.Artists[0].Name
}

// PrimaryLabel returns the first credited label name, or "".
func (b BasicInformation) PrimaryLabel() string {
	if len(b.Labels) == 0 {
		return ""
	}
	return b.Labels[0].Name
}

// PrimaryFormat returns the first format name, or "".
func (b BasicInformation) PrimaryFormat() string {
	if len(b.Formats) == 0 {
		return ""
	}
	return b.Formats[0].Name
}

// CollectionItem is one entry from GET /users/{u}/collection/folders/0/releases.
// The release id lives at basic_information.id, not the top level.
type CollectionItem struct {
	ID         int64            `json:"id"`
	InstanceID int64            `json:"instance_id"`
	FolderID   int64            `json:"folder_id"`
	Rating     int              `json:"rating"`
	DateAdded  *time.Time       `json:"date_added,omitempty"`
	Basic      BasicInformation `json:"basic_information"`
}

// CollectionPage is one page of collection results.
type CollectionPage struct {
	Pagination Pagination       `json:"pagination"`
	Releases   []CollectionItem `json:"releases"`
}

// WantlistItem is one entry from GET /users/{u}/wants. Unlike collection
// items the release id is top-level here.
type WantlistItem struct {
	ID        int64            `json:"id"`
	Rating    int              `json:"rating"`
	Notes     string           `json:"notes,omitempty"`
	DateAdded *time.Time       `json:"date_added,omitempty"`
	Basic     BasicInformation `json:"basic_information"`
}

// WantlistPage is one page of wantlist results.
type WantlistPage struct {
	Pagination Pagination     `json:"pagination"`
	Wants      []WantlistItem `json:"wants"`
}

// CollectionValue is the response from GET /users/{u}/collection/value.
// Values arrive as currency-formatted strings like "$1,234.56".
type CollectionValue struct {
	Minimum string `json:"minimum"`
	Median  string `json:"median"`
	Maximum string `json:"maximum"`
}

// RequestToken is the result of the OAuth request-token step.
type RequestToken struct {
	Token  string
	Secret string
}

// AccessToken is the result of the OAuth verifier exchange.
type AccessToken struct {
	Token  string
	Secret string
}
