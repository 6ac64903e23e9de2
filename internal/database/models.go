package database

import "time"

// Gif is one uploaded media asset and its metadata.
type Gif struct {
	ID            int64     `json:"id"`
	UploaderID    int64     `json:"uploaderId"`
	UploaderName  string    `json:"uploaderUsername"`
	Filename      string    `json:"filename"`
	StoragePath   string    `json:"storagePath"`
	PreviewPath   string    `json:"previewPath"`
	FileSize      int64     `json:"fileSize"`
	Width         int       `json:"width"`
	Height        int       `json:"height"`
	FavoriteCount int       `json:"favoriteCount"`
	ViewCount     int       `json:"viewCount"`
	UploadedAt    time.Time `json:"uploadedAt"`
	Tags          []string  `json:"tags"`
}

// Tag is a canonical lowercase tag name with its usage counter. The
// usage counter always equals the number of gif_tags rows referencing
// the tag; it may sit at zero, rows are never pruned.
type Tag struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	UsageCount int       `json:"usageCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Account is a registered uploader.
type Account struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"-"`
	ShowSensitive bool      `json:"showSensitive"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Session is an authenticated account session.
type Session struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"accountId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// SortOrder selects the listing sort.
type SortOrder string

const (
	// SortRecent orders by upload time descending.
	SortRecent SortOrder = "recent"
	// SortPopular orders by favorite count descending, then upload time
	// descending.
	SortPopular SortOrder = "popular"
)

// ListFilter configures a gif listing query. Zero values mean "no
// constraint" for Tags and Search.
type ListFilter struct {
	// Tags restricts results to gifs carrying ALL of the given tags.
	Tags []string
	// Search matches any tag name or uploader username, case-insensitive
	// substring.
	Search string
	// Sort is SortRecent (default) or SortPopular.
	Sort SortOrder
	// IncludeSensitive controls whether gifs carrying a sensitive tag
	// appear in results. Populated from the account preference by the
	// boundary layer.
	IncludeSensitive bool

	Limit  int
	Offset int
}

// GifPage is one page of gifs plus the total count under the same
// filter, for pagination UIs.
type GifPage struct {
	Items  []Gif `json:"gifs"`
	Total  int   `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}
