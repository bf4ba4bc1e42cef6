// Package search finds links by name or URL. Meilisearch serves queries when
// it is reachable; otherwise a Postgres pattern query answers directly from
// the primary store.
package search

// Query is a scoped search request. UserID is mandatory: results never cross
// the ownership boundary.
type Query struct {
	UserID int64
	Text   string
	Limit  int
}

// Result is one matching link.
type Result struct {
	LinkID     int64  `json:"linkId"`
	CategoryID int64  `json:"categoryId"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	Icon       string `json:"icon"`
}

// LinkRecord is the indexed shape of a link.
type LinkRecord struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"userId"`
	CategoryID int64  `json:"categoryId"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	Icon       string `json:"icon"`
}

// Response is the caller-facing search payload.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}
