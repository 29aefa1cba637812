package model

// AuthorUnknown is the sentinel author used when a poem carries no
// attribution (anonymous ritual hymns, court music lyrics, etc.).
const AuthorUnknown = "佚名"

// Record is one extracted poem. Immutable once produced by the extractor.
type Record struct {
	Volume int    `json:"volume"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Body   string `json:"body"`
}
