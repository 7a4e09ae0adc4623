package model

const (
	LibraryItemStateNormal  = 1
	LibraryItemStateDeleted = 2
)

// LibraryItem is one entry in the content library: a pre-approved marketing
// example or a compliance rule. The library is the source of truth both
// search indexes are built from.
type LibraryItem struct {
	ID           string   `json:"id"`
	Corpus       Corpus   `json:"corpus"`
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	ContentType  string   `json:"content_type"`
	AudienceType string   `json:"audience_type"`
	Tags         []string `json:"tags"`
	ContentHash  string   `json:"content_hash"`
	State        int      `json:"state"`
	Ctime        int64    `json:"ctime"`
	Mtime        int64    `json:"mtime"`
}

type LibraryEmbedding struct {
	ItemID      string    `json:"item_id"`
	Corpus      Corpus    `json:"corpus"`
	Embedding   []float32 `json:"embedding"`
	ContentHash string    `json:"content_hash"`
	Mtime       int64     `json:"mtime"`
}
