package types

import "time"

// UnknownTitle is used when a page has no usable title.
const UnknownTitle = "未知标题"

// FetchedDocument is a successfully fetched page. Content is never empty:
// a page with no usable text is a fetch failure and never becomes a document.
type FetchedDocument struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	FetchedAt time.Time `json:"fetched_at"`
}
