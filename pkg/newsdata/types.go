package newsdata

import "encoding/json"

// Article is one news item. Fields the API reported as null are empty.
type Article struct {
	ID          string
	Title       string
	Description string
	Link        string
	PubDate     string // as reported, e.g. "2024-05-01 12:00:00"
	Source      string
}

// NewsResponse is the envelope of /api/1/news. On errors the API puts an
// object instead of a list in results, so it is decoded lazily.
type NewsResponse struct {
	Status       string          `json:"status"` // "success" or "error"
	TotalResults int             `json:"totalResults"`
	Results      json.RawMessage `json:"results"`
	NextPage     string          `json:"nextPage"`
}

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type rawArticle struct {
	ArticleID   *string `json:"article_id"`
	Title       *string `json:"title"`
	Link        *string `json:"link"`
	Description *string `json:"description"`
	PubDate     *string `json:"pubDate"`
	SourceID    *string `json:"source_id"`
}
