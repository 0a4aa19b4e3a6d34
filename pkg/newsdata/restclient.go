// Package newsdata is a minimal client for the NewsData.io latest news API.
package newsdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrMalformed is returned when the response body is not the documented shape.
var ErrMalformed = errors.New("newsdata: malformed response")

type RESTClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewRESTClient(baseURL, apiKey string, timeout time.Duration) *RESTClient {
	return &RESTClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Latest fetches recent articles matching query in language.
// Articles without a title or link are dropped.
func (c *RESTClient) Latest(ctx context.Context, query, language string) ([]Article, error) {
	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("q", query)
	if language != "" {
		params.Set("language", language)
	}
	endpoint := c.baseURL + "/api/1/news?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The URL carries the API key; keep it out of logs.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var rawResp NewsResponse
	decodeErr := json.Unmarshal(body, &rawResp)

	if resp.StatusCode != http.StatusOK || (decodeErr == nil && rawResp.Status != "success") {
		return nil, fmt.Errorf("newsdata error: status %d: %s", resp.StatusCode, errorMessage(rawResp, body))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrMalformed, decodeErr)
	}

	var raw []rawArticle
	if err := json.Unmarshal(rawResp.Results, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode results: %v", ErrMalformed, err)
	}

	articles := make([]Article, 0, len(raw))
	for _, r := range raw {
		a := Article{
			ID:          deref(r.ArticleID),
			Title:       strings.TrimSpace(deref(r.Title)),
			Description: strings.TrimSpace(deref(r.Description)),
			Link:        deref(r.Link),
			PubDate:     deref(r.PubDate),
			Source:      deref(r.SourceID),
		}
		if a.Title == "" || a.Link == "" {
			continue
		}
		articles = append(articles, a)
	}
	return articles, nil
}

func errorMessage(rawResp NewsResponse, body []byte) string {
	var apiErr apiError
	if len(rawResp.Results) > 0 && json.Unmarshal(rawResp.Results, &apiErr) == nil && apiErr.Message != "" {
		return apiErr.Message
	}
	if len(body) > 200 {
		return string(body[:200]) + "..."
	}
	return string(body)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
