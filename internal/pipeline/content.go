// Package pipeline extracts content objects from the hosting CMS, builds
// candidate JSON-LD records for them, and pushes the records through the
// sync API in paced batches.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
)

const contentTimeout = 30 * time.Second

// RenderedText is WordPress's rendered-field wrapper.
type RenderedText struct {
	Rendered string `json:"rendered"`
}

type Media struct {
	SourceURL string `json:"source_url"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

type Term struct {
	Name string `json:"name"`
}

type User struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

// Embedded carries the _embed expansions the extraction requests.
type Embedded struct {
	Author        []User   `json:"author"`
	FeaturedMedia []Media  `json:"wp:featuredmedia"`
	Terms         [][]Term `json:"wp:term"`
}

type Post struct {
	ID            int64        `json:"id"`
	Date          string       `json:"date"`
	Modified      string       `json:"modified"`
	Link          string       `json:"link"`
	Title         RenderedText `json:"title"`
	FeaturedMedia int64        `json:"featured_media"`
	Embedded      *Embedded    `json:"_embedded,omitempty"`
}

// ContentClient reads content objects from the hosting CMS's REST API.
// Fetched collections are cached so a run that touches the same endpoint
// twice does not refetch it.
type ContentClient struct {
	client   *http.Client
	baseURL  string
	username string
	password string
	pageSize int
	cache    *cache.Cache
}

func NewContentClient(baseURL string, pageSize int, username, password string) *ContentClient {
	return &ContentClient{
		client:   &http.Client{Timeout: contentTimeout},
		baseURL:  baseURL,
		username: username,
		password: password,
		pageSize: pageSize,
		cache:    cache.New(10*time.Minute, 15*time.Minute),
	}
}

func (c *ContentClient) FetchPosts(ctx context.Context) ([]Post, error) {
	return fetchAll[Post](ctx, c, "/posts", url.Values{
		"_embed": {"true"},
		"status": {"publish"},
	})
}

func (c *ContentClient) FetchPages(ctx context.Context) ([]Post, error) {
	return fetchAll[Post](ctx, c, "/pages", url.Values{
		"_embed": {"true"},
		"status": {"publish"},
	})
}

func (c *ContentClient) FetchUsers(ctx context.Context) ([]User, error) {
	return fetchAll[User](ctx, c, "/users", url.Values{})
}

// fetchAll follows pagination to exhaustion: fixed page size, incrementing
// the page number until an empty page. A non-success response means "no more
// pages", not a hard failure.
func fetchAll[T any](ctx context.Context, c *ContentClient, path string, params url.Values) ([]T, error) {
	cacheKey := path
	if x, found := c.cache.Get(cacheKey); found {
		return x.([]T), nil
	}

	params.Set("per_page", strconv.Itoa(c.pageSize))

	var all []T
	for page := 1; ; page++ {
		params.Set("page", strconv.Itoa(page))

		items, err := fetchPage[T](ctx, c, path, params)
		if err != nil {
			return nil, err
		}
		if items == nil {
			slog.Debug(
				"content endpoint exhausted",
				slog.String("path", path),
				slog.Int("pages", page-1),
				slog.String("module", "pipeline"),
			)
			break
		}
		if len(items) == 0 {
			break
		}
		all = append(all, items...)
	}

	slog.Info(
		"fetched content objects",
		slog.String("path", path),
		slog.Int("count", len(all)),
		slog.String("module", "pipeline"),
	)

	c.cache.Set(cacheKey, all, cache.DefaultExpiration)
	return all, nil
}

// fetchPage returns a nil slice on a non-success status, which callers treat
// as the end of the data.
func fetchPage[T any](ctx context.Context, c *ContentClient, path string, params url.Values) ([]T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn(
			"content endpoint returned non-success, stopping pagination",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("module", "pipeline"),
		)
		return nil, nil
	}

	items := []T{}
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode response: %v", err)
	}
	return items, nil
}
