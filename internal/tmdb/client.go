// Package tmdb queries The Movie Database for title metadata and search
// suggestions. All calls are best-effort: the bot works without an API key
// and treats every tmdb failure as "no metadata".
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const apiBase = "https://api.themoviedb.org/3"

type Client struct {
	apiKey string
	hc     *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey: strings.TrimSpace(apiKey),
		hc:     &http.Client{Timeout: 9 * time.Second},
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return c.apiKey != "" }

// Title is the metadata shown above a result list.
type Title struct {
	Name     string
	Year     string
	Rating   float64
	Overview string
	Poster   string
}

type searchResponse struct {
	Results []struct {
		MediaType    string  `json:"media_type"`
		Title        string  `json:"title"`
		Name         string  `json:"name"`
		Overview     string  `json:"overview"`
		PosterPath   string  `json:"poster_path"`
		ReleaseDate  string  `json:"release_date"`
		FirstAirDate string  `json:"first_air_date"`
		VoteAverage  float64 `json:"vote_average"`
	} `json:"results"`
}

// Lookup returns metadata for the best match of query, or nil when tmdb
// has nothing.
func (c *Client) Lookup(ctx context.Context, query string) (*Title, error) {
	titles, err := c.search(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	if len(titles) == 0 {
		return nil, nil
	}
	return &titles[0], nil
}

// Suggest implements the search suggester: it returns candidate titles for
// a query that matched nothing locally.
func (c *Client) Suggest(ctx context.Context, query string) ([]string, error) {
	titles, err := c.search(ctx, query, 5)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		out = append(out, t.Name)
	}
	return out, nil
}

func (c *Client) search(ctx context.Context, query string, limit int) ([]Title, error) {
	if c.apiKey == "" {
		return nil, nil
	}
	u, _ := url.Parse(apiBase + "/search/multi")
	q := u.Query()
	q.Set("api_key", c.apiKey)
	q.Set("query", query)
	q.Set("page", "1")
	q.Set("include_adult", "false")
	u.RawQuery = q.Encode()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("tmdb search status %d: %s", resp.StatusCode, string(body))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, err
	}

	out := make([]Title, 0, limit)
	for _, r := range sr.Results {
		if r.MediaType != "movie" && r.MediaType != "tv" {
			continue
		}
		name := r.Title
		date := r.ReleaseDate
		if r.MediaType == "tv" {
			name = r.Name
			date = r.FirstAirDate
		}
		if name == "" {
			continue
		}
		out = append(out, Title{
			Name:     name,
			Year:     yearOf(date),
			Rating:   r.VoteAverage,
			Overview: r.Overview,
			Poster:   posterURL(r.PosterPath),
		})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func yearOf(date string) string {
	if len(date) >= 4 {
		if _, err := strconv.Atoi(date[:4]); err == nil {
			return date[:4]
		}
	}
	return ""
}

func posterURL(path string) string {
	if path == "" {
		return ""
	}
	return "https://image.tmdb.org/t/p/w500" + path
}
