// Package usajobs implements the upstream status probe against the
// USAJobs.gov Search API.
package usajobs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	logx "vacancywatch/pkg/logx"
)

const defaultBaseURL = "https://data.usajobs.gov/api/Search"

// Postings that are still accepting applications carry closing type "03"
// ("open until filled"); everything else is treated as not visible.
const openClosingType = "03"

// Search describes the tracked vacancy query. Zero-valued fields are
// omitted from the request.
type Search struct {
	Keyword        string
	LocationName   string
	Radius         int
	PayGradeLow    int
	ResultsPerPage int
}

type Config struct {
	AuthorizationKey string
	UserAgent        string
	BaseURL          string        // defaults to the public API
	RequestTimeout   time.Duration // defaults to 10s
}

type Client struct {
	http    *http.Client
	baseURL string
	authKey string
	agent   string
	log     logx.Logger
}

func NewClient(cfg Config, log logx.Logger) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: base,
		authKey: cfg.AuthorizationKey,
		agent:   cfg.UserAgent,
		log:     log,
	}
}

type searchResponse struct {
	SearchResult struct {
		SearchResultItems []resultItem `json:"SearchResultItems"`
	} `json:"SearchResult"`
}

type resultItem struct {
	MatchedObjectDescriptor struct {
		PositionTitle string `json:"PositionTitle"`
		UserArea      struct {
			Details struct {
				AnnouncementClosingType string `json:"AnnouncementClosingType"`
			} `json:"Details"`
		} `json:"UserArea"`
	} `json:"MatchedObjectDescriptor"`
}

// CheckPosting reports whether the tracked vacancy is currently visible.
// Any transport, status or decode failure is a probe error; callers skip the
// cycle and retry on the next tick.
func (c *Client) CheckPosting(ctx context.Context, q Search) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return false, fmt.Errorf("probe request: %w", err)
	}
	req.URL.RawQuery = queryParams(q).Encode()
	req.Header.Set("Authorization-Key", c.authKey)
	req.Header.Set("User-Agent", c.agent)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("probe call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("probe call failed with status %d", resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return false, fmt.Errorf("probe decode: %w", err)
	}

	open := countOpen(sr.SearchResult.SearchResultItems)
	c.log.Debug("probe completed",
		logx.Int("results", len(sr.SearchResult.SearchResultItems)),
		logx.Int("open", open),
	)
	return open > 0, nil
}

func countOpen(items []resultItem) int {
	n := 0
	for _, it := range items {
		if it.MatchedObjectDescriptor.UserArea.Details.AnnouncementClosingType == openClosingType {
			n++
		}
	}
	return n
}

func queryParams(q Search) url.Values {
	v := url.Values{}
	if q.Keyword != "" {
		v.Set("Keyword", q.Keyword)
	}
	if q.LocationName != "" {
		v.Set("LocationName", q.LocationName)
	}
	if q.Radius > 0 {
		v.Set("Radius", strconv.Itoa(q.Radius))
	}
	if q.PayGradeLow > 0 {
		v.Set("PayGradeLow", strconv.Itoa(q.PayGradeLow))
	}
	if q.ResultsPerPage > 0 {
		v.Set("ResultsPerPage", strconv.Itoa(q.ResultsPerPage))
	}
	return v
}
