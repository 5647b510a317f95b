package nicotine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Client talks to a Nicotine++ web API instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a client for the API at baseURL, e.g. "http://localhost:8000".
func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// SearchParams control a single backend search.
type SearchParams struct {
	Term             string
	WaitSeconds      int
	MinBitrate       int
	RequireFreeSlots bool
}

type searchFilters struct {
	MinBitrate       int  `json:"min_bitrate"`
	RequireFreeSlots bool `json:"require_free_slots"`
}

type searchRequest struct {
	SearchTerm     string         `json:"search_term"`
	WaitForSeconds int            `json:"wait_for_seconds"`
	SearchFilters  *searchFilters `json:"search_filters,omitempty"`
}

type downloadRequest struct {
	FileOwner       string         `json:"file_owner"`
	FileVirtualPath string         `json:"file_virtual_path"`
	FileSize        int64          `json:"file_size"`
	FileAttributes  map[string]any `json:"file_attributes,omitempty"`
}

// Health checks that the backend is reachable and answering.
func (c *Client) Health(ctx context.Context) error {
	body, err := c.do(ctx, http.MethodGet, "/foo", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var msg struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &msg); err != nil || msg.Message == "" {
		return fmt.Errorf("%w: unexpected health response %q", ErrUnavailable, truncate(body, 80))
	}
	return nil
}

// Search runs one fuzzy search on the backend and returns the raw results.
// A rejected search returns ErrSearchRejected; a malformed response is logged
// and yields zero results.
func (c *Client) Search(ctx context.Context, params SearchParams) ([]SearchResult, error) {
	req := searchRequest{
		SearchTerm:     params.Term,
		WaitForSeconds: params.WaitSeconds,
		SearchFilters: &searchFilters{
			MinBitrate:       params.MinBitrate,
			RequireFreeSlots: params.RequireFreeSlots,
		},
	}
	body, err := c.do(ctx, http.MethodGet, "/search/global", req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", params.Term, err)
	}
	return c.decodeSearchResponse(params.Term, body)
}

// decodeSearchResponse handles the three shapes the backend answers with: a
// bare string message, a result list, or an object wrapping a result list.
func (c *Client) decodeSearchResponse(term string, body []byte) ([]SearchResult, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		c.log.Warn("empty search response", "term", term)
		return nil, nil
	}

	switch trimmed[0] {
	case '"':
		var msg string
		if err := json.Unmarshal(trimmed, &msg); err != nil {
			c.log.Warn("unparseable search response", "term", term, "body", truncate(trimmed, 120))
			return nil, nil
		}
		if strings.Contains(msg, "Too many simultaneous searches") {
			return nil, fmt.Errorf("%w: %s", ErrSearchRejected, msg)
		}
		c.log.Debug("search returned message", "term", term, "message", msg)
		return nil, nil

	case '[':
		var results []SearchResult
		if err := json.Unmarshal(trimmed, &results); err != nil {
			c.log.Warn("malformed search result list", "term", term, "error", err)
			return nil, nil
		}
		return results, nil

	case '{':
		var envelope struct {
			Results []SearchResult `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			c.log.Warn("malformed search result envelope", "term", term, "error", err)
			return nil, nil
		}
		return envelope.Results, nil
	}

	c.log.Warn("unrecognized search response", "term", term, "body", truncate(trimmed, 120))
	return nil, nil
}

// FilterOptions control the client-side filtering and ordering applied by
// SearchAndFilter on top of the backend's own filters.
type FilterOptions struct {
	MinBitrate       int
	MaxFileSizeMB    float64
	MinSimilarity    float64
	RequireFreeSlots bool
	Extensions       []string
	Includes         []string
	Excludes         []string
	SortBy           SortKey
	Limit            int
}

// SearchAndFilter runs a search and post-processes the results: extension,
// size, bitrate, free-slot, similarity and term filters, then sorting and an
// optional result limit. The bitrate and free-slot filters are applied again
// client-side in case the backend ignored its search_filters. Results without
// a reported bitrate pass the bitrate filter.
func (c *Client) SearchAndFilter(ctx context.Context, term string, waitSeconds int, opts FilterOptions) ([]SearchResult, error) {
	results, err := c.Search(ctx, SearchParams{
		Term:             term,
		WaitSeconds:      waitSeconds,
		MinBitrate:       opts.MinBitrate,
		RequireFreeSlots: opts.RequireFreeSlots,
	})
	if err != nil {
		return nil, err
	}

	results = Filter(results, opts)
	Sort(results, opts.SortBy)
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// Filter applies the client-side filters from opts and returns the survivors
// in their original order.
func Filter(results []SearchResult, opts FilterOptions) []SearchResult {
	extensions := make(map[string]bool, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		extensions[strings.TrimPrefix(strings.ToLower(ext), ".")] = true
	}

	var kept []SearchResult
	for _, r := range results {
		if len(extensions) > 0 && !extensions[strings.TrimPrefix(strings.ToLower(r.FileExt), ".")] {
			continue
		}
		if opts.MaxFileSizeMB > 0 && r.FileSizeMB() > opts.MaxFileSizeMB {
			continue
		}
		if opts.MinBitrate > 0 && r.Bitrate != nil && *r.Bitrate < opts.MinBitrate {
			continue
		}
		if opts.RequireFreeSlots && !r.HasFreeSlots {
			continue
		}
		if r.Similarity < opts.MinSimilarity {
			continue
		}
		if !matchesTerms(r, opts.Includes, opts.Excludes) {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func matchesTerms(r SearchResult, includes, excludes []string) bool {
	text := r.matchText()
	for _, term := range includes {
		if !strings.Contains(text, strings.ToLower(term)) {
			return false
		}
	}
	for _, term := range excludes {
		if strings.Contains(text, strings.ToLower(term)) {
			return false
		}
	}
	return true
}

// Sort orders results in place by the given key. Numeric keys sort
// descending, user and file name sort ascending. The sort is stable, and an
// empty key sorts by similarity.
func Sort(results []SearchResult, key SortKey) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		switch key {
		case SortByBitrate:
			return a.BitrateOrZero() > b.BitrateOrZero()
		case SortByFileSize:
			return a.FileSize > b.FileSize
		case SortByUser:
			return a.User < b.User
		case SortByFileName:
			return a.FileName < b.FileName
		default:
			return a.Similarity > b.Similarity
		}
	})
}

// Download asks the backend to queue the given search result and returns the
// backend's status message.
func (c *Client) Download(ctx context.Context, r SearchResult) (string, error) {
	req := downloadRequest{
		FileOwner:       r.User,
		FileVirtualPath: r.FilePath,
		FileSize:        r.FileSize,
		FileAttributes:  r.Attributes,
	}
	body, err := c.do(ctx, http.MethodGet, "/download", req)
	if err != nil {
		return "", fmt.Errorf("%w: %s from %s: %v", ErrDownloadRejected, r.FileName, r.User, err)
	}

	var msg string
	if err := json.Unmarshal(bytes.TrimSpace(body), &msg); err != nil {
		msg = string(bytes.TrimSpace(body))
	}
	return msg, nil
}

// Downloads lists every transfer the backend currently knows about.
func (c *Client) Downloads(ctx context.Context) ([]DownloadInfo, error) {
	body, err := c.do(ctx, http.MethodGet, "/download/getdownloads", nil)
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] == '"' {
		return nil, nil
	}
	var downloads []DownloadInfo
	if err := json.Unmarshal(trimmed, &downloads); err != nil {
		return nil, fmt.Errorf("parse downloads: %w", err)
	}
	return downloads, nil
}

// ActiveDownloads lists transfers that are still pending or running.
func (c *Client) ActiveDownloads(ctx context.Context) ([]DownloadInfo, error) {
	downloads, err := c.Downloads(ctx)
	if err != nil {
		return nil, err
	}
	var active []DownloadInfo
	for _, d := range downloads {
		if d.IsActive() {
			active = append(active, d)
		}
	}
	return active, nil
}

// Clean removes finished and cancelled transfers from the backend's list and
// returns its status message.
func (c *Client) Clean(ctx context.Context) (string, error) {
	body, err := c.do(ctx, http.MethodDelete, "/download/abortandclean", nil)
	if err != nil {
		return "", fmt.Errorf("clean downloads: %w", err)
	}
	var msg string
	if err := json.Unmarshal(bytes.TrimSpace(body), &msg); err != nil {
		msg = string(bytes.TrimSpace(body))
	}
	return msg, nil
}

// WaitOptions control WaitForDownloads polling.
type WaitOptions struct {
	Timeout  time.Duration
	Interval time.Duration
	Cleanup  bool
}

// WaitForDownloads polls the backend until no active transfers remain, the
// timeout expires, or ctx is cancelled. It returns the transfers still active
// at the end; a timeout is reported as an error alongside them.
func (c *Client) WaitForDownloads(ctx context.Context, opts WaitOptions) ([]DownloadInfo, error) {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	deadline := time.Now().Add(opts.Timeout)

	for {
		active, err := c.ActiveDownloads(ctx)
		if err != nil {
			return nil, err
		}
		if len(active) == 0 {
			if opts.Cleanup {
				if _, err := c.Clean(ctx); err != nil {
					c.log.Warn("cleanup after wait failed", "error", err)
				}
			}
			return nil, nil
		}
		if opts.Timeout > 0 && time.Now().After(deadline) {
			return active, fmt.Errorf("wait for downloads: %d still active after %s", len(active), opts.Timeout)
		}

		c.log.Debug("downloads still active", "count", len(active))
		select {
		case <-ctx.Done():
			return active, ctx.Err()
		case <-time.After(opts.Interval):
		}
	}
}

// do sends one request with an optional JSON body and returns the response
// body. Non-2xx statuses are errors carrying the backend's message.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(data, 120))
	}
	return data, nil
}

func truncate(b []byte, n int) string {
	s := string(b)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
