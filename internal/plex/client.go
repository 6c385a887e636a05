// Package plex is a small client for the parts of the Plex Media Server API
// that label synchronization needs.
package plex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/javi11/labelsync/internal/labels"
)

const maxErrorBody = 512

// ErrSectionNotFound is returned when no TV library section matches the configured title.
var ErrSectionNotFound = errors.New("plex: tv library section not found")

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client talks to a single Plex Media Server.
type Client struct {
	baseURL string
	token   string
	section string
	http    HTTPDoer

	mu         sync.Mutex
	sectionKey string
}

// NewClient creates a Plex client. section is the title of the TV library to operate on.
func NewClient(baseURL, token, section string, httpClient HTTPDoer) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		section: section,
		http:    httpClient,
	}
}

// TestConnection checks that the server answers and accepts the token.
func (c *Client) TestConnection(ctx context.Context) error {
	var resp mediaContainer
	if err := c.doJSON(ctx, http.MethodGet, "/identity", nil, &resp); err != nil {
		return fmt.Errorf("plex identity check failed: %w", err)
	}
	return nil
}

// Sections lists the library sections on the server.
func (c *Client) Sections(ctx context.Context) ([]Section, error) {
	var resp mediaContainer
	if err := c.doJSON(ctx, http.MethodGet, "/library/sections", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list plex library sections: %w", err)
	}

	sections := make([]Section, 0, len(resp.MediaContainer.Directory))
	for _, d := range resp.MediaContainer.Directory {
		sections = append(sections, Section{Key: d.Key, Title: d.Title, Type: d.Type})
	}
	return sections, nil
}

// SectionKey resolves the configured TV section title to its key. The first
// show section is used when no title matches. The key is remembered once found.
func (c *Client) SectionKey(ctx context.Context) (string, error) {
	c.mu.Lock()
	key := c.sectionKey
	c.mu.Unlock()
	if key != "" {
		return key, nil
	}

	sections, err := c.Sections(ctx)
	if err != nil {
		return "", err
	}

	var fallback string
	for _, s := range sections {
		if s.Type != "show" {
			continue
		}
		if strings.EqualFold(s.Title, c.section) {
			key = s.Key
			break
		}
		if fallback == "" {
			fallback = s.Key
		}
	}
	if key == "" {
		key = fallback
	}
	if key == "" {
		return "", fmt.Errorf("%w: %q", ErrSectionNotFound, c.section)
	}

	c.mu.Lock()
	c.sectionKey = key
	c.mu.Unlock()

	return key, nil
}

// SearchShows lists the shows of the TV section matching the filter.
func (c *Client) SearchShows(ctx context.Context, filter Filter) ([]Show, error) {
	key, err := c.SectionKey(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("type", showType)
	if filter.Title != "" {
		params.Set("title", filter.Title)
	}
	if !filter.AddedSince.IsZero() {
		params.Set("addedAt>>", strconv.FormatInt(filter.AddedSince.Unix(), 10))
	}

	var resp mediaContainer
	if err := c.doJSON(ctx, http.MethodGet, "/library/sections/"+url.PathEscape(key)+"/all", params, &resp); err != nil {
		return nil, fmt.Errorf("failed to search plex shows: %w", err)
	}

	shows := make([]Show, 0, len(resp.MediaContainer.Metadata))
	for _, m := range resp.MediaContainer.Metadata {
		s := m.show()
		// Plex filters are inclusive at whole seconds; enforce the lower bound locally too
		if !filter.AddedSince.IsZero() && s.AddedAt.Before(filter.AddedSince.Truncate(time.Second)) {
			continue
		}
		shows = append(shows, s)
	}
	return shows, nil
}

// GetLabels fetches the current labels of a show.
func (c *Client) GetLabels(ctx context.Context, ratingKey string) ([]string, error) {
	var resp mediaContainer
	if err := c.doJSON(ctx, http.MethodGet, "/library/metadata/"+url.PathEscape(ratingKey), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get plex metadata for %s: %w", ratingKey, err)
	}
	if len(resp.MediaContainer.Metadata) == 0 {
		return nil, fmt.Errorf("plex metadata for %s not found", ratingKey)
	}
	return resp.MediaContainer.Metadata[0].show().Labels, nil
}

// AddLabels adds labels to a show and locks the label field. An indexed label
// edit replaces the whole list, so current is sent ahead of the new labels.
func (c *Client) AddLabels(ctx context.Context, ratingKey string, current, added []string) error {
	if len(added) == 0 {
		return nil
	}

	params := c.editParams(ratingKey)
	for i, l := range labels.Merge(current, added) {
		params.Set(fmt.Sprintf("label[%d].tag.tag", i), l)
	}
	params.Set("label.locked", "1")

	return c.edit(ctx, params, "add labels")
}

// RemoveLabels removes labels from a show and locks the label field.
func (c *Client) RemoveLabels(ctx context.Context, ratingKey string, removed []string) error {
	if len(removed) == 0 {
		return nil
	}

	params := c.editParams(ratingKey)
	params.Set("label[].tag.tag-", strings.Join(removed, ","))
	params.Set("label.locked", "1")

	return c.edit(ctx, params, "remove labels")
}

func (c *Client) editParams(ratingKey string) url.Values {
	params := url.Values{}
	params.Set("type", showType)
	params.Set("id", ratingKey)
	params.Set("includeExternalMedia", "1")
	return params
}

func (c *Client) edit(ctx context.Context, params url.Values, op string) error {
	key, err := c.SectionKey(ctx)
	if err != nil {
		return err
	}
	if err := c.doJSON(ctx, http.MethodPut, "/library/sections/"+url.PathEscape(key)+"/all", params, nil); err != nil {
		return fmt.Errorf("failed to %s on %s: %w", op, params.Get("id"), err)
	}
	return nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("plex returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("plex returned status %d: %s", e.StatusCode, e.Body)
}

func (c *Client) doJSON(ctx context.Context, method, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
