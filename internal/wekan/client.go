package wekan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"go.uber.org/zap"

	"github.com/wekan-tools/github-wekan-sync/internal/models"
	"github.com/wekan-tools/github-wekan-sync/internal/oplog"
)

const (
	defaultRetryCount  = 3
	defaultBackoffBase = 500 * time.Millisecond
)

// Client performs authenticated operations against the Wekan API.
//
// Failed requests are retried with exponential backoff
// (base × 2^(attempt−1)); a 401 forces a token refresh and the retry
// happens within the same budget, not a fresh one. Retries are NOT
// idempotent-safe for creation endpoints: if a create succeeded
// server-side but the response was lost, the retry produces a
// duplicate. Callers needing at-most-once creation must look up by
// name before creating.
type Client struct {
	baseURL string
	apiURL  string
	auth    *AuthManager
	http    *http.Client
	log     *oplog.Log

	// RetryCount and BackoffBase tune the retry policy per client.
	RetryCount  int
	BackoffBase time.Duration
}

// NewClient wraps the given auth manager into an API client for the
// Wekan instance at baseURL.
func NewClient(baseURL string, auth *AuthManager, log *oplog.Log) *Client {
	base := strings.TrimRight(baseURL, "/")
	return &Client{
		baseURL:     base,
		apiURL:      base + "/api",
		auth:        auth,
		http:        &http.Client{Timeout: 30 * time.Second},
		log:         log,
		RetryCount:  defaultRetryCount,
		BackoffBase: defaultBackoffBase,
	}
}

// Request issues one API call with retry and backoff. Exactly one of
// jsonBody and formBody may be non-nil. On HTTP 200/201 the response
// body is returned as raw JSON; an unparseable success body yields a
// synthetic {"status":"success","statusCode":N} marker, since some
// Wekan endpoints reply with empty or non-JSON success bodies.
func (c *Client) Request(ctx context.Context, method, path string, jsonBody any, formBody url.Values) (json.RawMessage, error) {
	reqURL := c.apiURL + "/" + strings.TrimLeft(path, "/")
	c.log.Appendf("Making %s request to %s", method, reqURL)

	var result json.RawMessage
	err := retry.Do(
		func() error {
			raw, err := c.do(ctx, method, reqURL, jsonBody, formBody)
			if err != nil {
				return err
			}
			result = raw
			return nil
		},
		retry.Attempts(uint(c.RetryCount+1)),
		retry.Delay(c.BackoffBase),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.log.Appendf("Retry attempt %d after error: %v", n+1, err)
			zap.L().Debug("Retrying Wekan request",
				zap.String("method", method),
				zap.String("path", path),
				zap.Uint("attempt", n+1),
				zap.Error(err))
		}),
	)
	if err != nil {
		c.log.Appendf("ERROR: %v", err)
		return nil, err
	}
	return result, nil
}

// do performs a single HTTP attempt.
func (c *Client) do(ctx context.Context, method, reqURL string, jsonBody any, formBody url.Values) (json.RawMessage, error) {
	token, err := c.auth.ValidToken(ctx)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	contentType := "application/json"
	if formBody != nil {
		body = strings.NewReader(formBody.Encode())
		contentType = "application/x-www-form-urlencoded"
	} else if jsonBody != nil {
		data, err := json.Marshal(jsonBody)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		// Refresh the session and let the retry loop re-issue the
		// call with the new token, within the existing budget.
		if err := c.auth.Invalidate(ctx, token); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("authorization rejected, token refreshed")
	}

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		if json.Valid(respBody) && len(bytes.TrimSpace(respBody)) > 0 {
			return json.RawMessage(respBody), nil
		}
		marker, _ := json.Marshal(map[string]any{"status": "success", "statusCode": resp.StatusCode})
		return json.RawMessage(marker), nil
	}

	return nil, &RequestError{
		Method:     method,
		Path:       reqURL,
		StatusCode: resp.StatusCode,
		Body:       string(respBody),
	}
}

// CreateBoard creates a private board owned by the authenticated user.
func (c *Client) CreateBoard(ctx context.Context, title string) (*models.Board, error) {
	c.log.Appendf("Creating board: %s", title)

	data := map[string]any{
		"title":      title,
		"owner":      c.auth.UserID(),
		"permission": "private",
		"color":      "belize",
		"slug":       slugify(title),
	}

	raw, err := c.Request(ctx, http.MethodPost, "/boards", data, nil)
	if err != nil {
		return nil, err
	}

	var board models.Board
	if err := json.Unmarshal(raw, &board); err != nil {
		return nil, fmt.Errorf("failed to decode board response: %w", err)
	}
	if board.ID == "" {
		return nil, fmt.Errorf("failed to create board %q: no id in response %s", title, string(raw))
	}
	if board.Title == "" {
		board.Title = title
	}
	c.log.Appendf("Board created successfully: %s", board.ID)
	return &board, nil
}

// CreateList creates a list on the given board.
func (c *Client) CreateList(ctx context.Context, boardID, title string) (*models.List, error) {
	c.log.Appendf("Creating list '%s' in board %s", title, boardID)

	raw, err := c.Request(ctx, http.MethodPost, fmt.Sprintf("/boards/%s/lists", boardID), map[string]any{"title": title}, nil)
	if err != nil {
		return nil, err
	}

	var list models.List
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to decode list response: %w", err)
	}
	if list.ID == "" {
		return nil, fmt.Errorf("failed to create list %q: no id in response %s", title, string(raw))
	}
	if list.Title == "" {
		list.Title = title
	}
	return &list, nil
}

// CreateCard creates a card in the given list. Wekan's card schema
// mandates a swimlane reference; see DefaultSwimlane.
func (c *Client) CreateCard(ctx context.Context, boardID, listID, swimlaneID, title, description string) (*models.Card, error) {
	c.log.Appendf("Creating card '%s' in list %s", title, listID)

	data := map[string]any{
		"title":       title,
		"description": description,
		"authorId":    c.auth.UserID(),
		"swimlaneId":  swimlaneID,
		"members":     []string{},
		"labelIds":    []string{},
	}

	raw, err := c.Request(ctx, http.MethodPost, fmt.Sprintf("/boards/%s/lists/%s/cards", boardID, listID), data, nil)
	if err != nil {
		return nil, err
	}

	var card models.Card
	if err := json.Unmarshal(raw, &card); err != nil {
		return nil, fmt.Errorf("failed to decode card response: %w", err)
	}
	if card.ID == "" {
		return nil, fmt.Errorf("failed to create card %q: no id in response %s", title, string(raw))
	}
	if card.Title == "" {
		card.Title = title
	}
	return &card, nil
}

// GetLists returns all lists on a board.
func (c *Client) GetLists(ctx context.Context, boardID string) ([]models.List, error) {
	c.log.Appendf("Getting lists for board %s", boardID)

	raw, err := c.Request(ctx, http.MethodGet, fmt.Sprintf("/boards/%s/lists", boardID), nil, nil)
	if err != nil {
		return nil, err
	}

	var lists []models.List
	if err := json.Unmarshal(raw, &lists); err != nil {
		return nil, fmt.Errorf("failed to decode lists response: %w", err)
	}
	return lists, nil
}

// GetListByName returns the board's list with the exact given title,
// or ErrNotFound.
func (c *Client) GetListByName(ctx context.Context, boardID, name string) (*models.List, error) {
	c.log.Appendf("Looking for list '%s' in board %s", name, boardID)

	lists, err := c.GetLists(ctx, boardID)
	if err != nil {
		return nil, err
	}
	for _, l := range lists {
		if l.Title == name {
			c.log.Appendf("Found list '%s' with ID %s", name, l.ID)
			return &l, nil
		}
	}
	c.log.Appendf("WARNING: List '%s' not found in board %s", name, boardID)
	return nil, fmt.Errorf("list %q in board %s: %w", name, boardID, ErrNotFound)
}

// GetSwimlanes returns all swimlanes on a board.
func (c *Client) GetSwimlanes(ctx context.Context, boardID string) ([]models.Swimlane, error) {
	c.log.Appendf("Getting swimlanes for board %s", boardID)

	raw, err := c.Request(ctx, http.MethodGet, fmt.Sprintf("/boards/%s/swimlanes", boardID), nil, nil)
	if err != nil {
		return nil, err
	}

	var swimlanes []models.Swimlane
	if err := json.Unmarshal(raw, &swimlanes); err != nil {
		return nil, fmt.Errorf("failed to decode swimlanes response: %w", err)
	}
	return swimlanes, nil
}

// DefaultSwimlane returns the id of the board's first swimlane. Taking
// the first one is a simplifying policy, not a semantic choice: card
// creation requires some swimlane reference.
func (c *Client) DefaultSwimlane(ctx context.Context, boardID string) (string, error) {
	swimlanes, err := c.GetSwimlanes(ctx, boardID)
	if err != nil {
		return "", err
	}
	if len(swimlanes) == 0 {
		return "", fmt.Errorf("default swimlane for board %s: %w", boardID, ErrNotFound)
	}
	return swimlanes[0].ID, nil
}

// MoveCard moves a card to another list. Wekan requires the authorId
// in the update: the moving user becomes the card's author of record.
func (c *Client) MoveCard(ctx context.Context, boardID, cardID, newListID string) error {
	c.log.Appendf("Moving card %s to list %s in board %s", cardID, newListID, boardID)

	data := map[string]any{
		"listId":   newListID,
		"authorId": c.auth.UserID(),
	}
	_, err := c.Request(ctx, http.MethodPut, fmt.Sprintf("/boards/%s/lists/%s/cards/%s", boardID, newListID, cardID), data, nil)
	return err
}

// AddComment adds a comment to a card as the authenticated user.
func (c *Client) AddComment(ctx context.Context, boardID, cardID, text string) error {
	c.log.Appendf("Adding comment to card %s in board %s", cardID, boardID)

	data := map[string]any{
		"comment":  text,
		"authorId": c.auth.UserID(),
	}
	_, err := c.Request(ctx, http.MethodPost, fmt.Sprintf("/boards/%s/cards/%s/comments", boardID, cardID), data, nil)
	return err
}

// BoardURL returns the web URL for a board.
func (c *Client) BoardURL(boardID string) string {
	return fmt.Sprintf("%s/b/%s", c.baseURL, boardID)
}

// CardURL returns the web URL for a card.
func (c *Client) CardURL(boardID, cardID string) string {
	return fmt.Sprintf("%s/b/%s/cards/%s", c.baseURL, boardID, cardID)
}

func slugify(title string) string {
	s := strings.ToLower(title)
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "(", "")
	s = strings.ReplaceAll(s, ")", "")
	return s
}
