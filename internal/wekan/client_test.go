package wekan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient starts a server whose /users/login issues token-1,
// token-2, ... and whose /api/* requests go to apiHandler, then wires
// an authenticated client with a fast retry policy against it.
func newTestClient(t *testing.T, apiHandler http.HandlerFunc) (*Client, *atomic.Int64) {
	t.Helper()
	var logins atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/users/login", func(w http.ResponseWriter, r *http.Request) {
		n := logins.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"token":"token-%d","id":"user-1","tokenExpires":"2099-01-01T00:00:00Z"}`, n)
	})
	mux.HandleFunc("/api/", apiHandler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	auth, err := NewAuthManager(context.Background(), srv.URL, "admin", "admin123", nil)
	require.NoError(t, err)

	client := NewClient(srv.URL, auth, nil)
	client.BackoffBase = time.Millisecond
	return client, &logins
}

func TestRequestFailTwiceThenSucceed(t *testing.T) {
	var calls atomic.Int64
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":"flaky"}`)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	})

	raw, err := client.Request(context.Background(), http.MethodGet, "/boards/b1/lists", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), calls.Load(), "two failures plus the success means exactly 3 calls")
	assert.JSONEq(t, `{"ok":true}`, string(raw))
}

func TestRequestRetryExhaustion(t *testing.T) {
	var calls atomic.Int64
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "upstream down")
	})
	client.RetryCount = 2

	_, err := client.Request(context.Background(), http.MethodGet, "/boards/b1/lists", nil, nil)
	require.Error(t, err)
	assert.Equal(t, int64(3), calls.Load())

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusServiceUnavailable, reqErr.StatusCode)
	assert.Equal(t, "upstream down", reqErr.Body)
}

func TestRequestRefreshesTokenOn401WithinBudget(t *testing.T) {
	var calls atomic.Int64
	client, logins := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") == "Bearer token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"Unauthorized"}`)
			return
		}
		fmt.Fprint(w, `{"_id":"b1"}`)
	})

	raw, err := client.Request(context.Background(), http.MethodPost, "/boards", map[string]any{"title": "x"}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"_id":"b1"}`, string(raw))
	assert.Equal(t, int64(2), calls.Load(), "the 401 retry happens within the same budget")
	assert.Equal(t, int64(2), logins.Load(), "the 401 must force exactly one re-login")
}

func TestRequestSyntheticSuccessMarker(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, "OK")
	})

	raw, err := client.Request(context.Background(), http.MethodPost, "/boards/b1/cards/c1/comments", map[string]any{"comment": "hi"}, nil)
	require.NoError(t, err)

	var marker struct {
		Status     string `json:"status"`
		StatusCode int    `json:"statusCode"`
	}
	require.NoError(t, json.Unmarshal(raw, &marker))
	assert.Equal(t, "success", marker.Status)
	assert.Equal(t, http.StatusCreated, marker.StatusCode)
}

func TestCreateBoardSendsSluggedTitle(t *testing.T) {
	var captured map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprint(w, `{"_id":"b1","title":"My Board (staging)"}`)
	})

	board, err := client.CreateBoard(context.Background(), "My Board (staging)")
	require.NoError(t, err)
	assert.Equal(t, "b1", board.ID)
	assert.Equal(t, "my-board-staging", captured["slug"])
	assert.Equal(t, "user-1", captured["owner"])
	assert.Equal(t, "private", captured["permission"])
}

func TestGetListByName(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"_id":"l1","title":"To Do"},{"_id":"l2","title":"Done"}]`)
	})

	list, err := client.GetListByName(context.Background(), "b1", "Done")
	require.NoError(t, err)
	assert.Equal(t, "l2", list.ID)

	_, err = client.GetListByName(context.Background(), "b1", "Review")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDefaultSwimlanePicksFirst(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"_id":"s1","title":"Default"},{"_id":"s2","title":"Other"}]`)
	})

	id, err := client.DefaultSwimlane(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "s1", id)
}

func TestMoveCardReassignsAuthor(t *testing.T) {
	var captured map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprint(w, `{"_id":"c1"}`)
	})

	require.NoError(t, client.MoveCard(context.Background(), "b1", "c1", "l2"))
	assert.Equal(t, "l2", captured["listId"])
	assert.Equal(t, "user-1", captured["authorId"], "the moving user becomes the author of record")
}

func TestBoardAndCardURLs(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	base := client.baseURL

	assert.Equal(t, base+"/b/b1", client.BoardURL("b1"))
	assert.Equal(t, base+"/b/b1/cards/c1", client.CardURL("b1", "c1"))
}
