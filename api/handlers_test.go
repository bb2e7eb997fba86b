package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wekan-tools/github-wekan-sync/internal/boards"
	"github.com/wekan-tools/github-wekan-sync/internal/events"
	"github.com/wekan-tools/github-wekan-sync/internal/models"
	"github.com/wekan-tools/github-wekan-sync/internal/signature"
	"github.com/wekan-tools/github-wekan-sync/internal/templates"
	"github.com/wekan-tools/github-wekan-sync/internal/wekan"
	"github.com/wekan-tools/github-wekan-sync/internal/wekan/wekantest"
)

const testSecret = "webhook-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func newTestEngine(h *Handler) *gin.Engine {
	r := gin.New()
	r.POST("/github-webhook", h.GithubWebhookHandler)
	r.GET("/health", h.HealthCheckHandler)
	return r
}

func newStandaloneHandler() *Handler {
	return &Handler{
		Verifier: signature.Verifier{Secret: testSecret, Policy: signature.PolicyStrict},
		Router:   events.NewRouter(nil),
	}
}

func newConnectedHandler(t *testing.T) (*Handler, *wekantest.Server) {
	t.Helper()
	srv := wekantest.New()
	t.Cleanup(srv.Close)

	auth, err := wekan.NewAuthManager(context.Background(), srv.URL, wekantest.Username, wekantest.Password, nil)
	require.NoError(t, err)

	client := wekan.NewClient(srv.URL, auth, nil)
	client.RetryCount = 0
	client.BackoffBase = time.Millisecond

	creator := boards.NewCreator(client, templates.New("", nil), nil)
	return &Handler{
		Verifier: signature.Verifier{Secret: testSecret, Policy: signature.PolicyStrict},
		Router:   events.NewRouter(creator),
	}, srv
}

func postWebhook(r *gin.Engine, event string, body []byte, sig string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/github-webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", event)
	if sig != "" {
		req.Header.Set("X-Hub-Signature-256", sig)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	r := newTestEngine(newStandaloneHandler())
	body := []byte(`{"zen": "hi"}`)

	w := postWebhook(r, "ping", body, "sha256=deadbeef")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid signature", decodeBody(t, w)["error"])
}

func TestWebhookRejectsMissingSignatureWhenStrict(t *testing.T) {
	r := newTestEngine(newStandaloneHandler())

	w := postWebhook(r, "ping", []byte(`{"zen": "hi"}`), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookAcceptsMissingSignatureWhenPermissive(t *testing.T) {
	h := newStandaloneHandler()
	h.Verifier.Policy = signature.PolicyPermissive
	r := newTestEngine(h)

	w := postWebhook(r, "ping", []byte(`{"zen": "hi"}`), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hi", decodeBody(t, w)["zen"])
}

func TestWebhookRejectsInvalidJSON(t *testing.T) {
	r := newTestEngine(newStandaloneHandler())

	for _, body := range [][]byte{[]byte("not json"), []byte(""), []byte("   ")} {
		w := postWebhook(r, "ping", body, sign(body))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid JSON payload", decodeBody(t, w)["error"])
	}
}

func TestWebhookVerifiesRawBody(t *testing.T) {
	// The signature is computed over the exact bytes received, so a
	// payload re-signed after any mutation must be rejected.
	r := newTestEngine(newStandaloneHandler())
	body := []byte(`{"zen": "hi"}`)
	tampered := []byte(`{"zen": "ho"}`)

	w := postWebhook(r, "ping", tampered, sign(body))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookIssueOpenedEndToEnd(t *testing.T) {
	h, srv := newConnectedHandler(t)
	r := newTestEngine(h)

	body := []byte(`{
		"action": "opened",
		"issue": {
			"number": 13,
			"title": "Fix bug",
			"html_url": "https://github.com/acme/demo/issues/13",
			"user": {"login": "octocat"},
			"state": "open",
			"created_at": "2026-08-01T12:00:00Z"
		},
		"repository": {"name": "demo"}
	}`)

	w := postWebhook(r, "issues", body, sign(body))
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeBody(t, w)
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, "Issue #13 synchronized to WeKan", resp["message"])

	bs := srv.Boards()
	require.Len(t, bs, 1)
	assert.Equal(t, "GitHub Issues - demo", bs[0].Title)
	require.Len(t, srv.CardsInList(bs[0].ID, "To Do"), 1)
}

func TestWebhookRecordsDelivery(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Delivery{}))

	h := newStandaloneHandler()
	h.DB = db
	r := newTestEngine(h)

	body := []byte(`{
		"action": "opened",
		"issue": {"number": 13, "title": "Fix bug", "user": {"login": "octocat"}},
		"repository": {"name": "demo"}
	}`)
	w := postWebhook(r, "issues", body, sign(body))
	require.Equal(t, http.StatusOK, w.Code)

	var rows []models.Delivery
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "issues", rows[0].Event)
	assert.Equal(t, "opened", rows[0].Action)
	assert.Equal(t, http.StatusOK, rows[0].Status)
}

func TestHealthStandalone(t *testing.T) {
	r := newTestEngine(newStandaloneHandler())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, false, resp["wekan_connected"])
	assert.Equal(t, "standalone", resp["mode"])
	assert.NotEmpty(t, resp["timestamp"])
}

func TestHealthConnected(t *testing.T) {
	h, _ := newConnectedHandler(t)
	r := newTestEngine(h)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, true, resp["wekan_connected"])
	_, hasMode := resp["mode"]
	assert.False(t, hasMode)
}
