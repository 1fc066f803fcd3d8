package server

import (
	"context"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/atinyakov/go-page-analyzer/internal/app/service"
	"github.com/atinyakov/go-page-analyzer/internal/checker"
	"github.com/atinyakov/go-page-analyzer/internal/flash"
	"github.com/atinyakov/go-page-analyzer/internal/repository"
	"github.com/atinyakov/go-page-analyzer/internal/view"
)

type app struct {
	t       *testing.T
	handler http.Handler
	db      *repository.DB
	cookies []*http.Cookie
}

func newApp(t *testing.T) *app {
	t.Helper()
	return newAppWithLogger(t, zap.NewNop())
}

func newAppWithLogger(t *testing.T, logger *zap.Logger) *app {
	t.Helper()

	db, err := repository.InitDB(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := service.NewURL(
		repository.CreateURLRepository(db, logger),
		repository.CreateCheckRepository(db, logger),
		checker.New(2*time.Second, logger),
		logger,
		true,
	)

	views, err := view.New()
	require.NoError(t, err)

	store := flash.NewSessionStore(flash.NewMemoryBackend(time.Minute), time.Minute)

	return &app{
		t:       t,
		handler: Init(svc, views, store, logger, "127.0.0.0/8"),
		db:      db,
	}
}

// do sends a request carrying the cookies collected so far, like a browser.
func (a *app) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range a.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	if set := rec.Result().Cookies(); len(set) > 0 {
		a.cookies = set
	}
	return rec
}

func (a *app) count(table string) int {
	var n int
	require.NoError(a.t, a.db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func addForm(name string) url.Values {
	return url.Values{"url[name]": {name}}
}

func TestAddURL_InvalidNamesInsertNothing(t *testing.T) {
	a := newApp(t)

	tests := []struct {
		name  string
		input string
		msg   string
	}{
		{"empty", "", "URL is required"},
		{"too long", "https://example.com/" + strings.Repeat("a", 250), "URL exceeds 255 characters"},
		{"malformed", "not a url", "Invalid URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(http.MethodPost, "/urls", addForm(tt.input))

			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, "/", rec.Header().Get("Location"))
			assert.Equal(t, 0, a.count("urls"))

			home := a.do(http.MethodGet, "/", nil)
			assert.Contains(t, home.Body.String(), "alert-danger")
			assert.Contains(t, home.Body.String(), tt.msg)
		})
	}
}

func TestAddURL_Twice(t *testing.T) {
	a := newApp(t)

	rec := a.do(http.MethodPost, "/urls", addForm("https://example.com"))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/urls", rec.Header().Get("Location"))
	assert.Equal(t, 1, a.count("urls"))
	assert.Contains(t, a.do(http.MethodGet, "/urls", nil).Body.String(), "Page successfully added")

	rec = a.do(http.MethodPost, "/urls", addForm("https://example.com"))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/urls", rec.Header().Get("Location"))
	assert.Equal(t, 1, a.count("urls"))

	list := a.do(http.MethodGet, "/urls", nil).Body.String()
	assert.Contains(t, list, "alert-info")
	assert.Contains(t, list, "Page already exists")
}

func TestUnknownIDs(t *testing.T) {
	a := newApp(t)

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/urls/999999", nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/urls/abc", nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPost, "/urls/999999/checks", nil).Code)

	assert.Equal(t, 0, a.count("urls"))
	assert.Equal(t, 0, a.count("url_checks"))
}

func TestRunCheck_LatestCheckWins(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusNoContent)

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer target.Close()

	a := newApp(t)
	a.do(http.MethodPost, "/urls", addForm(target.URL))
	require.Equal(t, 1, a.count("urls"))

	rec := a.do(http.MethodPost, "/urls/1/checks", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/urls/1", rec.Header().Get("Location"))
	assert.Equal(t, 1, a.count("url_checks"))

	page := a.do(http.MethodGet, "/urls/1", nil).Body.String()
	assert.Contains(t, page, "Page successfully checked")
	assert.Contains(t, page, "<td>204</td>")

	status.Store(http.StatusServiceUnavailable)
	a.do(http.MethodPost, "/urls/1/checks", nil)
	assert.Equal(t, 2, a.count("url_checks"))

	list := a.do(http.MethodGet, "/urls", nil).Body.String()
	assert.Contains(t, list, "<td>503</td>")
	assert.NotContains(t, list, "<td>204</td>")
}

func TestRunCheck_UnreachableRecordsAttempt(t *testing.T) {
	target := httptest.NewServer(http.NotFoundHandler())
	unreachable := target.URL
	target.Close()

	a := newApp(t)
	a.do(http.MethodPost, "/urls", addForm(unreachable))

	rec := a.do(http.MethodPost, "/urls/1/checks", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/urls/1", rec.Header().Get("Location"))
	assert.Equal(t, 1, a.count("url_checks"))

	page := a.do(http.MethodGet, "/urls/1", nil).Body.String()
	assert.Contains(t, page, "An error occurred during the check")
}

func TestListURLs_DescendingIDs(t *testing.T) {
	a := newApp(t)

	for _, name := range []string{"https://a.example", "https://b.example", "https://c.example"} {
		a.do(http.MethodPost, "/urls", addForm(name))
	}

	body := a.do(http.MethodGet, "/urls", nil).Body.String()

	c := strings.Index(body, `href="/urls/3"`)
	b := strings.Index(body, `href="/urls/2"`)
	first := strings.Index(body, `href="/urls/1"`)
	require.True(t, c >= 0 && b >= 0 && first >= 0)
	assert.Less(t, c, b)
	assert.Less(t, b, first)
}

func TestInternalStats(t *testing.T) {
	a := newApp(t)
	a.do(http.MethodPost, "/urls", addForm("https://example.com"))

	req := httptest.NewRequest(http.MethodGet, "/api/internal/stats", nil)
	req.Header.Set("X-Real-IP", "127.0.0.1")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"urls":1,"checks":0}`, rec.Body.String())

	req.Header.Set("X-Real-IP", "10.1.2.3")
	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	a := newApp(t)

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/nope", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, a.do(http.MethodDelete, "/urls", nil).Code)
}

func TestRequestLog_UncompressedSize(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	a := newAppWithLogger(t, zap.New(core))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	gr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	page, err := io.ReadAll(gr)
	require.NoError(t, err)

	entries := logs.FilterMessage("HTTP Request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(len(page)), entries[0].ContextMap()["size"])
}

func TestAddURL_RedirectHasNoBody(t *testing.T) {
	a := newApp(t)

	req := httptest.NewRequest(http.MethodPost, "/urls", strings.NewReader(addForm("https://example.com").Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Zero(t, rec.Body.Len())
}
