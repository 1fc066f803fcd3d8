package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/atinyakov/go-page-analyzer/internal/flash"
	"github.com/atinyakov/go-page-analyzer/internal/mocks"
	"github.com/atinyakov/go-page-analyzer/internal/models"
	"github.com/atinyakov/go-page-analyzer/internal/repository"
	"github.com/atinyakov/go-page-analyzer/internal/view"
)

type fixture struct {
	service *mocks.MockURLServiceIface
	store   flash.Store
	get     *GetHandler
	post    *PostHandler
}

func newFixture(t *testing.T) fixture {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockURLServiceIface(ctrl)

	views, err := view.New()
	require.NoError(t, err)

	store := flash.NewSessionStore(flash.NewMemoryBackend(0), 0)
	logger := zap.NewNop()

	return fixture{
		service: svc,
		store:   store,
		get:     NewGet(svc, views, store, logger),
		post:    NewPost(svc, views, store, logger),
	}
}

func withID(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func formRequest(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// pendingFlash follows the cookies of rec and pops the stored message.
func pendingFlash(t *testing.T, store flash.Store, rec *httptest.ResponseRecorder) *models.Flash {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}

	msg, err := store.Pop(httptest.NewRecorder(), req)
	require.NoError(t, err)
	return msg
}

func TestAddURL(t *testing.T) {
	tests := []struct {
		name         string
		form         url.Values
		wantName     string
		outcome      *models.Outcome
		err          error
		wantCode     int
		wantLocation string
		wantSeverity models.Severity
	}{
		{
			name:         "created",
			form:         url.Values{"url[name]": {"https://example.com"}},
			wantName:     "https://example.com",
			outcome:      &models.Outcome{Location: "/urls", Flash: &models.Flash{Severity: models.SeveritySuccess, Text: "Page successfully added"}},
			wantCode:     http.StatusFound,
			wantLocation: "/urls",
			wantSeverity: models.SeveritySuccess,
		},
		{
			name:         "plain url field",
			form:         url.Values{"url": {"  https://example.com  "}},
			wantName:     "https://example.com",
			outcome:      &models.Outcome{Location: "/urls", Flash: &models.Flash{Severity: models.SeverityInfo, Text: "Page already exists"}},
			wantCode:     http.StatusFound,
			wantLocation: "/urls",
			wantSeverity: models.SeverityInfo,
		},
		{
			name:         "invalid goes home",
			form:         url.Values{"url[name]": {"nope"}},
			wantName:     "nope",
			outcome:      &models.Outcome{Location: "/", Flash: &models.Flash{Severity: models.SeverityError, Text: "Invalid URL"}},
			wantCode:     http.StatusFound,
			wantLocation: "/",
			wantSeverity: models.SeverityError,
		},
		{
			name:     "storage failure",
			form:     url.Values{"url[name]": {"https://example.com"}},
			wantName: "https://example.com",
			err:      errors.New("db down"),
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.service.EXPECT().AddURL(gomock.Any(), tt.wantName).Return(tt.outcome, tt.err)

			rec := httptest.NewRecorder()
			f.post.AddURL(rec, formRequest("/urls", tt.form))

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantLocation == "" {
				return
			}

			assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
			msg := pendingFlash(t, f.store, rec)
			require.NotNil(t, msg)
			assert.Equal(t, tt.wantSeverity, msg.Severity)
		})
	}
}

func TestRunCheck(t *testing.T) {
	t.Run("redirects back with message", func(t *testing.T) {
		f := newFixture(t)
		f.service.EXPECT().RunCheck(gomock.Any(), int64(5)).Return(&models.Outcome{
			Location: "/urls/5",
			Flash:    &models.Flash{Severity: models.SeverityError, Text: "An error occurred during the check"},
		}, nil)

		rec := httptest.NewRecorder()
		f.post.RunCheck(rec, withID(httptest.NewRequest(http.MethodPost, "/urls/5/checks", nil), "5"))

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/urls/5", rec.Header().Get("Location"))
		assert.Equal(t, "An error occurred during the check", pendingFlash(t, f.store, rec).Text)
	})

	t.Run("unknown id", func(t *testing.T) {
		f := newFixture(t)
		f.service.EXPECT().RunCheck(gomock.Any(), int64(999999)).Return(nil, repository.ErrNotFound)

		rec := httptest.NewRecorder()
		f.post.RunCheck(rec, withID(httptest.NewRequest(http.MethodPost, "/urls/999999/checks", nil), "999999"))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id never reaches the service", func(t *testing.T) {
		f := newFixture(t)

		for _, id := range []string{"abc", "0", "-1"} {
			rec := httptest.NewRecorder()
			f.post.RunCheck(rec, withID(httptest.NewRequest(http.MethodPost, "/urls/x/checks", nil), id))

			assert.Equal(t, http.StatusNotFound, rec.Code)
		}
	})
}

func TestGetHandlers(t *testing.T) {
	t.Run("home", func(t *testing.T) {
		f := newFixture(t)

		rec := httptest.NewRecorder()
		f.get.Home(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `action="/urls"`)
	})

	t.Run("list", func(t *testing.T) {
		f := newFixture(t)
		f.service.EXPECT().ListURLs(gomock.Any()).Return([]models.URLWithLatestCheck{
			{URL: models.URL{ID: 2, Name: "https://two.example"}},
			{URL: models.URL{ID: 1, Name: "https://one.example"}},
		}, nil)

		rec := httptest.NewRecorder()
		f.get.URLs(rec, httptest.NewRequest(http.MethodGet, "/urls", nil))

		body := rec.Body.String()
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Less(t, strings.Index(body, "https://two.example"), strings.Index(body, "https://one.example"))
	})

	t.Run("details", func(t *testing.T) {
		f := newFixture(t)
		f.service.EXPECT().GetURL(gomock.Any(), int64(3)).Return(&models.URLDetails{
			URL: models.URL{ID: 3, Name: "https://example.com"},
		}, nil)

		rec := httptest.NewRecorder()
		f.get.URL(rec, withID(httptest.NewRequest(http.MethodGet, "/urls/3", nil), "3"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "https://example.com")
	})

	t.Run("details unknown id", func(t *testing.T) {
		f := newFixture(t)
		f.service.EXPECT().GetURL(gomock.Any(), int64(999999)).Return(nil, repository.ErrNotFound)

		rec := httptest.NewRecorder()
		f.get.URL(rec, withID(httptest.NewRequest(http.MethodGet, "/urls/999999", nil), "999999"))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("list failure", func(t *testing.T) {
		f := newFixture(t)
		f.service.EXPECT().ListURLs(gomock.Any()).Return(nil, errors.New("db down"))

		rec := httptest.NewRecorder()
		f.get.URLs(rec, httptest.NewRequest(http.MethodGet, "/urls", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestPingDB(t *testing.T) {
	f := newFixture(t)

	t.Run("Success", func(t *testing.T) {
		f.service.EXPECT().PingContext(gomock.Any()).Return(nil)

		rec := httptest.NewRecorder()
		f.get.PingDB(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Failure", func(t *testing.T) {
		f.service.EXPECT().PingContext(gomock.Any()).Return(errors.New("db error"))

		rec := httptest.NewRecorder()
		f.get.PingDB(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	f.service.EXPECT().Stats(gomock.Any()).Return(&models.Stats{URLs: 2, Checks: 5}, nil)

	rec := httptest.NewRecorder()
	f.get.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/internal/stats", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"urls":2,"checks":5}`, rec.Body.String())
}
