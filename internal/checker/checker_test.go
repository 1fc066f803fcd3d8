package checker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPChecker_Check(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "ok", status: http.StatusOK},
		{name: "not found is still a response", status: http.StatusNotFound},
		{name: "server error is still a response", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			res := New(time.Second, zap.NewNop()).Check(context.Background(), srv.URL)

			require.True(t, res.OK())
			assert.Equal(t, tt.status, res.StatusCode)
		})
	}
}

func TestHTTPChecker_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	res := New(50*time.Millisecond, zap.NewNop()).Check(context.Background(), srv.URL)

	require.False(t, res.OK())
	assert.Equal(t, srv.URL, res.Err.URL)
	assert.Zero(t, res.StatusCode)
}

func TestHTTPChecker_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := New(time.Second, zap.NewNop()).Check(context.Background(), url)

	require.False(t, res.OK())

	var probeErr *ProbeError
	assert.True(t, errors.As(error(res.Err), &probeErr))
	assert.Contains(t, res.Err.Error(), url)
}

func TestHTTPChecker_InvalidURL(t *testing.T) {
	res := New(0, zap.NewNop()).Check(context.Background(), "://broken")

	assert.False(t, res.OK())
}

func TestNew_DefaultTimeout(t *testing.T) {
	c := New(0, zap.NewNop())

	assert.Equal(t, DefaultTimeout, c.client.Timeout)
}
