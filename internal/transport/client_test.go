package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immortalis/archivesync/pkg/errors"
)

func TestParseBaseURL(t *testing.T) {
	u, err := ParseBaseURL(" https://archive.example.com/api/ ")
	require.NoError(t, err)
	assert.Equal(t, "https://archive.example.com/api", u.String())

	for _, bad := range []string{"", "archive.example.com", "ftp://x", "http://", "://bad"} {
		_, err := ParseBaseURL(bad)
		assert.True(t, errors.IsValidationError(err), bad)
	}
}

func TestClientURL(t *testing.T) {
	c, err := New("http://localhost:8080/api", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/api/schedule", c.URL("/schedule", nil))
	assert.Equal(t, "http://localhost:8080/api/search?term=cats+and+dogs",
		c.URL("search", url.Values{"term": {"cats and dogs"}}))
}

func TestClientHeaders(t *testing.T) {
	headers := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := New(srv.URL, srv.Client(), http.Header{"X-Client": {"archivesync"}})
	require.NoError(t, err)

	resp, err := c.PostJSON(context.Background(), "/schedule", map[string]string{"url": "x"})
	require.NoError(t, err)
	require.NoError(t, DecodeResponse(resp, "POST /schedule", nil))

	got := <-headers
	assert.Equal(t, "archivesync", got.Get("X-Client"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
}

func TestDecodeResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte(`{"name":"archive"}`))
		case "/bad-json":
			_, _ = w.Write([]byte(`{"name":`))
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL, srv.Client(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	var out struct {
		Name string `json:"name"`
	}
	resp, err := c.Get(ctx, "/ok", nil)
	require.NoError(t, err)
	require.NoError(t, DecodeResponse(resp, "GET /ok", &out))
	assert.Equal(t, "archive", out.Name)

	resp, err = c.Get(ctx, "/bad-json", nil)
	require.NoError(t, err)
	err = DecodeResponse(resp, "GET /bad-json", &out)
	var parseErr *errors.ParseError
	assert.True(t, errors.As(err, &parseErr))

	resp, err = c.Get(ctx, "/missing", nil)
	require.NoError(t, err)
	err = DecodeResponse(resp, "GET /missing", &out)
	assert.True(t, errors.IsNotFound(err))
	assert.Contains(t, err.Error(), "Not Found")

	resp, err = c.Get(ctx, "/down", nil)
	require.NoError(t, err)
	err = DecodeResponse(resp, "GET /down", &out)
	assert.True(t, errors.IsServerUnavailable(err))
	var apiErr *errors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "database unavailable", apiErr.Message)
	assert.True(t, apiErr.Retryable())
}
