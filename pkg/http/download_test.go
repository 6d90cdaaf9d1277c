package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadWritesFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.mp4")
	n, mime, err := Download(context.Background(), NewClient(0), srv.URL, map[string]string{"X-Test": "yes"}, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, "video/mp4", mime)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestDownloadStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.mp4")
	_, _, err := Download(context.Background(), NewClient(0), srv.URL, nil, dest)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.HTTPStatus())
	assert.Contains(t, se.Body, "slow down")
	assert.NoFileExists(t, dest)
}

func TestDownloadRejectsEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.mp4")
	_, _, err := Download(context.Background(), NewClient(0), srv.URL, nil, dest)
	require.ErrorIs(t, err, ErrEmptyBody)
	assert.NoFileExists(t, dest)
}

func TestDecodeJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"link":"https://cdn/x.mp3"}`))
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	var out struct {
		Link string `json:"link"`
	}
	require.NoError(t, DecodeJSON(NewClient(DefaultTimeout), req, &out))
	assert.Equal(t, "https://cdn/x.mp3", out.Link)
}
