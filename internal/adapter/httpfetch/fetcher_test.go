package httpfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/user/election-scraper/internal/proxy"
	"github.com/user/election-scraper/internal/repository"
)

func TestFetchDecodesUTF8(t *testing.T) {
	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<td>Želeč</td>"))
	}))
	defer srv.Close()

	f := NewFetcher(Config{Timeout: time.Second}, proxy.NewManager(nil, "election-scraper-test"), nil)
	body, err := f.Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, "<td>Želeč</td>", body)
	assert.Equal(t, "election-scraper-test", gotAgent)
}

func TestFetchDecodesLegacyCharset(t *testing.T) {
	encoded, err := charmap.Windows1250.NewEncoder().String("<td>Běleč</td>")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=windows-1250")
		_, _ = w.Write([]byte(encoded))
	}))
	defer srv.Close()

	body, err := NewFetcher(Config{}, nil, nil).Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, "<td>Běleč</td>", body)
}

func TestFetchNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewFetcher(Config{MaxRetries: 3, RetryDelay: time.Millisecond}, nil, nil)
	_, err := f.Fetch(context.Background(), srv.URL)

	assert.ErrorIs(t, err, repository.ErrFetchFailed)
	assert.ErrorIs(t, err, repository.ErrUnexpectedStatus)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewFetcher(Config{MaxRetries: 2, RetryDelay: time.Millisecond}, nil, nil)
	body, err := f.Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, "ok", body)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewFetcher(Config{MaxRetries: 1, RetryDelay: time.Millisecond}, nil, nil)
	_, err := f.Fetch(context.Background(), srv.URL)

	assert.ErrorIs(t, err, repository.ErrFetchFailed)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewFetcher(Config{Timeout: time.Second}, nil, nil).Fetch(context.Background(), url)
	assert.ErrorIs(t, err, repository.ErrFetchFailed)
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewFetcher(Config{Timeout: 50 * time.Millisecond}, nil, nil).Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, repository.ErrFetchFailed)
}
