package repository

import (
	"context"
	"errors"
)

var (
	// ErrFetchFailed wraps every retrieval failure (connection, timeout, browser).
	ErrFetchFailed = errors.New("page could not be retrieved")
	// ErrUnexpectedStatus is returned for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected response status")
)

// Fetcher defines the contract for retrieving a page as decoded text.
type Fetcher interface {
	// Fetch returns the body of url or an error wrapping ErrFetchFailed.
	Fetch(ctx context.Context, url string) (string, error)
}

// FetcherFunc adapts a plain function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) (string, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}
