// Package fetcher loads tabular datasets from local files, HTTP and FTP.
package fetcher

import (
	"context"
	"io"
)

// Fetcher downloads a remote resource.
type Fetcher interface {
	// Download fetches the URL and returns the response body. The caller
	// closes it.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}
