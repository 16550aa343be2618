package collector

import "context"

// Fetcher retrieves the raw exchange page.
type Fetcher interface {
	FetchPage(ctx context.Context) (string, error)
	Name() string
}
