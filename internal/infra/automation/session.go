package automation

import (
	"context"

	"github.com/vietddude/sifter/internal/core/domain"
)

// PageFetcher fetches one page of item identifiers from the listing.
type PageFetcher interface {
	FetchPage(ctx context.Context, page int) ([]string, error)
}

// Classifier classifies one item identifier.
type Classifier interface {
	Classify(ctx context.Context, item string) (bool, error)
}

// Session is an exclusive upstream automation session. The loop that owns it
/// must release it on every exit path: normal completion, error return, and
// immediately before a healing handoff.
type Session interface {
	PageFetcher
	Classifier
	Close() error
}

// Dialer constructs sessions. A spawned worker uses it to build a fresh
// session of its own; it never inherits the parent's.
type Dialer interface {
	Open(ctx context.Context, creds domain.Credentials) (Session, error)
}
