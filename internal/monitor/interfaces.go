package monitor

import (
	"context"
	"errors"
	"time"
)

// ErrElementNotFound is returned by PageSession.FindByText when no element
// matches within the wait budget.
var ErrElementNotFound = errors.New("element not found")

// ElementHandle references an interactive element on the current page.
type ElementHandle interface {
	// Text returns the element's visible text.
	Text() string
}

// PageSession is one live handle to the browser. It is owned by a single
// monitoring run and never shared. Implementations wrap errors that leave
// the session unusable in *FetchError so callers can recreate it.
type PageSession interface {
	Navigate(ctx context.Context, url string) error
	FindByText(ctx context.Context, substring string, timeout time.Duration) (ElementHandle, error)
	ListInteractiveElements(ctx context.Context) ([]ElementHandle, error)
	Click(ctx context.Context, el ElementHandle) error
	PageText(ctx context.Context) (string, error)
	CurrentURL(ctx context.Context) (string, error)
	Close() error
}

// SessionFactory creates page sessions. The factory must reuse a persistent
// profile so authentication survives session recreation within a run. Some
// external actor (a person on a remote display) may mutate the session's
// authenticated state at any time.
type SessionFactory interface {
	NewSession(ctx context.Context) (PageSession, error)
}

// Notifier delivers best-effort push messages. Send is bounded in time and
// returns an error for logging only; callers never retry or escalate it.
type Notifier interface {
	Send(ctx context.Context, topic, title, message string) error
}

// Clock returns the current time and performs cancellable sleeps. Every
// suspension point in the monitor goes through Sleep so a host can request
// shutdown without corrupting in-flight state.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}
