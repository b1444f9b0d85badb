// Package portal defines the narrow contract the acquisition stages consume
// to talk to the case-tracking portal. The stages never depend on a concrete
// automation engine; anything that can navigate, fill, click and wait on
// selectors can drive an acquisition. See the webforms sub-package for the
// HTTP-level implementation used in production.
package portal

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrWaitTimeout is returned by WaitFor when the selector never appeared
// within the timeout. It is the recoverable failure class: the server is
// assumed slow rather than broken, and stages retry on it.
var ErrWaitTimeout = errors.New("portal: timed out waiting for selector")

// ErrNoSuchElement is returned when an operation targets a selector that is
// not present in the current document.
var ErrNoSuchElement = errors.New("portal: no such element")

// Driver is one portal session. A session is stateful on the server side
// (selecting a row replaces the rendered detail content), so a Driver must
// only ever be used from one goroutine at a time.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Fill(ctx context.Context, selector, text string) error
	Click(ctx context.Context, selector string) error
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	IsVisible(ctx context.Context, selector string) (bool, error)
	Attribute(ctx context.Context, selector, name string) (string, error)
	Text(ctx context.Context, selector string) (string, error)
	TextAll(ctx context.Context, selector string) ([]string, error)
	Count(ctx context.Context, selector string) (int, error)
	// Table reads a grid element into rows of cell text (th and td),
	// header row included. The portal renders every listing as a grid.
	Table(ctx context.Context, selector string) ([][]string, error)

	// URL reports the address of the currently loaded document.
	URL() string
	// FetchBytes downloads a document over the session's authenticated
	// transport (cookies included).
	FetchBytes(ctx context.Context, url string, timeout time.Duration) ([]byte, error)
	// OpenPage runs trigger and captures the page it spawned (the portal
	// opens its PDF generator in a new window). The caller owns the page
	// and must Close it on every exit path.
	OpenPage(ctx context.Context, trigger func() error) (Page, error)
	// Screenshot persists a best-effort visual snapshot of the current
	// state for post-mortem diagnostics.
	Screenshot(ctx context.Context, path string) error
}

// Page is a transient child page spawned by the session.
type Page interface {
	Driver
	Close()
}

// ResolveURL derives an absolute document URL from a frame's src attribute.
// The portal emits relative paths with backslash separators; they resolve
// against the directory of the page that embeds them.
func ResolveURL(pageURL, ref string) string {
	ref = strings.ReplaceAll(ref, "\\", "/")
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	base := pageURL
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[:i]
	}
	return base + "/" + strings.TrimPrefix(ref, "/")
}
