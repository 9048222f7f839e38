// Package source defines the per-site adapter contract the orchestration
// core consumes, plus a generic selector-driven implementation. Adapters
// perform the actual page retrieval and field extraction; deciding when to
// escalate from a static fetch to a rendered one is not their job.
package source

import (
	"context"

	"github.com/use-agent/pricescope/identity"
	"github.com/use-agent/pricescope/models"
)

// Adapter is the capability contract every configured source implements.
// Both fetch kinds must honor ctx cancellation and must not retain or mutate
// the identity they receive.
type Adapter interface {
	ID() models.SourceID

	// FetchStatic performs a lightweight, non-rendering retrieval of the
	// source's search page for the query.
	FetchStatic(ctx context.Context, query string, ident identity.Identity) (*models.RawFields, error)

	// FetchRendered performs a full browser-engine retrieval that executes
	// page scripts before extraction.
	FetchRendered(ctx context.Context, query string, ident identity.Identity) (*models.RawFields, error)
}

// RenderFunc retrieves a fully rendered page body. It is injected from main
// so this package never imports the browser plumbing directly.
type RenderFunc func(ctx context.Context, url, userAgent string) (string, error)
