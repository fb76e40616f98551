// Package render owns the headless rendering surfaces and the bounded pool
// that makes concurrent use of them safe.
package render

import "context"

// Surface is one off-screen layout/paint engine capable of loading HTML and
// capturing a pixel snapshot at a fixed viewport. Surfaces are not safe for
// concurrent use; the Pool hands each one to a single caller at a time.
type Surface interface {
	// Capture loads the document, waits for layout to settle, and returns a
	// PNG snapshot of exactly width x height pixels.
	Capture(ctx context.Context, html string, width, height int64) ([]byte, error)

	// Close tears the surface down. A closed surface must not be reused.
	Close()
}

// Factory builds a fresh surface. The pool calls it lazily on first checkout
// and again whenever a crashed surface is discarded.
type Factory func() (Surface, error)
