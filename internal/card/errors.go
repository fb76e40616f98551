package card

import "errors"

var (
	// ErrUnknownTemplate means the requested template id is not registered.
	// This is a configuration defect, not a user mistake.
	ErrUnknownTemplate = errors.New("card: unknown template")

	// ErrCapture means the snapshot failed twice, once on a fresh surface.
	ErrCapture = errors.New("card: capture failed")
)
