package services

import "errors"

// Sentinel errors for the failure classes the pipeline distinguishes.
// Per-page and per-group failures are caught at their local boundary and
// become a status; only ErrMissingInputDir aborts the run.
var (
	// ErrMissingInputDir means the required input directory does not
	// exist. Fatal precondition: the process exits non-zero.
	ErrMissingInputDir = errors.New("input directory does not exist")

	// ErrSourceUnreadable means the multi-page source artifact could not
	// be opened or parsed, so no pages can be produced for this batch.
	ErrSourceUnreadable = errors.New("source document unreadable")

	// ErrPageUnreadable means a single split page could not be rendered
	// to text. Per-page, never fatal to the batch.
	ErrPageUnreadable = errors.New("page unreadable")

	// ErrClassificationIncomplete means a mandatory field could not be
	// extracted from a page's text.
	ErrClassificationIncomplete = errors.New("mandatory field missing")
)
