package matrix

import (
	"errors"

	"github.com/hupe1980/corrmatrix/internal/ioerr"
)

var (
	// ErrCanceled is returned when the build context is done between rows.
	ErrCanceled = errors.New("matrix build canceled")

	// ErrInvalidThreshold is returned for a minimum common item count below 1.
	ErrInvalidThreshold = errors.New("minimum common items must be at least 1")

	// ErrMalformedHeader is returned when the matrix header cannot be parsed.
	ErrMalformedHeader = errors.New("malformed matrix header")
)

// IOError reports an I/O failure together with the site it occurred at.
type IOError = ioerr.IOError

// Site identifies where an IOError occurred.
type Site = ioerr.Site

const (
	SiteInit  = ioerr.SiteInit
	SiteWrite = ioerr.SiteWrite
	SiteClose = ioerr.SiteClose
	SiteSpill = ioerr.SiteSpill
	SiteLoad  = ioerr.SiteLoad
)
