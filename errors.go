package corrmatrix

import (
	"errors"

	"github.com/hupe1980/corrmatrix/blobstore"
	"github.com/hupe1980/corrmatrix/codec"
	"github.com/hupe1980/corrmatrix/internal/ioerr"
	"github.com/hupe1980/corrmatrix/internal/lookup"
	"github.com/hupe1980/corrmatrix/internal/resource"
	"github.com/hupe1980/corrmatrix/matrix"
	"github.com/hupe1980/corrmatrix/neighbors"
)

var (
	// ErrMalformed is returned when a matrix row or token cannot be decoded.
	ErrMalformed = codec.ErrMalformed

	// ErrMalformedHeader is returned when the matrix preamble is invalid.
	ErrMalformedHeader = matrix.ErrMalformedHeader

	// ErrBudgetInvariant signals inconsistent element budget bookkeeping.
	ErrBudgetInvariant = resource.ErrBudgetInvariant

	// ErrCanceled is returned when a build stops on context cancellation.
	ErrCanceled = matrix.ErrCanceled

	// ErrInvalidThreshold is returned for a minimum common item count below 1.
	ErrInvalidThreshold = matrix.ErrInvalidThreshold

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = neighbors.ErrInvalidK

	// ErrNotFound is returned when a matrix or report does not exist.
	ErrNotFound = blobstore.ErrNotFound

	// ErrInvalidItem is returned when a repository yields a negative item id.
	ErrInvalidItem = lookup.ErrInvalidItem

	// ErrUnknownUser is returned by Correlation for a user id not in the
	// repository.
	ErrUnknownUser = errors.New("unknown user")

	// ErrNoRegistry is returned when the latest matrix is requested without
	// a registry.
	ErrNoRegistry = errors.New("no registry configured")
)

// IOError reports a failed IO operation and where it happened.
type IOError = ioerr.IOError

// Site identifies the operation an IOError comes from.
type Site = ioerr.Site

const (
	SiteInit  = ioerr.SiteInit
	SiteWrite = ioerr.SiteWrite
	SiteClose = ioerr.SiteClose
	SiteSpill = ioerr.SiteSpill
	SiteLoad  = ioerr.SiteLoad
)
