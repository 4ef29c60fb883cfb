// Package ioerr defines the I/O failure type shared by the matrix builder
// and the row store. Each failure carries the site where it happened so the
// command line can map it to an exit status.
package ioerr

import (
	"fmt"
	"strconv"
)

// Site identifies where an I/O failure occurred.
type Site uint8

const (
	SiteInit Site = iota + 1 // writing the header
	SiteWrite                // writing a matrix row
	SiteClose                // flushing or closing the output
	SiteSpill                // appending a segment to a spill file
	SiteLoad                 // reading a spill file back
)

func (s Site) String() string {
	switch s {
	case SiteInit:
		return "init"
	case SiteWrite:
		return "write"
	case SiteClose:
		return "close"
	case SiteSpill:
		return "spill"
	case SiteLoad:
		return "load"
	default:
		return "site(" + strconv.Itoa(int(s)) + ")"
	}
}

// IOError is an I/O failure at a known site. Row is -1 when the failure is
// not tied to a row.
type IOError struct {
	Site Site
	Row  int
	Path string
	Err  error
}

// New returns an *IOError for site.
func New(site Site, row int, path string, err error) *IOError {
	return &IOError{Site: site, Row: row, Path: path, Err: err}
}

func (e *IOError) Error() string {
	msg := e.Site.String() + " failed"
	if e.Row >= 0 {
		msg += fmt.Sprintf(" (row %d)", e.Row)
	}
	if e.Path != "" {
		msg += ": " + e.Path
	}
	return msg + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error { return e.Err }
