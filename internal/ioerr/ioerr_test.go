package ioerr

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIOError(t *testing.T) {
	err := error(New(SiteSpill, 7, "/tmp/x.tmp", io.ErrShortWrite))

	assert.ErrorIs(t, err, io.ErrShortWrite)
	assert.Equal(t, "spill failed (row 7): /tmp/x.tmp: short write", err.Error())

	var ioe *IOError
	require.True(t, errors.As(err, &ioe))
	assert.Equal(t, SiteSpill, ioe.Site)
}

func TestIOError_NoRow(t *testing.T) {
	err := New(SiteInit, -1, "", io.EOF)
	assert.Equal(t, "init failed: EOF", err.Error())
}

func TestSiteString(t *testing.T) {
	assert.Equal(t, "load", SiteLoad.String())
	assert.Equal(t, "close", SiteClose.String())
	assert.Equal(t, "site(42)", Site(42).String())
}
