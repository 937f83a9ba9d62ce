// Package output provides the file-backed byte sink compiled code is written
// to.
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// File is an output file opened for writing. Errors from opening, writing
// or closing it are latched: once one happens HasError reports true and
// every later operation fails with the same error.
type File struct {
	path   string
	f      *os.File
	w      *bufio.Writer
	err    error
	closed bool
}

// Create opens path for writing, truncating it. Failures are latched in the
// returned File rather than returned, so callers can hand the File to the
// compiler and let it report the bad state.
func Create(path string) *File {
	out := &File{path: path}
	f, err := os.Create(path)
	if err != nil {
		out.err = fmt.Errorf("cannot create %s: %w", path, err)
		return out
	}
	out.f = f
	return out
}

// Path returns the file's path.
func (f *File) Path() string { return f.path }

// HasError reports whether the file is unusable.
func (f *File) HasError() bool { return f.err != nil }

// Err returns the latched error, if any.
func (f *File) Err() error { return f.err }

// Writer returns a buffered writer for the file. Writes that fail are
// latched.
func (f *File) Writer() (io.Writer, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.closed {
		return nil, fmt.Errorf("%s is closed", f.path)
	}
	if f.w == nil {
		f.w = bufio.NewWriter(latchWriter{f})
	}
	return f.w, nil
}

type latchWriter struct {
	f *File
}

func (lw latchWriter) Write(p []byte) (int, error) {
	if lw.f.err != nil {
		return 0, lw.f.err
	}
	n, err := lw.f.f.Write(p)
	if err != nil {
		lw.f.err = fmt.Errorf("write %s: %w", lw.f.path, err)
		return n, lw.f.err
	}
	return n, nil
}

// Close flushes buffered data and closes the file.
func (f *File) Close() error {
	if f.closed || f.f == nil {
		return f.err
	}
	f.closed = true
	if f.w != nil {
		if err := f.w.Flush(); err != nil && f.err == nil {
			f.err = err
		}
	}
	if err := f.f.Close(); err != nil && f.err == nil {
		f.err = fmt.Errorf("close %s: %w", f.path, err)
	}
	return f.err
}

// Discard closes the file and removes it, leaving no partial output behind.
func (f *File) Discard() error {
	if f.f == nil {
		return nil
	}
	if !f.closed {
		f.closed = true
		f.f.Close()
	}
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
