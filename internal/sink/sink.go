// Package sink appends rendered log lines to pattern destination files.
package sink

import (
	"fmt"
	"os"
)

// WriteError reports a destination that is unwritable or became
// unwritable mid-run.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("sink %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Writer is a scoped append-mode destination: opened when a worker starts
// and closed on every exit path.
type Writer struct {
	path string
	file *os.File
}

// Open opens (creating if needed) the destination for appending.
func Open(path string) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, &WriteError{Path: path, Err: err}
	}
	return &Writer{path: path, file: file}, nil
}

// WriteLine appends one newline-terminated line in a single write call.
// With O_APPEND that keeps lines intact even when two patterns share a
// destination.
func (w *Writer) WriteLine(line string) error {
	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')
	if _, err := w.file.Write(buf); err != nil {
		return &WriteError{Path: w.path, Err: err}
	}
	return nil
}

func (w *Writer) Close() error {
	return w.file.Close()
}
