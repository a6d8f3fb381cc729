// Package storage addresses inputs and artifacts by location: a local path,
// an s3://bucket/key URL, or a read-only http(s):// URL.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrReadOnly is returned when writing to a backend that only serves reads.
var ErrReadOnly = errors.New("storage: location is read-only")

// Artifact is an output object being written. Nothing is visible at the
// target location until Commit succeeds; Abort discards what was written.
// Calling either after the other has run is a no-op.
type Artifact interface {
	io.Writer
	Commit() error
	Abort() error
}

// Storage defines the operations the pipeline needs from a backend.
type Storage interface {
	// Open opens location for reading.
	Open(ctx context.Context, location string) (io.ReadCloser, error)

	// Create starts a new artifact at location, replacing any existing
	// object on Commit.
	Create(ctx context.Context, location string) (Artifact, error)

	// Exists reports whether location holds an object.
	Exists(ctx context.Context, location string) (bool, error)
}

// Options configure a Mux.
type Options struct {
	S3         S3Config
	HTTPClient *http.Client
	// S3Client overrides the client built from S3. Used by tests.
	S3Client S3API
}

// Mux routes each location to the backend its scheme selects.
type Mux struct {
	opts  Options
	local *LocalStorage
	http  *HTTPStorage
	s3    *S3Storage
}

// New returns a Mux. The S3 client is only built when an s3:// location is
// first used.
func New(opts Options) *Mux {
	return &Mux{
		opts:  opts,
		local: NewLocalStorage(),
		http:  NewHTTPStorage(opts.HTTPClient),
	}
}

// Scheme classifies a location.
type Scheme string

const (
	SchemeLocal Scheme = "file"
	SchemeS3    Scheme = "s3"
	SchemeHTTP  Scheme = "http"
)

// SchemeOf returns the backend scheme of location.
func SchemeOf(location string) Scheme {
	switch {
	case strings.HasPrefix(location, "s3://"):
		return SchemeS3
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return SchemeHTTP
	default:
		return SchemeLocal
	}
}

func (m *Mux) backend(ctx context.Context, location string) (Storage, error) {
	switch SchemeOf(location) {
	case SchemeS3:
		if m.s3 == nil {
			client := m.opts.S3Client
			if client == nil {
				c, err := NewS3Client(ctx, m.opts.S3)
				if err != nil {
					return nil, fmt.Errorf("storage: s3 client: %w", err)
				}
				client = c
			}
			m.s3 = NewS3Storage(client)
		}
		return m.s3, nil
	case SchemeHTTP:
		return m.http, nil
	default:
		return m.local, nil
	}
}

// Open implements Storage.
func (m *Mux) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	b, err := m.backend(ctx, location)
	if err != nil {
		return nil, err
	}
	return b.Open(ctx, location)
}

// Create implements Storage.
func (m *Mux) Create(ctx context.Context, location string) (Artifact, error) {
	b, err := m.backend(ctx, location)
	if err != nil {
		return nil, err
	}
	return b.Create(ctx, location)
}

// Exists implements Storage.
func (m *Mux) Exists(ctx context.Context, location string) (bool, error) {
	b, err := m.backend(ctx, location)
	if err != nil {
		return false, err
	}
	return b.Exists(ctx, location)
}

// ReadAll reads the whole object at location.
func ReadAll(ctx context.Context, s Storage, location string) ([]byte, error) {
	r, err := s.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// WriteAll replaces the object at location with data.
func WriteAll(ctx context.Context, s Storage, location string, data []byte) error {
	a, err := s.Create(ctx, location)
	if err != nil {
		return err
	}
	if _, err := a.Write(data); err != nil {
		_ = a.Abort()
		return err
	}
	return a.Commit()
}

// Copy streams src into dst and returns the number of bytes copied.
func Copy(ctx context.Context, s Storage, src, dst string) (int64, error) {
	r, err := s.Open(ctx, src)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", src, err)
	}
	defer r.Close()
	a, err := s.Create(ctx, dst)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dst, err)
	}
	n, err := io.Copy(a, r)
	if err != nil {
		_ = a.Abort()
		return n, fmt.Errorf("copy %s: %w", src, err)
	}
	if err := a.Commit(); err != nil {
		return n, fmt.Errorf("commit %s: %w", dst, err)
	}
	return n, nil
}
