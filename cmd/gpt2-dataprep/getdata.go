package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"

	"github.com/trisongz/gpt2-text-generation/pkg/storage"
)

// RunGetData copies src into dst, defaulting dst to data/raw/<basename>.
func RunGetData(ctx context.Context, st storage.Storage, src, dst string, w io.Writer) error {
	if src == "" {
		return fmt.Errorf("get-data: missing source location")
	}
	if dst == "" {
		u, err := url.Parse(src)
		if err != nil {
			return fmt.Errorf("get-data: %w", err)
		}
		name := deriveBase(u.Path, "")
		if name == "" || name == "." || name == "/" {
			return fmt.Errorf("get-data: cannot derive a file name from %s; pass --out", src)
		}
		dst = filepath.Join(dirRaw, name)
	}
	if storage.SchemeOf(dst) == storage.SchemeHTTP {
		return fmt.Errorf("get-data: %s: %w", dst, storage.ErrReadOnly)
	}
	n, err := storage.Copy(ctx, st, src, dst)
	if err != nil {
		return fmt.Errorf("get-data: %w", err)
	}
	fmt.Fprintf(w, "wrote %s (%d bytes)\n", dst, n)
	return nil
}
