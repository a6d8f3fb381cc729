package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage serves plain filesystem paths. A file:// prefix is accepted.
type LocalStorage struct{}

// NewLocalStorage returns a LocalStorage.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{}
}

func localPath(location string) string {
	return strings.TrimPrefix(location, "file://")
}

// Open implements Storage.
func (l *LocalStorage) Open(_ context.Context, location string) (io.ReadCloser, error) {
	return os.Open(localPath(location))
}

// Create writes into a hidden temp file next to the target and renames it
// into place on Commit.
func (l *LocalStorage) Create(_ context.Context, location string) (Artifact, error) {
	p := localPath(location)
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(p)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", p, err)
	}
	return &localArtifact{f: f, target: p}, nil
}

// Exists implements Storage.
func (l *LocalStorage) Exists(_ context.Context, location string) (bool, error) {
	_, err := os.Stat(localPath(location))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

type localArtifact struct {
	f      *os.File
	target string
	done   bool
}

func (a *localArtifact) Write(p []byte) (int, error) {
	return a.f.Write(p)
}

func (a *localArtifact) Commit() error {
	if a.done {
		return nil
	}
	a.done = true
	tmp := a.f.Name()
	if err := a.f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("chmod %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, a.target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", a.target, err)
	}
	return nil
}

func (a *localArtifact) Abort() error {
	if a.done {
		return nil
	}
	a.done = true
	_ = a.f.Close()
	if err := os.Remove(a.f.Name()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
