package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPStorage reads http(s):// locations. It cannot create artifacts.
type HTTPStorage struct {
	client *http.Client
}

// NewHTTPStorage returns an HTTPStorage. A nil client gets a 15s timeout.
func NewHTTPStorage(client *http.Client) *HTTPStorage {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPStorage{client: client}
}

// Open implements Storage.
func (h *HTTPStorage) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return resp.Body, nil
}

// Create implements Storage.
func (h *HTTPStorage) Create(context.Context, string) (Artifact, error) {
	return nil, ErrReadOnly
}

// Exists implements Storage.
func (h *HTTPStorage) Exists(ctx context.Context, location string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, location, nil)
	if err != nil {
		return false, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return false, err
	}
	resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected status: %s", resp.Status)
	}
}
