// Package uploads is the document storage collaborator boundary. The
// lifecycle engine only ever sees {name, url} descriptors; this local-disk
// implementation exists so the service runs without an external object
// store.
package uploads

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Store persists uploaded files and returns their retrieval URL.
type Store interface {
	Save(ctx context.Context, filename string, r io.Reader) (url string, err error)
}

// LocalStore writes files under a directory and serves them by URL prefix.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: baseURL}, nil
}

// Save writes the file under a random name, keeping the original extension
// so browsers render the document sensibly.
func (s *LocalStore) Save(_ context.Context, filename string, r io.Reader) (string, error) {
	stored := uuid.NewString() + filepath.Ext(filename)
	path := filepath.Join(s.dir, stored)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return s.baseURL + "/uploads/" + stored, nil
}
