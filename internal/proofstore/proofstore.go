// Package proofstore persists resolution evidence blobs. The filesystem
// implementation writes under a base directory and returns URLs rooted at
// a configured public base, mirroring the object-store layout
// proofs/{complaintId}_{fileName}.
package proofstore

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FS stores proofs on the local filesystem.
type FS struct {
	dir     string
	baseURL string
}

// NewFS creates a filesystem proof store rooted at dir. Returned URLs are
// baseURL + "/" + key.
func NewFS(dir, baseURL string) (*FS, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create proof dir: %w", err)
	}
	return &FS{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Put writes the payload under key and returns its public URL. The write
// goes through a uniquely named temp file and a rename so concurrent
// readers never observe a partial proof.
func (s *FS) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	rel := filepath.FromSlash(key)
	if strings.Contains(rel, "..") || filepath.IsAbs(rel) {
		return "", fmt.Errorf("invalid proof key %q", key)
	}
	dst := filepath.Join(s.dir, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return "", fmt.Errorf("create proof subdir: %w", err)
	}

	tmp := dst + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return "", fmt.Errorf("write proof: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("finalize proof: %w", err)
	}

	segs := strings.Split(key, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/" + strings.Join(segs, "/"), nil
}
