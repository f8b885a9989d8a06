// Package content persists uploaded document bytes under generated storage
// keys. The store is policy-free: type allow-listing is the caller's job
// (see Allowlist), the store only guarantees integrity hashing and
// collision-resistant keys.
package content

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileInfo describes stored content. Hash is the SHA-256 of the exact bytes
// received, computed before the write, never derived from a re-read.
type FileInfo struct {
	StorageKey string
	Size       int64
	MimeType   string
	Hash       string
}

// Store is the content-addressable blob contract.
type Store interface {
	Put(ctx context.Context, data []byte, originalName, mimeType string) (FileInfo, error)
	Get(ctx context.Context, storageKey string) ([]byte, error)
	// Delete returns false on a missing blob and never errors on one.
	Delete(ctx context.Context, storageKey string) bool
}

// FSStore keeps blobs as flat files in a single directory. The directory is
// created lazily on first write. Concurrent writers are safe because keys
// never collide: each combines a nanosecond timestamp, random suffix and the
// sanitized original name.
type FSStore struct {
	dir string
}

func NewFSStore(dir string) *FSStore {
	return &FSStore{dir: dir}
}

func (s *FSStore) Put(_ context.Context, data []byte, originalName, mimeType string) (FileInfo, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return FileInfo{}, fmt.Errorf("create upload dir: %w", err)
	}

	key, err := generateKey(originalName)
	if err != nil {
		return FileInfo{}, err
	}

	sum := sha256.Sum256(data)

	if err := os.WriteFile(filepath.Join(s.dir, key), data, 0o644); err != nil {
		return FileInfo{}, fmt.Errorf("write blob: %w", err)
	}

	return FileInfo{
		StorageKey: key,
		Size:       int64(len(data)),
		MimeType:   mimeType,
		Hash:       hex.EncodeToString(sum[:]),
	}, nil
}

func (s *FSStore) Get(_ context.Context, storageKey string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(storageKey)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

func (s *FSStore) Delete(_ context.Context, storageKey string) bool {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(storageKey)))
	return err == nil
}

// Hash returns the hex-encoded SHA-256 of data. Verification paths re-derive
// and compare; they never overwrite the hash recorded at upload.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func generateKey(originalName string) (string, error) {
	suffix := make([]byte, 6)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("generate storage key: %w", err)
	}
	return fmt.Sprintf("%d-%s-%s",
		time.Now().UnixNano(),
		hex.EncodeToString(suffix),
		sanitizeName(originalName),
	), nil
}

// sanitizeName strips path separators and whitespace so a hostile original
// name cannot escape the upload directory or break the key format.
func sanitizeName(name string) string {
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "." {
		name = "upload"
	}
	return name
}
