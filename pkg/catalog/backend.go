package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const (
	BackendFile = "file"
	BackendBolt = "bolt"

	lockRetryDelay = 25 * time.Millisecond
)

// Backend persists the whole catalog document as one blob.
type Backend interface {
	// Read returns the stored document, or nil when nothing was stored yet.
	Read(ctx context.Context) ([]byte, error)
	// Update runs fn with the current document under the backend's write lock
	// and stores its result. A nil result leaves storage untouched.
	Update(ctx context.Context, fn func(current []byte) ([]byte, error)) error
	Close() error
}

// OpenBackend opens the backend kind at path.
func OpenBackend(kind string, path string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", BackendFile:
		return NewFileBackend(path)
	case BackendBolt:
		return NewBoltBackend(path)
	default:
		return nil, fmt.Errorf("unsupported catalog backend %q", kind)
	}
}

// FileBackend stores the catalog as a JSON file replaced atomically on write.
// Writers serialize on an advisory lock file next to the document.
type FileBackend struct {
	path string
	lock *flock.Flock
	mu   sync.Mutex
}

// NewFileBackend prepares a file backend rooted at path.
func NewFileBackend(path string) (*FileBackend, error) {
	clean := filepath.Clean(strings.TrimSpace(path))
	if clean == "." || clean == "" {
		return nil, NewError(ErrorStorageUnavailable, "catalog path is required")
	}
	if err := os.MkdirAll(filepath.Dir(clean), 0o755); err != nil {
		return nil, storageError("create catalog directory", err)
	}

	return &FileBackend{
		path: clean,
		lock: flock.New(clean + ".lock"),
	}, nil
}

// Path returns the catalog document path.
func (b *FileBackend) Path() string {
	return b.path
}

func (b *FileBackend) Read(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("read catalog", err)
	}
	return data, nil
}

func (b *FileBackend) Update(ctx context.Context, fn func(current []byte) ([]byte, error)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	locked, err := b.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return storageError("lock catalog", err)
	}
	if !locked {
		return NewError(ErrorStorageUnavailable, "catalog lock not acquired")
	}
	defer func() {
		_ = b.lock.Unlock()
	}()

	current, err := b.Read(ctx)
	if err != nil {
		return err
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}

	return writeAtomic(b.path, next, 0o644)
}

func (b *FileBackend) Close() error {
	return b.lock.Close()
}

// writeAtomic replaces path with data through a temp file in the same
// directory so readers never observe a partial document.
func writeAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return storageError("create temp catalog", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return storageError("write temp catalog", err)
	}
	if err := tmp.Sync(); err != nil {
		return storageError("sync temp catalog", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return storageError("chmod temp catalog", err)
	}
	if err := tmp.Close(); err != nil {
		return storageError("close temp catalog", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return storageError("replace catalog", err)
	}

	return nil
}
