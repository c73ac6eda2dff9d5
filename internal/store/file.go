package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"

	"github.com/thiagokokada/gitk-sync/internal/vcs"
)

const fileSuffix = ".refs.lz4"

// FileStore keeps one lz4 compressed snapshot file per root in a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file store: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file store: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// DefaultDir is the snapshot directory under the user cache dir.
func DefaultDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "gitk-sync")
}

func (s *FileStore) path(root string) string {
	return filepath.Join(s.dir, rootKey(root)+fileSuffix)
}

func (s *FileStore) Load(ctx context.Context, root string) ([]vcs.Ref, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(root))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load refs of %s: %w", root, err)
	}
	defer f.Close()
	refs, err := DecodeRefs(lz4.NewReader(f))
	if err != nil {
		return refs, fmt.Errorf("load refs of %s: %w", root, err)
	}
	return refs, nil
}

// Save replaces the snapshot of root atomically.
func (s *FileStore) Save(ctx context.Context, root string, refs []vcs.Ref) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if err := EncodeRefs(zw, refs); err != nil {
		return fmt.Errorf("save refs of %s: %w", root, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("save refs of %s: %w", root, err)
	}

	tmp, err := os.CreateTemp(s.dir, "refs-*.tmp")
	if err != nil {
		return fmt.Errorf("save refs of %s: %w", root, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("save refs of %s: %w", root, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save refs of %s: %w", root, err)
	}
	if err := os.Rename(tmp.Name(), s.path(root)); err != nil {
		return fmt.Errorf("save refs of %s: %w", root, err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
