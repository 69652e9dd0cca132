package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"CandleNet/internal/domain/models"
	domrepo "CandleNet/internal/domain/repository"
)

// FileArrayCache keeps arrays as .npy files under dir/cache/<symbol>/<partition>/<horizon>.
type FileArrayCache struct {
	dir string
}

func NewFileArrayCache(dir string) *FileArrayCache {
	return &FileArrayCache{dir: dir}
}

// Dir is where arrays for id are written.
func (c *FileArrayCache) Dir(id models.Identity) string {
	return filepath.Join(c.dir, "cache", id.Path())
}

func (c *FileArrayCache) Load(_ context.Context, id models.Identity) (*domrepo.CachedArrays, bool, error) {
	dir := c.Dir(id)
	e := &encodedArrays{}
	for name, dst := range map[string]*[]byte{
		manifestName: &e.manifest,
		labelsName:   &e.labels,
		featuresName: &e.features,
	} {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("read cached %s: %w", name, err)
		}
		*dst = b
	}
	arrays, err := decodeArrays(e)
	if err != nil {
		return nil, false, err
	}
	return arrays, true, nil
}

// Store writes the arrays first and the manifest last, so a partial write reads as a miss.
func (c *FileArrayCache) Store(_ context.Context, a *domrepo.CachedArrays) error {
	e, err := encodeArrays(a)
	if err != nil {
		return err
	}
	dir := c.Dir(a.Dataset.Identity)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	_ = os.Remove(filepath.Join(dir, manifestName))
	for _, f := range []struct {
		name string
		body []byte
	}{
		{labelsName, e.labels},
		{featuresName, e.features},
		{manifestName, e.manifest},
	} {
		if err := os.WriteFile(filepath.Join(dir, f.name), f.body, 0o644); err != nil {
			return fmt.Errorf("write cached %s: %w", f.name, err)
		}
	}
	return nil
}

func (c *FileArrayCache) Invalidate(_ context.Context, id models.Identity) error {
	if err := os.RemoveAll(c.Dir(id)); err != nil {
		return fmt.Errorf("invalidate cache: %w", err)
	}
	return nil
}
