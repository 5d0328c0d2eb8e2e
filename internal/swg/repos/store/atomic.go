package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-retry"
)

// writeRetries bounds how often a failed durable write is reattempted before
// the failure is reported. The in-memory table keeps serving either way.
const writeRetries = 3

// writeFileAtomic replaces path with data using write-to-temp-then-rename so
// readers only ever observe a complete file. Transient filesystem errors are
// retried with a short backoff.
func writeFileAtomic(path string, data []byte) error {
	b := retry.NewConstant(50 * time.Millisecond)
	return retry.Do(context.Background(), retry.WithMaxRetries(writeRetries, b), func(ctx context.Context) error {
		if err := replaceFile(path, data); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// replaceFile performs a single temp-write-sync-rename cycle.
func replaceFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
