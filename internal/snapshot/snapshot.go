// Package snapshot keeps raw copies of fetched pages that yielded no products.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

type Saver struct {
	log *slog.Logger
	dir string
}

func NewSaver(log *slog.Logger, dir string) *Saver {
	return &Saver{log: log, dir: dir}
}

// Save writes content to <dir>/<uuid>.html and returns the file path.
func (s *Saver) Save(ctx context.Context, pageURL, content string) (string, error) {
	const opn = "snapshot.Save"

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", opn, err)
	}

	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return "", fmt.Errorf("%s: failed to create directory '%s': %w", opn, s.dir, err)
	}

	path := filepath.Join(s.dir, uuid.New().String()+".html")
	if err := os.WriteFile(path, []byte(content), filePerm); err != nil {
		return "", fmt.Errorf("%s: failed to write snapshot to '%s': %w", opn, path, err)
	}

	s.log.DebugContext(ctx, "snapshot written", "op", opn, "url", pageURL, "path", path, "bytes", len(content))

	return path, nil
}
