// Package source provides the collaborators that hand raw calendar
// documents to the engine: a file system (embedded or on disk) and a
// remote HTTP server. The SQLite store in internal/database is a third.
package source

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// FS reads documents from a file system, typically data.FS or os.DirFS.
type FS struct {
	fsys fs.FS
	root string
}

// NewFS returns a fetcher reading paths below root in fsys. An empty root
// means the top of fsys.
func NewFS(fsys fs.FS, root string) *FS {
	return &FS{fsys: fsys, root: strings.Trim(root, "/")}
}

// Fetch reads one document. The context is only checked before reading.
func (f *FS) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := cleanPath(name)
	if err != nil {
		return nil, err
	}
	if f.root != "" {
		p = path.Join(f.root, p)
	}

	data, err := fs.ReadFile(f.fsys, p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return data, nil
}

// cleanPath rejects absolute and parent-relative document paths.
func cleanPath(name string) (string, error) {
	p := path.Clean(strings.TrimPrefix(name, "/"))
	if p == "." || !fs.ValidPath(p) {
		return "", fmt.Errorf("invalid document path %q", name)
	}
	return p, nil
}
