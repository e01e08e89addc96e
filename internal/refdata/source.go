package refdata

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"gstaudit/internal/port"
)

// Source yields the raw bytes of a named reference file.
type Source interface {
	ReadFile(ctx context.Context, name string) ([]byte, error)
	String() string
}

// FSSource reads reference files from a filesystem, usually os.DirFS.
type FSSource struct {
	FS   fs.FS
	Name string
}

func (s FSSource) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(s.FS, name)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

func (s FSSource) String() string {
	if s.Name != "" {
		return "dir:" + s.Name
	}
	return "fs"
}

// ObjectSource reads reference files from an object storage bucket.
type ObjectSource struct {
	Storage port.AuditStorage
	Bucket  string
	Prefix  string
}

func (s ObjectSource) ReadFile(ctx context.Context, name string) ([]byte, error) {
	return s.Storage.FetchReference(ctx, s.Bucket, port.ReferenceKey(s.Prefix, name))
}

func (s ObjectSource) String() string {
	return fmt.Sprintf("s3://%s/%s", s.Bucket, strings.Trim(s.Prefix, "/"))
}
