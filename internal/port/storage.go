package port

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

// ErrObjectNotFound is returned when a reference dataset or report key is
// absent from the audit bucket.
var ErrObjectNotFound = errors.New("object not found")

// ReportObject is a rendered batch report ready for archiving.
type ReportObject struct {
	Bucket string
	Key    string
	Body   io.Reader
	Size   int64
	// ContentType defaults to UTF-8 CSV.
	ContentType string
}

// ArchivedReport locates a report once it is stored.
type ArchivedReport struct {
	Location string
	ETag     string
}

// AuditStorage is the bucket behind the audit service: reference datasets are
// fetched from it and batch reports are archived to it.
type AuditStorage interface {
	// FetchReference downloads one reference dataset. A missing key yields
	// an error wrapping ErrObjectNotFound.
	FetchReference(ctx context.Context, bucket, key string) ([]byte, error)
	ArchiveReport(ctx context.Context, obj ReportObject) (*ArchivedReport, error)
	// ReportURL returns a time-limited download link for an archived report.
	ReportURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// ReferenceKey joins a bucket prefix and a dataset file name.
func ReferenceKey(prefix, file string) string {
	return path.Join(strings.Trim(prefix, "/"), file)
}

// ReportKey places a report under prefix in a UTC date partition, e.g.
// "reports/2024/12/01/batch_101500_ab12cd34_2024-12-01.csv".
func ReportKey(prefix string, at time.Time, file string) string {
	return path.Join(strings.Trim(prefix, "/"), at.UTC().Format("2006/01/02"), file)
}
