package s3_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gstaudit/internal/config"
	"gstaudit/internal/port"
	s3storage "gstaudit/internal/storage/s3"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	headers map[string]http.Header
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = data
		f.headers[r.URL.Path] = r.Header.Clone()
		w.Header().Set("ETag", `"etag-1"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		data, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`))
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		_, _ = w.Write(data)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newStorage(t *testing.T) (port.AuditStorage, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string][]byte{}, headers: map[string]http.Header{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := s3storage.NewS3Client(context.Background(), &config.S3Config{
		Region:    "ap-south-1",
		Endpoint:  srv.URL,
		AccessKey: "test",
		SecretKey: "test",
	})
	require.NoError(t, err)
	return store, fake
}

func TestS3Client_ArchiveReport(t *testing.T) {
	store, fake := newStorage(t)
	at := time.Date(2024, 12, 1, 10, 15, 0, 0, time.UTC)
	key := port.ReportKey("/reports/", at, "batch_101500_ab12cd34_2024-12-01.csv")
	require.Equal(t, "reports/2024/12/01/batch_101500_ab12cd34_2024-12-01.csv", key)

	body := []byte("run_id,invoice_id\n")
	out, err := store.ArchiveReport(context.Background(), port.ReportObject{
		Bucket: "gstaudit-data",
		Key:    key,
		Body:   bytes.NewReader(body),
		Size:   int64(len(body)),
	})
	require.NoError(t, err)
	assert.Equal(t, `"etag-1"`, out.ETag)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	_, ok := fake.objects["/gstaudit-data/"+key]
	require.True(t, ok)
	h := fake.headers["/gstaudit-data/"+key]
	assert.Equal(t, "text/csv; charset=utf-8", h.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="batch_101500_ab12cd34_2024-12-01.csv"`, h.Get("Content-Disposition"))
}

func TestS3Client_FetchReference(t *testing.T) {
	store, fake := newStorage(t)
	ctx := context.Background()

	vendors := []byte(`{"vendors":[]}`)
	fake.mu.Lock()
	fake.objects["/gstaudit-data/reference/vendor_registry.json"] = vendors
	fake.mu.Unlock()

	data, err := store.FetchReference(ctx, "gstaudit-data", port.ReferenceKey("/reference/", "vendor_registry.json"))
	require.NoError(t, err)
	assert.Equal(t, vendors, data)

	_, err = store.FetchReference(ctx, "gstaudit-data", "reference/tds_sections.json")
	assert.ErrorIs(t, err, port.ErrObjectNotFound)
}

func TestS3Client_ReportURL(t *testing.T) {
	store, _ := newStorage(t)
	url, err := store.ReportURL(context.Background(), "gstaudit-data", "reports/2024/12/01/batch-1.csv", 15*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "/gstaudit-data/reports/2024/12/01/batch-1.csv")
	assert.Contains(t, url, "X-Amz-Expires=900")
}
