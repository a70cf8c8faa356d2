// Package gcs stages files in Google Cloud Storage.
package gcs

import (
	"context"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/gcp"
	"github.com/relloyd/cdsync/logger"
)

const contentTypeCSV = "text/csv"

// writerFunc opens a writer for a new object. The object is committed by a successful Close.
type writerFunc func(ctx context.Context, bucket, key string) io.WriteCloser

// Stager uploads staged CSV files to a GCS bucket.
type Stager struct {
	log       logger.Logger
	bucket    string
	prefix    string
	client    *storage.Client
	newWriter writerFunc
}

// NewStager creates a storage client. bucket may be given as name or gs://name/prefix.
func NewStager(ctx context.Context, log logger.Logger, bucket string, creds gcp.Credentials) (*Stager, error) {
	name, prefix := ParseBucket(bucket)
	if name == "" {
		return nil, errors.New("please supply a GCS bucket name")
	}
	client, err := storage.NewClient(ctx, creds.ClientOptions()...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create storage client")
	}
	s := &Stager{log: log, bucket: name, prefix: prefix, client: client}
	s.newWriter = func(ctx context.Context, bucket, key string) io.WriteCloser {
		w := client.Bucket(bucket).Object(key).NewWriter(ctx)
		w.ContentType = contentTypeCSV
		return w
	}
	return s, nil
}

// ParseBucket splits [gs://]bucket[/prefix] into its parts.
func ParseBucket(s string) (name string, prefix string) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "gs://")
	if idx := strings.Index(s, "/"); idx >= 0 {
		return s[:idx], strings.Trim(s[idx+1:], "/")
	}
	return s, ""
}

// Upload copies localFile to key, replacing any existing object.
func (s *Stager) Upload(ctx context.Context, localFile string, key string) (err error) {
	f, err := os.Open(localFile)
	if err != nil {
		return errors.Wrapf(err, "error opening file %v", localFile)
	}
	defer f.Close()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel() // a cancelled context aborts an unfinished writer.
	w := s.newWriter(ctx, s.bucket, s.objectName(key))
	if _, err := io.Copy(w, f); err != nil {
		cancel()
		_ = w.Close()
		return errors.Wrapf(err, "error writing %v", s.URI(key))
	}
	if err := w.Close(); err != nil {
		return errors.Wrapf(err, "error committing %v", s.URI(key))
	}
	s.log.Debug("uploaded ", localFile, " to ", s.URI(key))
	return nil
}

// URI returns the gs:// location of key.
func (s *Stager) URI(key string) string {
	return "gs://" + s.bucket + "/" + s.objectName(key)
}

// Close releases the storage client.
func (s *Stager) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *Stager) objectName(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + strings.TrimLeft(key, "/")
}
