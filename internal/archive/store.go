package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/wolfman30/oneroot-leads/internal/leads"
	"github.com/wolfman30/oneroot-leads/pkg/logging"
)

const (
	exportPrefix = "leads/exports"
	manifestKey  = exportPrefix + "/manifest.jsonl"
)

// S3API is the subset of the S3 client used by ExportStore.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ManifestEntry is one line of the export manifest.
type ManifestEntry struct {
	Key        string `json:"key"`
	LeadCount  int    `json:"lead_count"`
	ExportedAt string `json:"exported_at"`
}

// ExportStore uploads CSV snapshots of the fallback lead list to S3.
type ExportStore struct {
	bucket   string
	s3Client S3API
	logger   *logging.Logger
}

// NewExportStore creates an export store. With no bucket every call is a no-op.
func NewExportStore(s3Client S3API, bucket string, logger *logging.Logger) *ExportStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &ExportStore{bucket: bucket, s3Client: s3Client, logger: logger}
}

// Enabled reports whether a bucket and client are configured.
func (s *ExportStore) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// ArchiveLeads uploads rows as CSV and records the upload in the manifest.
// It returns the object key, or "" when archiving is disabled.
func (s *ExportStore) ArchiveLeads(ctx context.Context, rows []leads.Lead, now time.Time) (string, error) {
	if !s.Enabled() {
		return "", nil
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		return "", err
	}

	now = now.UTC()
	key := fmt.Sprintf("%s/%d/%02d/%02d/oneroot_phone_numbers_%s.csv",
		exportPrefix, now.Year(), now.Month(), now.Day(), now.Format("20060102T150405Z"))

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("text/csv; charset=utf-8"),
	})
	if err != nil {
		return "", fmt.Errorf("archive: s3 put %s: %w", key, err)
	}
	s.logger.Info("archived lead export to S3", "s3_key", key, "lead_count", len(rows))

	entry := ManifestEntry{Key: key, LeadCount: len(rows), ExportedAt: now.Format(time.RFC3339)}
	if err := s.appendManifest(ctx, entry); err != nil {
		// The export itself is stored; the manifest is an index.
		s.logger.Warn("failed to append export manifest", "error", err, "s3_key", key)
	}
	return key, nil
}

// appendManifest does a read-modify-write; S3 has no append.
func (s *ExportStore) appendManifest(ctx context.Context, entry ManifestEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("archive: marshal manifest entry: %w", err)
	}

	var existing []byte
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(manifestKey),
	})
	switch {
	case err == nil:
		existing, err = io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("archive: read manifest: %w", err)
		}
	case isNotFound(err):
		s.logger.Debug("export manifest not found, creating new", "key", manifestKey)
	default:
		return fmt.Errorf("archive: get manifest: %w", err)
	}

	var buf bytes.Buffer
	if len(existing) > 0 {
		buf.Write(existing)
		if existing[len(existing)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	buf.Write(line)
	buf.WriteByte('\n')

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(manifestKey),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put manifest: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "NoSuchKey") || strings.Contains(msg, "StatusCode: 404")
}
