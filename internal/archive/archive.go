// Package archive publishes encrypted distribution snapshots to S3-compatible
// object storage so other deployments can pull them.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/hhsynth/internal/distribution"
)

// ErrNotConfigured is returned when bucket or credentials are missing.
var ErrNotConfigured = errors.New("archive not configured: bucket and credentials required")

const objectSuffix = ".json.enc"

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Config holds S3-compatible storage settings.
type Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	// Prefix is prepended to every object key, e.g. "staging/".
	Prefix string
}

func (c Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Entry describes one archived snapshot.
type Entry struct {
	Region   string
	Period   string
	Key      string
	Size     int64
	Modified time.Time
}

type Archive struct {
	client s3Client
	bucket string
	prefix string
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) (*Archive, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := s3.Options{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return newWithClient(s3.New(opts), cfg.Bucket, cfg.Prefix, logger), nil
}

func newWithClient(client s3Client, bucket, prefix string, logger *slog.Logger) *Archive {
	return &Archive{client: client, bucket: bucket, prefix: prefix, logger: logger}
}

// Key returns the object key for a region and period.
func (a *Archive) Key(region, period string) string {
	return fmt.Sprintf("%ssnapshots/%s/%s%s", a.prefix, strings.ToUpper(region), period, objectSuffix)
}

// Push encrypts snap and uploads it, replacing any previous archive for the
// same region and period. It returns the object key and size.
func (a *Archive) Push(ctx context.Context, snap *distribution.Snapshot, passphrase string) (string, int64, error) {
	if passphrase == "" {
		return "", 0, errors.New("archive passphrase required")
	}
	plaintext, err := json.Marshal(snap)
	if err != nil {
		return "", 0, fmt.Errorf("encode snapshot: %w", err)
	}
	sealed, err := Seal(passphrase, plaintext)
	if err != nil {
		return "", 0, err
	}

	key := a.Key(snap.Region, snap.Period)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return "", 0, fmt.Errorf("upload %s: %w", key, err)
	}
	a.logger.Info("snapshot archived", "key", key, "bytes", len(sealed), "tables", len(snap.Tables))
	return key, int64(len(sealed)), nil
}

// Pull downloads, decrypts and validates an archived snapshot.
func (a *Archive) Pull(ctx context.Context, region, period, passphrase string) (*distribution.Snapshot, error) {
	key := a.Key(region, period)
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	defer out.Body.Close()

	sealed, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	plaintext, err := Open(passphrase, sealed)
	if err != nil {
		return nil, err
	}
	snap, err := distribution.ParseSnapshot(plaintext, "json")
	if err != nil {
		return nil, fmt.Errorf("archived snapshot %s: %w", key, err)
	}
	return snap, nil
}

// List returns the archived snapshots sorted by region and period.
func (a *Archive) List(ctx context.Context) ([]Entry, error) {
	prefix := a.prefix + "snapshots/"
	var entries []Entry
	var token *string
	for {
		out, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(a.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list archives: %w", err)
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			region, period, ok := parseKey(strings.TrimPrefix(key, prefix))
			if !ok {
				continue
			}
			entries = append(entries, Entry{
				Region:   region,
				Period:   period,
				Key:      key,
				Size:     aws.ToInt64(obj.Size),
				Modified: aws.ToTime(obj.LastModified),
			})
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Region != entries[j].Region {
			return entries[i].Region < entries[j].Region
		}
		return entries[i].Period < entries[j].Period
	})
	return entries, nil
}

// parseKey splits "HI/2023.json.enc".
func parseKey(rest string) (region, period string, ok bool) {
	region, file, found := strings.Cut(rest, "/")
	if !found || region == "" || !strings.HasSuffix(file, objectSuffix) {
		return "", "", false
	}
	period = strings.TrimSuffix(file, objectSuffix)
	if period == "" || strings.Contains(period, "/") {
		return "", "", false
	}
	return region, period, true
}

// Delete removes an archived snapshot.
func (a *Archive) Delete(ctx context.Context, region, period string) error {
	key := a.Key(region, period)
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
