package export

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Destination uploads backups to an S3-compatible bucket.
type S3Destination struct {
	client *s3.Client
	bucket string
	key    string
	// snapshots also keeps a timestamped copy under key's directory.
	snapshots bool
	now       func() time.Time
}

// S3Options configures NewS3Destination.
type S3Options struct {
	Bucket   string
	Key      string
	Region   string
	Endpoint string // non-empty enables path-style addressing for MinIO and similar
	// Snapshots keeps a timestamped copy next to Key on every write.
	Snapshots bool
}

// NewS3Destination loads the default AWS credential chain and creates a destination.
func NewS3Destination(ctx context.Context, opts S3Options) (*S3Destination, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if opts.Endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		})
	}
	key := opts.Key
	if key == "" {
		key = "auraxis/sinks.jsonl"
	}
	return &S3Destination{
		client:    s3.NewFromConfig(cfg, s3opts...),
		bucket:    opts.Bucket,
		key:       key,
		snapshots: opts.Snapshots,
		now:       time.Now,
	}, nil
}

// Write uploads data as the configured key, plus a snapshot when enabled.
func (d *S3Destination) Write(ctx context.Context, data []byte) error {
	if err := d.put(ctx, d.key, data); err != nil {
		return err
	}
	if d.snapshots {
		return d.put(ctx, snapshotKey(d.key, d.now()), data)
	}
	return nil
}

func (d *S3Destination) put(ctx context.Context, key string, data []byte) error {
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("s3 put object %s: %w", key, err)
	}
	return nil
}

// snapshotKey puts a UTC timestamp before the extension:
// backups/sinks.jsonl -> backups/snapshots/sinks-20260102T150405Z.jsonl.
func snapshotKey(key string, t time.Time) string {
	dir, file := path.Split(key)
	ext := path.Ext(file)
	base := file[:len(file)-len(ext)]
	return dir + "snapshots/" + base + "-" + t.UTC().Format("20060102T150405Z") + ext
}
