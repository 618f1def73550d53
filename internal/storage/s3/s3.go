// Package s3storage implements the storage.Backend interface by uploading
// each run's JSON export to an S3-compatible bucket (AWS S3 or MinIO).
package s3storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/OCAP2/beaconmap/internal/config"
	"github.com/OCAP2/beaconmap/internal/logging"
	"github.com/OCAP2/beaconmap/internal/storage"
	"github.com/OCAP2/beaconmap/internal/storage/memory"
	"github.com/OCAP2/beaconmap/pkg/core"
)

// DefaultTimeout bounds every request to the bucket.
const DefaultTimeout = 30 * time.Second

// ErrNoBucket is returned by New when no bucket is configured.
var ErrNoBucket = errors.New("s3 bucket required")

// Backend uploads exports and reads them back.
type Backend struct {
	client *s3.Client
	cfg    config.S3Config
	log    *logging.SlogManager

	mu      sync.Mutex
	keys    map[string]string // run id -> object key
	lastKey string
}

// New creates an S3 backend. Extra options are applied to the S3 client
// after the configured ones.
func New(ctx context.Context, cfg config.S3Config, logManager *logging.SlogManager, optFns ...func(*s3.Options)) (*Backend, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		// S3-compatible stores often reject aws-chunked uploads
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	}, func(o *s3.Options) {
		for _, fn := range optFns {
			fn(o)
		}
	})

	return &Backend{
		client: client,
		cfg:    cfg,
		log:    logManager,
		keys:   make(map[string]string),
	}, nil
}

// Init checks that the bucket is reachable.
func (b *Backend) Init() error {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	if _, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.cfg.Bucket)}); err != nil {
		return fmt.Errorf("bucket %s not reachable: %w", b.cfg.Bucket, err)
	}
	b.log.WriteLog("s3:Init", fmt.Sprintf("Using bucket %s", b.cfg.Bucket), "INFO")
	return nil
}

// Close is a no-op; the client holds no open resources.
func (b *Backend) Close() error {
	return nil
}

func (b *Backend) objectKey(r *core.Run) string {
	return path.Join(b.cfg.Prefix, memory.ExportFileName(r, b.cfg.Compress))
}

// SaveRun uploads the run's export.
func (b *Backend) SaveRun(r *core.Run) error {
	if r == nil || r.Map == nil {
		return fmt.Errorf("save run: nothing to save")
	}

	var buf bytes.Buffer
	if err := memory.EncodeExport(&buf, r, b.cfg.Compress); err != nil {
		return fmt.Errorf("failed to encode run %s: %w", r.ID, err)
	}

	key := b.objectKey(r)
	input := &s3.PutObjectInput{
		Bucket:      aws.String(b.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/json"),
		Metadata:    map[string]string{"run-id": r.ID, "source": r.Source},
	}
	if b.cfg.Compress {
		input.ContentEncoding = aws.String("gzip")
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()
	if _, err := b.client.PutObject(ctx, input); err != nil {
		b.log.WriteLog("s3:SaveRun", fmt.Sprintf("Failed to upload run %s: %v", r.ID, err), "ERROR")
		return fmt.Errorf("failed to upload run %s: %w", r.ID, err)
	}

	b.mu.Lock()
	b.keys[r.ID] = key
	b.lastKey = key
	b.mu.Unlock()

	b.log.WriteLog("s3:SaveRun", fmt.Sprintf("Uploaded run %s to %s", r.ID, key), "DEBUG")
	return nil
}

// LoadRun downloads a run. Runs uploaded by earlier sessions are found by
// the short id embedded in their object key.
func (b *Backend) LoadRun(id string) (*core.Run, error) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	b.mu.Lock()
	key, ok := b.keys[id]
	b.mu.Unlock()
	if !ok {
		var err error
		key, err = b.findKey(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	defer out.Body.Close()

	export, err := memory.DecodeExport(out.Body, strings.HasSuffix(key, ".gz"))
	if err != nil {
		return nil, err
	}
	if export.RunID != id {
		return nil, fmt.Errorf("%w: %s", storage.ErrRunNotFound, id)
	}
	return export.Run()
}

func (b *Backend) findKey(ctx context.Context, id string) (string, error) {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	marker := "_" + short + "_"

	p := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.cfg.Bucket),
		Prefix: aws.String(b.cfg.Prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to list %s: %w", b.cfg.Bucket, err)
		}
		for _, obj := range page.Contents {
			if strings.Contains(path.Base(aws.ToString(obj.Key)), marker) {
				return aws.ToString(obj.Key), nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", storage.ErrRunNotFound, id)
}

// GetExportedFilePath returns the s3:// URL of the last upload.
func (b *Backend) GetExportedFilePath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastKey == "" {
		return ""
	}
	return fmt.Sprintf("s3://%s/%s", b.cfg.Bucket, b.lastKey)
}
