package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
)

// Config points the archiver at an s3 compatible endpoint. Endpoint is
// empty for real AWS, set for r2 and minio style storage.
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// Archiver keeps every fetched snapshot in object storage, one object
// per pass, so odd alert behavior can be replayed against the exact
// data that caused it.
type Archiver struct {
	bucket   string
	uploader *manager.Uploader
}

func New(cfg Config) (*Archiver, error) {
	region := cfg.Region
	if len(region) == 0 {
		region = "auto"
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	}
	if len(cfg.Endpoint) > 0 {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: cfg.Endpoint}, nil
		})
		opts = append(opts, config.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// custom endpoints rarely speak virtual-host addressing
		o.UsePathStyle = len(cfg.Endpoint) > 0
	})
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.Concurrency = 1
		u.MaxUploadParts = 1
	})

	return &Archiver{bucket: cfg.Bucket, uploader: uploader}, nil
}

// Store uploads one snapshot and returns the object key.
func (a *Archiver) Store(ctx context.Context, snapshot []byte, taken time.Time) (string, error) {
	key := Key(taken)
	mtype := mimetype.Detect(snapshot)

	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(mtype.String()),
		Body:        bytes.NewReader(snapshot),
	})
	if err != nil {
		return "", err
	}

	return key, nil
}

// Key lays snapshots out by day so lifecycle rules and manual digging
// both stay cheap: snapshots/YYYY/MM/DD/<unixnano>.json
func Key(taken time.Time) string {
	utc := taken.UTC()
	return fmt.Sprintf("snapshots/%s/%d.json", utc.Format("2006/01/02"), utc.UnixNano())
}
