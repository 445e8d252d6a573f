package cloudwriter

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Writer buffers a result artifact in memory and uploads it in one
// PutObject on Close. Parquet footers are written last, so streaming the
// object incrementally would not help.
type S3Writer struct {
	ctx    context.Context
	client *s3.Client
	bucket string
	key    string
	buf    bytes.Buffer
}

type S3Factory struct {
	client *s3.Client
}

func NewS3Factory(ctx context.Context, region string) (*S3Factory, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config for %s: %w", region, err)
	}
	return &S3Factory{client: s3.NewFromConfig(cfg)}, nil
}

func (f *S3Factory) NewWriter(ctx context.Context, bucket, key string) (ObjectWriter, error) {
	return &S3Writer{ctx: ctx, client: f.client, bucket: bucket, key: key}, nil
}

func (w *S3Writer) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *S3Writer) Close() error {
	_, err := w.client.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(w.key),
		Body:   bytes.NewReader(w.buf.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", w.bucket, w.key, err)
	}
	return nil
}
