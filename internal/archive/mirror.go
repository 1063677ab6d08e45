package archive

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// PutObjectAPI is the part of *s3.Client the mirror uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Mirror copies the files of the backups directory to a bucket.
type S3Mirror struct {
	client PutObjectAPI
	bucket string
	prefix string
	logger zerolog.Logger
}

func NewS3Mirror(client PutObjectAPI, bucket, prefix string, logger zerolog.Logger) *S3Mirror {
	return &S3Mirror{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger.With().Str("component", "mirror").Str("bucket", bucket).Logger(),
	}
}

// Mirror uploads every regular, non-hidden file directly under dir and returns
// how many objects were written. It stops at the first failed upload.
func (m *S3Mirror) Mirror(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	uploaded := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if err := m.upload(ctx, filepath.Join(dir, entry.Name()), entry.Name()); err != nil {
			return uploaded, err
		}
		uploaded++
	}

	m.logger.Info().Int("objects", uploaded).Msg("backups mirrored")
	return uploaded, nil
}

func (m *S3Mirror) upload(ctx context.Context, filePath, name string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	key := name
	if m.prefix != "" {
		key = path.Join(m.prefix, name)
	}

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to s3://%s/%s: %w", name, m.bucket, key, err)
	}
	m.logger.Debug().Str("key", key).Int64("size", info.Size()).Msg("object uploaded")
	return nil
}
