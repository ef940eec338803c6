// utils/r2.go
package utils

import (
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// r2Store holds the configured Cloudflare R2 (S3 API) connection. Avatars
// and challenge proof attachments are the only objects stored there.
type r2Store struct {
	client  *s3.Client
	bucket  string
	cdnBase string
}

var r2 *r2Store

// InitR2 reads the Cloudflare credentials from the environment and builds
// the shared client. Must run before any upload handler is mounted.
func InitR2() error {
	accountID := os.Getenv("CLOUDFLARE_ACCOUNT_ID")
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)

	cdnBase := os.Getenv("CDN_BASE_URL")
	if cdnBase == "" {
		cdnBase = endpoint
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			os.Getenv("R2_ACCESS_KEY_ID"),
			os.Getenv("R2_ACCESS_KEY_SECRET"),
			"",
		)),
		config.WithEndpointResolver(aws.EndpointResolverFunc(
			func(service, region string) (aws.Endpoint, error) {
				return aws.Endpoint{URL: endpoint}, nil
			}),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to load R2 config: %w", err)
	}

	r2 = &r2Store{
		client:  s3.NewFromConfig(cfg),
		bucket:  os.Getenv("R2_BUCKET_NAME"),
		cdnBase: cdnBase,
	}
	return nil
}

func contentTypeFor(fileHeader *multipart.FileHeader) string {
	if ct := fileHeader.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	if ct := mime.TypeByExtension(filepath.Ext(fileHeader.Filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// UploadFileToR2 streams a multipart file to the bucket and returns the
// public URL under the CDN base.
func UploadFileToR2(fileHeader *multipart.FileHeader, key string) (string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	_, err = r2.client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:        aws.String(r2.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(fileHeader.Size),
		ContentType:   aws.String(contentTypeFor(fileHeader)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}

	return fmt.Sprintf("%s/%s", r2.cdnBase, key), nil
}
