package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"chatsphere/internal/config"
	"chatsphere/internal/domain"
)

// S3Uploader pushes attachment bytes to object storage and hands back the
// stable reference URL that goes out in the message payload.
type S3Uploader struct {
	cfg config.S3
	s3  *s3.Client
}

func NewS3Uploader(ctx context.Context, cfg config.S3) (*S3Uploader, error) {
	if cfg.Region == "" || cfg.Bucket == "" {
		return nil, errors.New("s3 region and bucket are required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				if service == s3.ServiceID {
					return aws.Endpoint{URL: endpoint, SigningRegion: cfg.Region}, nil
				}
				return aws.Endpoint{}, &aws.EndpointNotFoundError{}
			}),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	return &S3Uploader{cfg: cfg, s3: client}, nil
}

// Upload stores the attachment bytes under a fresh object key scoped to the
// owning user and returns its public URL. The original filename only
// contributes the extension; the key itself is never guessable.
func (u *S3Uploader) Upload(ctx context.Context, ownerID string, att *domain.Attachment) (string, error) {
	if att == nil || len(att.Data) == 0 {
		return "", errors.New("attachment has no data to upload")
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(att.Name)), ".")
	if ext == "" {
		return "", errors.New("attachment name has no extension")
	}
	key := fmt.Sprintf("uploads/%s/%s.%s", ownerID, uuid.New().String(), ext)

	contentType := mime.TypeByExtension("." + ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(u.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(att.Data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(att.Data))),
	}
	if _, err := u.s3.PutObject(ctx, input); err != nil {
		return "", err
	}

	return u.fileURL(key), nil
}

func (u *S3Uploader) fileURL(key string) string {
	if u.cfg.PublicBase != "" {
		return strings.TrimSuffix(u.cfg.PublicBase, "/") + "/" + key
	}
	if u.cfg.Endpoint != "" {
		return strings.TrimSuffix(u.cfg.Endpoint, "/") + "/" + u.cfg.Bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.cfg.Bucket, u.cfg.Region, key)
}
