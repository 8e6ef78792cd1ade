package storage

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/screensnap/service/internal/config"
)

// LocalPublicPath is the route prefix under which the local driver's files are served.
const LocalPublicPath = "/files"

// NewFromConfig creates the blob store selected by cfg.Storage.Driver.
func NewFromConfig(ctx context.Context, cfg *config.Config) (BlobStore, error) {
	sc := cfg.Storage
	switch sc.Driver {
	case config.StorageLocal:
		log.Printf("storage: using local directory %s", sc.LocalDir)
		return NewLocalStore(sc.LocalDir, cfg.PublicBaseURL+LocalPublicPath)
	case config.StorageMinio:
		log.Printf("storage: using minio endpoint=%s bucket=%s", sc.Endpoint, sc.Bucket)
		return NewMinioStore(ctx, sc.Endpoint, sc.AccessKey, sc.SecretKey, sc.Bucket, sc.PublicBase, sc.UseSSL)
	case config.StorageS3:
		log.Printf("storage: using s3 bucket=%s region=%s", sc.Bucket, sc.Region)

		opts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(sc.Region),
		}
		if sc.AccessKey != "" && sc.SecretKey != "" {
			creds := credentials.NewStaticCredentialsProvider(sc.AccessKey, sc.SecretKey, "")
			opts = append(opts, awsconfig.WithCredentialsProvider(creds))
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}

		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if strings.Contains(sc.Endpoint, "://") {
				o.BaseEndpoint = aws.String(sc.Endpoint)
				o.UsePathStyle = true
			}
		})
		return NewS3Store(client, sc.Bucket, sc.Region, sc.PublicBase), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", sc.Driver)
	}
}
