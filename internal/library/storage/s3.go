/*
Copyright (C) 2026 Lumentrack

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
)

// S3Storage implements Storage using S3-compatible object storage.
type S3Storage struct {
	client        *s3.Client
	bucket        string
	region        string
	endpoint      string
	publicBaseURL string
	usePathStyle  bool
	logger        zerolog.Logger
}

// S3Config contains S3 storage configuration.
type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	Region   string
	Bucket   string
	Endpoint string // for S3-compatible services (MinIO, Spaces, etc.)

	PublicBaseURL string
	UsePathStyle  bool

	PresignedExpiry time.Duration
	ForcePathStyle  bool
}

// DefaultS3Config returns default S3 configuration.
func DefaultS3Config() S3Config {
	return S3Config{
		Region:          "us-east-1",
		PresignedExpiry: 15 * time.Minute,
	}
}

// NewS3Storage creates an S3-based track storage backend. Supports AWS S3
// and S3-compatible services (MinIO, DigitalOcean Spaces, Backblaze B2).
func NewS3Storage(ctx context.Context, cfg S3Config, logger zerolog.Logger) (*S3Storage, error) {
	var awsCfg aws.Config
	var err error

	if cfg.Endpoint != "" {
		customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					HostnameImmutable: true,
					SigningRegion:     cfg.Region,
				}, nil
			}
			return aws.Endpoint{}, fmt.Errorf("unknown endpoint requested")
		})

		awsCfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
			config.WithEndpointResolverWithOptions(customResolver),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken,
			)),
		)
	} else {
		awsCfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken,
			)),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.ForcePathStyle || cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		logger.Warn().Err(err).Str("bucket", cfg.Bucket).Msg("S3 bucket not accessible (may not exist or no permissions)")
	} else {
		logger.Info().Str("bucket", cfg.Bucket).Str("region", cfg.Region).Msg("S3 track storage initialized")
	}

	return &S3Storage{
		client:        client,
		bucket:        cfg.Bucket,
		region:        cfg.Region,
		endpoint:      cfg.Endpoint,
		publicBaseURL: cfg.PublicBaseURL,
		usePathStyle:  cfg.UsePathStyle || cfg.ForcePathStyle,
		logger:        logger,
	}, nil
}

// Store uploads a track's audio file to S3-compatible storage.
func (s3s *S3Storage) Store(ctx context.Context, trackID, filename string, file io.Reader) (string, error) {
	key := buildTrackKey(trackID, filename)

	s3s.logger.Debug().Str("bucket", s3s.bucket).Str("key", key).Msg("uploading track to S3")

	_, err := s3s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s3s.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(detectContentType(key)),
		Metadata: map[string]string{
			"track-id": trackID,
			"uploaded": time.Now().Format(time.RFC3339),
		},
	})
	if err != nil {
		s3s.logger.Error().Err(err).Str("key", key).Msg("failed to upload track to S3")
		return "", fmt.Errorf("upload to S3: %w", err)
	}

	s3s.logger.Info().Str("bucket", s3s.bucket).Str("key", key).Msg("track uploaded to S3")
	return key, nil
}

// Delete removes a track's audio file from S3 storage.
func (s3s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s3s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s3s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s3s.logger.Error().Err(err).Str("key", key).Msg("failed to delete track from S3")
		return fmt.Errorf("delete from S3: %w", err)
	}
	s3s.logger.Info().Str("bucket", s3s.bucket).Str("key", key).Msg("track deleted from S3")
	return nil
}

// URL returns the accessible URL for a stored track's audio file.
func (s3s *S3Storage) URL(key string) string {
	if s3s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s", s3s.publicBaseURL, key)
	}
	if s3s.endpoint != "" {
		if s3s.usePathStyle {
			return fmt.Sprintf("%s/%s/%s", s3s.endpoint, s3s.bucket, key)
		}
		return fmt.Sprintf("%s/%s", s3s.endpoint, key)
	}
	if s3s.usePathStyle {
		return fmt.Sprintf("https://s3.%s.amazonaws.com/%s/%s", s3s.region, s3s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s3s.bucket, s3s.region, key)
}

// CheckAccess verifies the S3 bucket exists and is accessible.
func (s3s *S3Storage) CheckAccess(ctx context.Context) error {
	_, err := s3s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s3s.bucket)})
	if err != nil {
		return fmt.Errorf("cannot access S3 bucket %q: %w", s3s.bucket, err)
	}
	return nil
}

// PresignedURL generates a time-limited URL for private bucket access.
func (s3s *S3Storage) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	presignClient := s3.NewPresignClient(s3s.client)

	request, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s3s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiry
	})
	if err != nil {
		return "", fmt.Errorf("generate presigned URL: %w", err)
	}
	return request.URL, nil
}

// Exists checks if a track's audio file exists in S3.
func (s3s *S3Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s3s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s3s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return false, nil
		}
		return false, fmt.Errorf("check object existence: %w", err)
	}
	return true, nil
}

// detectContentType returns the MIME type for a track's audio key, by extension.
func detectContentType(key string) string {
	switch filepath.Ext(key) {
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	case ".ogg", ".oga":
		return "audio/ogg"
	case ".m4a":
		return "audio/mp4"
	case ".wav":
		return "audio/wav"
	case ".aac":
		return "audio/aac"
	case ".opus":
		return "audio/opus"
	default:
		return "application/octet-stream"
	}
}
