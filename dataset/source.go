package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	benchErrors "tradebench/errors"
)

// Source opens the CSV files of a dataset by name.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Describes the source in logs
	String() string
}

// DirSource reads CSV files from a local directory.
type DirSource struct {
	Dir string
}

func (s DirSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.Dir, name))
	if err != nil {
		return nil, benchErrors.NewLoadError(benchErrors.CodeSourceUnavailable,
			fmt.Sprintf("open %s", filepath.Join(s.Dir, name)), err)
	}
	return f, nil
}

func (s DirSource) String() string {
	return s.Dir
}

// S3Config locates a dataset in an S3 bucket.
type S3Config struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
	// Custom endpoint (MinIO, LocalStack, ...)
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"usePathStyle"`
}

// S3Source reads CSV files stored under a prefix of an S3 bucket.
type S3Source struct {
	client *s3.Client
	config S3Config
}

// NewS3Source builds an S3 client from the default AWS credential chain.
func NewS3Source(ctx context.Context, cfg S3Config) (*S3Source, error) {
	if cfg.Bucket == "" {
		return nil, benchErrors.NewConfigError(benchErrors.CodeInvalidConfig, "s3 source requires a bucket")
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, benchErrors.NewLoadError(benchErrors.CodeSourceUnavailable, "load AWS config", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return NewS3SourceWithClient(s3.NewFromConfig(awsCfg, s3Opts...), cfg), nil
}

// NewS3SourceWithClient wraps a pre-configured client.
func NewS3SourceWithClient(client *s3.Client, cfg S3Config) *S3Source {
	return &S3Source{client: client, config: cfg}
}

func (s *S3Source) key(name string) string {
	if s.config.Prefix == "" {
		return name
	}
	return path.Join(s.config.Prefix, name)
}

func (s *S3Source) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, benchErrors.NewLoadError(benchErrors.CodeSourceUnavailable,
				fmt.Sprintf("s3://%s/%s does not exist", s.config.Bucket, s.key(name)), err)
		}
		return nil, benchErrors.NewLoadError(benchErrors.CodeSourceUnavailable,
			fmt.Sprintf("get s3://%s/%s", s.config.Bucket, s.key(name)), err)
	}
	return out.Body, nil
}

func (s *S3Source) String() string {
	return fmt.Sprintf("s3://%s/%s", s.config.Bucket, s.config.Prefix)
}
