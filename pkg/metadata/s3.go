package metadata

import (
	"bufio"
	"context"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	verrors "github.com/vstructure/vstructure/pkg/errors"
)

// S3Config configures the S3 snapshot store.
type S3Config struct {
	// Bucket is the S3 bucket holding snapshot documents
	Bucket string

	// Prefix is prepended to all snapshot keys (e.g., "metadata/")
	Prefix string

	// Region is the AWS region
	Region string

	// Endpoint overrides the default S3 endpoint (for S3-compatible services)
	Endpoint string

	// Credentials (optional - uses default chain if not provided)
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// UsePathStyle forces path-style addressing (for MinIO, LocalStack)
	UsePathStyle bool

	// Timeout for S3 operations
	Timeout time.Duration
}

// DefaultS3Config returns sensible defaults.
func DefaultS3Config(bucket string) S3Config {
	return S3Config{
		Bucket:  bucket,
		Prefix:  "metadata/",
		Timeout: 30 * time.Second,
	}
}

// S3Store reads snapshots from S3. Keys follow the same layout as the
// filesystem store: {prefix}{instance}/{version}/document.json.
type S3Store struct {
	cfg    S3Config
	client *s3.Client
}

// NewS3Store creates an S3-backed snapshot store.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				cfg.SessionToken,
			),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, verrors.Wrap(err, verrors.CodeSnapshotNotFound, "load AWS config")
	}

	s3Opts := []func(*s3.Options){}
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

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &S3Store{
		cfg:    cfg,
		client: s3.NewFromConfig(awsCfg, s3Opts...),
	}, nil
}

func (s *S3Store) key(instanceID, version string) string {
	return s.cfg.Prefix + instanceID + "/" + version + "/" + documentFile
}

// Load retrieves a snapshot document from S3.
func (s *S3Store) Load(ctx context.Context, instanceID, version string) (*Snapshot, error) {
	if version == "" {
		versions, err := s.Versions(ctx, instanceID)
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			return nil, verrors.SnapshotNotFound(instanceID, "latest")
		}
		version = versions[len(versions)-1]
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.key(instanceID, version)),
	})
	if err != nil {
		return nil, verrors.Wrap(err, verrors.CodeSnapshotNotFound, "load snapshot from S3").
			WithContext("instance_id", instanceID).
			WithContext("version", version)
	}
	defer output.Body.Close()

	snap, err := Decode(bufio.NewReader(output.Body))
	if err != nil {
		return nil, err
	}
	if snap.InstanceID == "" {
		snap.InstanceID = instanceID
	}
	if snap.Version == "" {
		snap.Version = version
	}
	return snap, nil
}

// Versions lists the version prefixes of an instance in ascending
// lexical order.
func (s *S3Store) Versions(ctx context.Context, instanceID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	prefix := s.cfg.Prefix + instanceID + "/"

	var versions []string
	var continuationToken *string

	for {
		output, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.cfg.Bucket),
			Prefix:            aws.String(prefix),
			Delimiter:         aws.String("/"),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, verrors.Wrap(err, verrors.CodeSnapshotNotFound, "list snapshot versions in S3")
		}

		for _, cp := range output.CommonPrefixes {
			v := strings.TrimPrefix(aws.ToString(cp.Prefix), prefix)
			v = strings.TrimSuffix(v, "/")
			if v != "" {
				versions = append(versions, v)
			}
		}

		if !aws.ToBool(output.IsTruncated) {
			break
		}
		continuationToken = output.NextContinuationToken
	}

	sort.Strings(versions)
	return versions, nil
}
