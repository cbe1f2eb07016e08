// Package archive is an optional exporter that uploads the JSON rendering
// of a resolved versions.Map to S3-compatible object storage, so a
// timewalk lookup run against a transient host can be archived somewhere
// durable. Grounded in the teacher's pkg/upload/s3.go client construction
// and PutObject shape, narrowed from that package's "upload a whole run
// directory" concept down to the single-object export this domain needs.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/jrsnow/timewalk/pkg/format"
	"github.com/sirupsen/logrus"
)

// Config configures the S3-compatible destination an export goes to.
type Config struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	EndpointURL     string `mapstructure:"endpoint_url"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	StorageClass    string `mapstructure:"storage_class"`
	ACL             string `mapstructure:"acl"`
}

// Archiver uploads a versions-map export to object storage.
type Archiver struct {
	log    logrus.FieldLogger
	cfg    Config
	client *s3.Client
}

// NewArchiver builds an Archiver from cfg. When cfg carries no static
// access key, the client falls back to the AWS SDK's default credential
// chain (environment, shared config profile, or an IAM role) via
// config.LoadDefaultConfig -- the usual case for an archiver running
// inside infrastructure that already has an instance/task role.
func NewArchiver(ctx context.Context, log logrus.FieldLogger, cfg Config) (*Archiver, error) {
	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &Archiver{
		log:    log.WithField("component", "archiver"),
		cfg:    cfg,
		client: client,
	}, nil
}

func newClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.Region = region

			if cfg.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.EndpointURL)
			}

			if cfg.ForcePathStyle {
				o.UsePathStyle = true
			}

			if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
				o.Credentials = credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID, cfg.SecretAccessKey, "",
				)
			}
		},
	}

	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
		if err != nil {
			return nil, fmt.Errorf("loading default AWS credential chain: %w", err)
		}

		return s3.NewFromConfig(awsCfg, opts...), nil
	}

	return s3.New(s3.Options{}, opts...), nil
}

// Preflight verifies connectivity by writing a small test object, the way
// a run should fail fast before doing any real lookup work if the
// destination is unreachable or misconfigured.
func (a *Archiver) Preflight(ctx context.Context) error {
	content := fmt.Sprintf("timewalk write test: %s", time.Now().UTC().Format(time.RFC3339))

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Bucket),
		Key:         aws.String(".timewalk-write-test"),
		Body:        bytes.NewReader([]byte(content)),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return fmt.Errorf("writing test object to s3://%s: %w", a.cfg.Bucket, err)
	}

	return nil
}

// ExportVersions renders entries as JSON and uploads it under key name,
// prefixed by the configured Prefix (default "exports").
func (a *Archiver) ExportVersions(ctx context.Context, name string, entries []format.Entry) error {
	var buf bytes.Buffer

	if err := format.VersionsJSON(&buf, entries); err != nil {
		return fmt.Errorf("rendering versions export: %w", err)
	}

	prefix := a.cfg.Prefix
	if prefix == "" {
		prefix = "exports"
	}

	key := prefix + "/" + name

	input := &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/json"),
	}

	if a.cfg.StorageClass != "" {
		input.StorageClass = s3types.StorageClass(a.cfg.StorageClass)
	}

	if a.cfg.ACL != "" {
		input.ACL = s3types.ObjectCannedACL(a.cfg.ACL)
	}

	a.log.WithFields(logrus.Fields{
		"key":    key,
		"bucket": a.cfg.Bucket,
	}).Info("Uploading versions export")

	if _, err := a.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("uploading versions export: %w", err)
	}

	return nil
}
