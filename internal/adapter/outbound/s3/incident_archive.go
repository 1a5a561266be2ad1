package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/coursepay/server/internal/model"
	"github.com/coursepay/server/internal/port/outbound"
	"github.com/coursepay/server/internal/shared/config"
)

// NewClient creates an S3 client for an S3-compatible endpoint.
func NewClient(ctx context.Context, cfg *config.StorageConfig) (*s3.Client, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.Bucket == "" {
		return nil, errors.New("incomplete storage configuration")
	}

	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")

	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(creds),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
		// S3-compatible stores reject the default streaming checksums.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	}), nil
}

// IncidentArchive writes one JSON object per reconciliation incident.
type IncidentArchive struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewIncidentArchive creates an incident archive.
func NewIncidentArchive(client *s3.Client, bucket, prefix string) *IncidentArchive {
	return &IncidentArchive{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// Key returns the object key of an incident: prefix/YYYY/MM/DD/order-<id>/<incident id>.json.
func (a *IncidentArchive) Key(incident *model.ReconciliationIncident) string {
	return path.Join(
		a.prefix,
		incident.CreatedAt.UTC().Format("2006/01/02"),
		fmt.Sprintf("order-%d", incident.OrderID),
		incident.ID.String()+".json",
	)
}

// Put stores the incident.
func (a *IncidentArchive) Put(ctx context.Context, incident *model.ReconciliationIncident) error {
	data, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("marshal incident: %w", err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.Key(incident)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put incident: %w", err)
	}
	return nil
}

// List returns the keys of archived incidents under the given day prefix
// ("2026/03/10") or all of them when day is empty.
func (a *IncidentArchive) List(ctx context.Context, day string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(path.Join(a.prefix, day) + "/"),
	})

	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list incidents: %w", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// Compile-time check
var _ outbound.IncidentArchivePort = (*IncidentArchive)(nil)
