package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/ignite/ads-pilot/internal/validation"
)

// S3API is the subset of the S3 client the store uses
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store keeps assets and reports as JSON objects under key prefixes:
// assets/<id>.json and reports/<id>.json.
type S3Store struct {
	client S3API
	bucket string
	now    func() time.Time
}

// NewS3Store creates an S3-backed store using the default credential chain
func NewS3Store(ctx context.Context, bucket, region, profile string) (*S3Store, error) {
	var cfg aws.Config
	var err error

	if profile != "" {
		cfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
			awsconfig.WithSharedConfigProfile(profile),
		)
	} else {
		cfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	}
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &S3Store{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		now:    time.Now,
	}, nil
}

// NewS3StoreWithClient creates an S3Store with an injected client (tests)
func NewS3StoreWithClient(client S3API, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket, now: time.Now}
}

func (s *S3Store) putJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", key, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("putting %s to S3: %w", key, err)
	}
	return nil
}

func (s *S3Store) getJSON(ctx context.Context, key string, v interface{}) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("getting %s from S3: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	return json.Unmarshal(data, v)
}

func (s *S3Store) listKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	var token *string

	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", prefix, err)
		}
		for _, obj := range out.Contents {
			keys = append(keys, *obj.Key)
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		token = out.NextContinuationToken
	}
	return keys, nil
}

func (s *S3Store) UploadCreative(ctx context.Context, image validation.Image, campaignID string) (*Asset, error) {
	asset := Asset{
		ID:  uuid.NewString(),
		URL: image.URL,
		Metadata: AssetMetadata{
			CampaignID: campaignID,
			Type:       "generated_creative",
			Prompt:     image.Prompt,
			UploadedAt: s.now(),
			Size:       image.Bytes,
			Dimensions: fmt.Sprintf("%dx%d", image.Width, image.Height),
			Format:     "png",
		},
	}

	if err := s.putJSON(ctx, "assets/"+asset.ID+".json", asset); err != nil {
		return nil, err
	}
	return &asset, nil
}

func (s *S3Store) ListCreatives(ctx context.Context, filter AssetFilter) ([]Asset, error) {
	keys, err := s.listKeys(ctx, "assets/")
	if err != nil {
		return nil, err
	}

	var out []Asset
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		var a Asset
		if err := s.getJSON(ctx, key, &a); err != nil {
			return nil, err
		}
		if filter.CampaignID != "" && a.Metadata.CampaignID != filter.CampaignID {
			continue
		}
		if filter.Type != "" && a.Metadata.Type != filter.Type {
			continue
		}
		out = append(out, a)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Metadata.UploadedAt.After(out[j].Metadata.UploadedAt)
	})
	return out, nil
}

func (s *S3Store) SaveReport(ctx context.Context, report *Report) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	return s.putJSON(ctx, "reports/"+report.ID+".json", report)
}

func (s *S3Store) GetReports(ctx context.Context, period string) ([]Report, error) {
	keys, err := s.listKeys(ctx, "reports/")
	if err != nil {
		return nil, err
	}

	var out []Report
	for _, key := range keys {
		var r Report
		if err := s.getJSON(ctx, key, &r); err != nil {
			return nil, err
		}
		if period != "" && r.Period != period {
			continue
		}
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (s *S3Store) Cleanup(ctx context.Context, olderThanDays int) (int, error) {
	cutoff := s.now().AddDate(0, 0, -olderThanDays)
	removed := 0

	assets, err := s.ListCreatives(ctx, AssetFilter{})
	if err != nil {
		return 0, err
	}
	for _, a := range assets {
		if a.Metadata.UploadedAt.Before(cutoff) {
			if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    aws.String("assets/" + a.ID + ".json"),
			}); err != nil {
				return removed, fmt.Errorf("deleting asset %s: %w", a.ID, err)
			}
			removed++
		}
	}

	reports, err := s.GetReports(ctx, "")
	if err != nil {
		return removed, err
	}
	for _, r := range reports {
		if r.Timestamp.Before(cutoff) {
			if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    aws.String("reports/" + r.ID + ".json"),
			}); err != nil {
				return removed, fmt.Errorf("deleting report %s: %w", r.ID, err)
			}
			removed++
		}
	}

	return removed, nil
}
