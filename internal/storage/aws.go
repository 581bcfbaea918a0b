package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	c "figures/internal/configuration"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// AWSStorage stores reports in AWS S3 using the SDK default credential chain.
type AWSStorage struct {
	BucketName string
	client     *s3.Client
	presign    *s3.PresignClient
}

func NewAWSStorage(ctx context.Context, bucketName string) (*AWSStorage, error) {
	cfg, err := awsConfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	if _, err = client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucketName)}); err != nil {
		return nil, fmt.Errorf("failed to access bucket %s: %w", bucketName, err)
	}

	return &AWSStorage{
		BucketName: bucketName,
		client:     client,
		presign:    s3.NewPresignClient(client),
	}, nil
}

func (s *AWSStorage) GetBucketName() string {
	return s.BucketName
}

func (s *AWSStorage) PutObject(
	ctx context.Context,
	objectPath string,
	body io.Reader,
	size int64,
	contentType string,
) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.BucketName),
		Key:           aws.String(objectPath),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	return err
}

func (s *AWSStorage) PresignedGetObject(ctx context.Context, objectPath string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.BucketName),
		Key:    aws.String(objectPath),
	}, s3.WithPresignExpires(c.ReportPresignExpirationInMinutes*time.Minute))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (s *AWSStorage) StatObject(ctx context.Context, objectPath string) (ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.BucketName),
		Key:    aws.String(objectPath),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return ObjectInfo{}, ErrObjectNotFound
		}
		return ObjectInfo{}, err
	}
	return ObjectInfo{
		Key:          objectPath,
		Size:         aws.ToInt64(out.ContentLength),
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

func (s *AWSStorage) ListObjects(ctx context.Context, prefix string, maxKeys int32) ([]ObjectInfo, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.BucketName),
		Prefix: aws.String(prefix),
	}
	if maxKeys > 0 {
		input.MaxKeys = aws.Int32(maxKeys)
	}

	var objects []ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, object := range page.Contents {
			objects = append(objects, ObjectInfo{
				Key:          aws.ToString(object.Key),
				Size:         aws.ToInt64(object.Size),
				LastModified: aws.ToTime(object.LastModified),
			})
			if maxKeys > 0 && len(objects) >= int(maxKeys) {
				return objects, nil
			}
		}
	}
	return objects, nil
}

func (s *AWSStorage) RemoveObject(ctx context.Context, objectPath string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.BucketName),
		Key:    aws.String(objectPath),
	})
	return err
}
