package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// S3PutObjectAPI は S3Uploader が使うS3クライアントの操作
type S3PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader はAmazon S3へのアップロードを行う
type S3Uploader struct {
	client  S3PutObjectAPI
	bucket  string
	baseURL string
}

// NewS3Uploader は既定の認証情報チェーンでS3クライアントを作成する
func NewS3Uploader(ctx context.Context, bucket, region, publicBaseURL string) (*S3Uploader, error) {
	if bucket == "" {
		return nil, fmt.Errorf("S3バケット名が設定されていません")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("AWS設定の読み込みに失敗: %w", err)
	}

	return NewS3UploaderWithClient(s3.NewFromConfig(awsCfg), bucket, awsCfg.Region, publicBaseURL), nil
}

// NewS3UploaderWithClient は任意のクライアントでS3Uploaderを作成する
func NewS3UploaderWithClient(client S3PutObjectAPI, bucket, region, publicBaseURL string) *S3Uploader {
	baseURL := strings.TrimSuffix(publicBaseURL, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &S3Uploader{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
	}
}

// Upload は画像を <uuid>.jpg としてアップロードする
func (u *S3Uploader) Upload(ctx context.Context, data []byte, _ string, contentType string) (string, error) {
	key := NewObjectKey()

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		uploadErr := &UploadError{Message: "S3へのアップロードに失敗", Err: err}
		var respErr *smithyhttp.ResponseError
		if errors.As(err, &respErr) {
			uploadErr.StatusCode = respErr.HTTPStatusCode()
		}
		return "", uploadErr
	}

	return u.baseURL + "/" + key, nil
}
