package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gcs "google.golang.org/api/storage/v1"
)

// GCSUploader はGoogle Cloud Storageへのアップロードを行う
type GCSUploader struct {
	service *gcs.Service
	bucket  string
}

// NewGCSUploader はGCSクライアントを作成する
// credentialsFile が空の場合はアプリケーションのデフォルト認証情報を使う
func NewGCSUploader(ctx context.Context, bucket, credentialsFile string, opts ...option.ClientOption) (*GCSUploader, error) {
	if bucket == "" {
		return nil, fmt.Errorf("GCSバケット名が設定されていません")
	}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	service, err := gcs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("GCSクライアントの作成に失敗: %w", err)
	}

	return &GCSUploader{
		service: service,
		bucket:  bucket,
	}, nil
}

// Upload は画像を <uuid>.jpg としてアップロードする
func (u *GCSUploader) Upload(ctx context.Context, data []byte, _ string, contentType string) (string, error) {
	key := NewObjectKey()

	object := &gcs.Object{
		Name:        key,
		ContentType: contentType,
	}
	_, err := u.service.Objects.Insert(u.bucket, object).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	if err != nil {
		uploadErr := &UploadError{Message: "GCSへのアップロードに失敗", Err: err}
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			uploadErr.StatusCode = apiErr.Code
		}
		return "", uploadErr
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucket, key), nil
}
