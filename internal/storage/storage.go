// Package storage は撮影した画像をオブジェクトストレージへアップロードする
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Backend はアップロード先の種類
type Backend string

const (
	BackendS3    Backend = "s3"
	BackendGCS   Backend = "gcs"
	BackendHTTP  Backend = "http"
	BackendLocal Backend = "local"
)

// ErrUnsupportedBackend は未知のバックエンドが指定された場合に返される
var ErrUnsupportedBackend = errors.New("サポートされていないストレージバックエンドです")

// Uploader は画像をアップロードし、公開URLを返す
type Uploader interface {
	Upload(ctx context.Context, data []byte, filename, contentType string) (string, error)
}

// UploadError はアップロード失敗を表す
type UploadError struct {
	StatusCode int    // HTTPステータス（不明な場合は0）
	Message    string // 利用者向けメッセージ
	Err        error  // 元のエラー
}

func (e *UploadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %v", e.Message, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Config はアップロード先の設定
type Config struct {
	Backend Backend `yaml:"backend"`

	// S3
	S3Bucket      string `yaml:"s3_bucket"`
	AWSRegion     string `yaml:"aws_region"`
	PublicBaseURL string `yaml:"public_base_url"` // 未指定の場合はバケットのURL

	// GCS
	GCSBucket       string `yaml:"gcs_bucket"`
	CredentialsFile string `yaml:"credentials_file"`

	// HTTP
	Endpoint string `yaml:"endpoint"`

	// ローカル
	LocalDir string `yaml:"local_dir"`
	BaseURL  string `yaml:"base_url"`
}

// New は設定に応じたUploaderを作成する
func New(ctx context.Context, cfg Config) (Uploader, error) {
	switch cfg.Backend {
	case BackendS3:
		return NewS3Uploader(ctx, cfg.S3Bucket, cfg.AWSRegion, cfg.PublicBaseURL)
	case BackendGCS:
		return NewGCSUploader(ctx, cfg.GCSBucket, cfg.CredentialsFile)
	case BackendHTTP:
		return NewHTTPUploader(cfg.Endpoint, nil)
	case BackendLocal:
		return NewLocalUploader(cfg.LocalDir, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, cfg.Backend)
	}
}

// NewObjectKey はオブジェクトキー（<uuid>.jpg）を生成する
func NewObjectKey() string {
	return uuid.NewString() + ".jpg"
}
