package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalUploader はローカルディレクトリへ保存する開発用の実装
// 保存したファイルはサーバーの /files/ 以下で配信される
type LocalUploader struct {
	dir     string
	baseURL string
}

// NewLocalUploader はディレクトリを作成してLocalUploaderを返す
func NewLocalUploader(dir, baseURL string) (*LocalUploader, error) {
	if dir == "" {
		return nil, fmt.Errorf("保存先ディレクトリが設定されていません")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("保存先ディレクトリの作成に失敗: %w", err)
	}
	if baseURL == "" {
		baseURL = "/files"
	}
	return &LocalUploader{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Dir は保存先ディレクトリを返す
func (u *LocalUploader) Dir() string {
	return u.dir
}

// Upload は画像を <uuid>.jpg として保存する
func (u *LocalUploader) Upload(ctx context.Context, data []byte, _ string, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &UploadError{Message: "保存が中断されました", Err: err}
	}

	key := NewObjectKey()
	if err := os.WriteFile(filepath.Join(u.dir, key), data, 0o644); err != nil {
		return "", &UploadError{Message: "ファイルの保存に失敗", Err: err}
	}
	return u.baseURL + "/" + key, nil
}
