// Package export は現在のフレームにフィルタを適用してアップロードする
package export

import (
	"context"
	"errors"
	"fmt"
	"log"

	"utsushie/internal/camera"
	"utsushie/internal/filter"
	"utsushie/internal/session"
	"utsushie/internal/storage"
)

const (
	// CaptureFilename はアップロード時のファイル名
	CaptureFilename = "filtered-image.jpg"
	// CaptureContentType はアップロード時のContent-Type
	CaptureContentType = "image/jpeg"
)

var (
	// ErrSourceInactive は映像ソースが動作していない場合に返される
	ErrSourceInactive = session.ErrSourceInactive
	// ErrSourceNotReady はまだフレームを受信していない場合に返される
	ErrSourceNotReady = errors.New("映像ソースの準備ができていません")
)

// CapturedImage はアップロード前のエンコード済み画像
type CapturedImage struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Pipeline は撮影からアップロードまでを1回ずつ実行する
type Pipeline struct {
	session  *session.Session
	uploader storage.Uploader
	quality  int
}

// NewPipeline は新しいPipelineを作成する
func NewPipeline(s *session.Session, uploader storage.Uploader, quality int) *Pipeline {
	return &Pipeline{
		session:  s,
		uploader: uploader,
		quality:  quality,
	}
}

// Snapshot は現在のフレームを取得し、選択中のフィルタを適用してJPEGにする
func (p *Pipeline) Snapshot(ctx context.Context) (*CapturedImage, error) {
	src, err := p.session.ActiveSource()
	if err != nil {
		return nil, err
	}
	mode := p.session.FilterMode()

	frame, err := src.CurrentFrame(ctx)
	if err != nil {
		if errors.Is(err, camera.ErrNotReady) {
			return nil, fmt.Errorf("%w: %v", ErrSourceNotReady, err)
		}
		return nil, fmt.Errorf("フレームの取得に失敗: %w", err)
	}

	filter.Apply(frame, mode)

	data, err := filter.EncodeJPEG(frame, p.quality)
	if err != nil {
		return nil, err
	}

	return &CapturedImage{
		Data:        data,
		Filename:    CaptureFilename,
		ContentType: CaptureContentType,
	}, nil
}

// Capture は撮影した画像をアップロードし、公開URLを返す
// 失敗しても再試行はしない
func (p *Pipeline) Capture(ctx context.Context) (string, error) {
	img, err := p.Snapshot(ctx)
	if err != nil {
		return "", err
	}

	url, err := p.uploader.Upload(ctx, img.Data, img.Filename, img.ContentType)
	if err != nil {
		return "", fmt.Errorf("画像のアップロードに失敗: %w", err)
	}

	log.Printf("画像をアップロードしました: %s (%d bytes)", url, len(img.Data))
	return url, nil
}
