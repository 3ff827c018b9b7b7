package camera

import (
	"context"
	"errors"

	"utsushie/internal/filter"
)

// Status は映像ソースの動作状態を表す
type Status string

const (
	StatusInactive Status = "inactive" // 停止中
	StatusActive   Status = "active"   // 動作中
	StatusError    Status = "error"    // エラーが発生
)

// SourceType は映像ソースの種類
type SourceType string

const (
	// SourceTypeDevice はローカルのカメラデバイス（V4L2等）
	SourceTypeDevice SourceType = "device"
	// SourceTypeDroidCam は固定のローカルネットワークエンドポイント
	SourceTypeDroidCam SourceType = "droidcam"
	// SourceTypeIPCam は任意のストリームURL
	SourceTypeIPCam SourceType = "ipcam"
	// SourceTypeTestPattern は開発用のカラーバー
	SourceTypeTestPattern SourceType = "testpattern"
)

// DroidCamURL はDroidCamアプリが公開するMJPEGストリームのURL
const DroidCamURL = "http://127.0.0.1:4747/video"

var (
	// ErrNotReady はソースが未接続、またはまだフレームを受信していない場合に返される
	ErrNotReady = errors.New("映像ソースの準備ができていません")

	// ErrInvalidURL はストリームURLが空または不正な場合に返される
	ErrInvalidURL = errors.New("有効なカメラURLを指定してください")

	// ErrUnsupportedSource は未知のソース種別が指定された場合に返される
	ErrUnsupportedSource = errors.New("サポートされていないソースタイプ")

	// ErrDeviceUnavailable は指定されたカメラデバイスが見つからない場合に返される
	ErrDeviceUnavailable = errors.New("デバイスが利用できません")
)

// VideoSource はフレームを取り出せる映像ソース
//
// Stop は冪等で、呼び出し直後から IsActive は false を返す。
// CurrentFrame はソースのネイティブ解像度（または指定された目標解像度）の
// 新しいバッファを返すため、呼び出しごとに寸法が変わり得る。
type VideoSource interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsActive() bool

	// CurrentFrame は最新のフレームを返す。準備前は ErrNotReady
	CurrentFrame(ctx context.Context) (*filter.PixelBuffer, error)

	GetInfo() VideoSourceInfo
	GetStatus() Status
}

// VideoSourceInfo はソース情報を表す
type VideoSourceInfo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Type        SourceType `json:"type"`
	Description string     `json:"description"`
	Device      string     `json:"device,omitempty"` // デバイスパス（ローカルカメラ）
	URL         string     `json:"url,omitempty"`    // ストリームURL（ネットワークカメラ）
}

// VideoSettings は取得設定
type VideoSettings struct {
	Width     int // キャプチャ幅（0はソースのまま）
	Height    int // キャプチャ高さ（0はソースのまま）
	FrameRate int // フレームレート
	Quality   int // ffmpegのMJPEG品質 (2-31、小さいほど高品質)
}

// Resolution は解像度を表す
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DeviceInfo はカメラデバイスの詳細情報を表す
type DeviceInfo struct {
	Device string `json:"device"` // デバイスパス
	Name   string `json:"name"`   // デバイス名
}

// Discovery はカメラデバイスの検出機能を提供する
type Discovery interface {
	// ScanDevices はシステム内の利用可能なカメラデバイスをスキャンする
	ScanDevices(ctx context.Context) ([]DeviceInfo, error)

	// IsDeviceAvailable は指定されたデバイスが利用可能かチェックする
	IsDeviceAvailable(ctx context.Context, device string) bool
}
