package camera

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// SourceConfig はソース作成設定
type SourceConfig struct {
	Device   string        // デバイスパス
	URL      string        // IP カメラの場合
	Settings VideoSettings // 取得設定
	Target   Resolution    // 出力バッファの目標解像度（0はネイティブ）
}

// VideoSourceFactory はソース作成ファクトリー
type VideoSourceFactory interface {
	CreateSource(sourceType SourceType, config SourceConfig) (VideoSource, error)
	GetSupportedTypes() []SourceType
}

// SourceCreator はソース作成関数の型
type SourceCreator func(config SourceConfig) (VideoSource, error)

// DefaultVideoSourceFactory は標準実装
type DefaultVideoSourceFactory struct {
	creators  map[SourceType]SourceCreator
	discovery Discovery
}

// NewVideoSourceFactory は新しいファクトリーを作成する
func NewVideoSourceFactory(discovery Discovery) *DefaultVideoSourceFactory {
	factory := &DefaultVideoSourceFactory{
		creators:  make(map[SourceType]SourceCreator),
		discovery: discovery,
	}

	factory.Register(SourceTypeDevice, factory.newDeviceSource)
	factory.Register(SourceTypeDroidCam, NewDroidCamSourceFromConfig)
	factory.Register(SourceTypeIPCam, NewIPCamSourceFromConfig)
	factory.Register(SourceTypeTestPattern, NewTestPatternSourceFromConfig)

	return factory
}

// Register はソース作成関数を登録する
func (f *DefaultVideoSourceFactory) Register(sourceType SourceType, creator SourceCreator) {
	f.creators[sourceType] = creator
}

// CreateSource はソースを作成する
func (f *DefaultVideoSourceFactory) CreateSource(sourceType SourceType, config SourceConfig) (VideoSource, error) {
	creator, exists := f.creators[sourceType]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, sourceType)
	}

	return creator(config)
}

// GetSupportedTypes はサポートされているソースタイプを返す
func (f *DefaultVideoSourceFactory) GetSupportedTypes() []SourceType {
	types := make([]SourceType, 0, len(f.creators))
	for sourceType := range f.creators {
		types = append(types, sourceType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// newDeviceSource はローカルカメラデバイスのソースを作成する
func (f *DefaultVideoSourceFactory) newDeviceSource(config SourceConfig) (VideoSource, error) {
	name := fmt.Sprintf("カメラ (%s)", config.Device)
	if config.Device == "" {
		name = "既定のカメラ"
	}

	// デバイス名を取得できればそちらを使う
	if f.discovery != nil && config.Device != "" {
		ctx := context.Background()
		if !f.discovery.IsDeviceAvailable(ctx, config.Device) {
			return nil, fmt.Errorf("%w: %s", ErrDeviceUnavailable, config.Device)
		}
		if devices, err := f.discovery.ScanDevices(ctx); err == nil {
			for _, d := range devices {
				if d.Device == config.Device && d.Name != "" {
					name = d.Name
				}
			}
		}
	}

	info := VideoSourceInfo{
		ID:          uuid.NewString(),
		Name:        name,
		Type:        SourceTypeDevice,
		Description: fmt.Sprintf("ローカルカメラ: %s", name),
		Device:      config.Device,
	}

	s := config.Settings
	capturer := NewDeviceCapturer(config.Device, s.Width, s.Height, s.FrameRate, s.Quality)
	return NewFFmpegSource(info, capturer, config.Target), nil
}

// NewDroidCamSourceFromConfig はDroidCamの固定エンドポイントのソースを作成する
func NewDroidCamSourceFromConfig(config SourceConfig) (VideoSource, error) {
	info := VideoSourceInfo{
		ID:          uuid.NewString(),
		Name:        "DroidCam",
		Type:        SourceTypeDroidCam,
		Description: "DroidCam: " + DroidCamURL,
		URL:         DroidCamURL,
	}

	capturer := NewStreamCapturer(DroidCamURL, config.Settings.FrameRate, config.Settings.Quality)
	return NewFFmpegSource(info, capturer, config.Target), nil
}

// NewIPCamSourceFromConfig は任意のストリームURLのソースを作成する
func NewIPCamSourceFromConfig(config SourceConfig) (VideoSource, error) {
	if err := ValidateStreamURL(config.URL); err != nil {
		return nil, err
	}

	info := VideoSourceInfo{
		ID:          uuid.NewString(),
		Name:        "IPカメラ",
		Type:        SourceTypeIPCam,
		Description: "IPカメラ: " + config.URL,
		URL:         config.URL,
	}

	capturer := NewStreamCapturer(config.URL, config.Settings.FrameRate, config.Settings.Quality)
	return NewFFmpegSource(info, capturer, config.Target), nil
}

// NewTestPatternSourceFromConfig はカラーバーのソースを作成する
func NewTestPatternSourceFromConfig(config SourceConfig) (VideoSource, error) {
	info := VideoSourceInfo{
		ID:          uuid.NewString(),
		Name:        "テストパターン",
		Type:        SourceTypeTestPattern,
		Description: "SMPTEカラーバー",
	}

	width, height := config.Target.Width, config.Target.Height
	if width <= 0 || height <= 0 {
		width, height = config.Settings.Width, config.Settings.Height
	}
	return NewTestPatternSource(info, width, height), nil
}

// ValidateStreamURL はストリームURLを検証する
func ValidateStreamURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return ErrInvalidURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	switch u.Scheme {
	case "http", "https", "rtsp", "rtsps", "rtmp":
	default:
		return fmt.Errorf("%w: 未対応のスキーム %q", ErrInvalidURL, u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("%w: ホストがありません", ErrInvalidURL)
	}

	return nil
}
