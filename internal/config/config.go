package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"utsushie/internal/camera"
	"utsushie/internal/filter"
	"utsushie/internal/storage"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Camera  CameraConfig   `yaml:"camera"`
	Preview PreviewConfig  `yaml:"preview"`
	Storage storage.Config `yaml:"storage"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host"` // リッスンするホスト
	Port int    `yaml:"port"` // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // 読み込みタイムアウト
	WriteTimeout time.Duration `yaml:"write_timeout"` // 書き込みタイムアウト

	MaxUploadSize int64 `yaml:"max_upload_size"` // /upload で受け付ける最大バイト数
}

// CameraConfig はカメラ関連の設定
type CameraConfig struct {
	Source camera.SourceType `yaml:"source"` // 起動時に開始するソース（空なら開始しない）
	Device string            `yaml:"device"` // デバイスパス (例: /dev/video0)
	URL    string            `yaml:"url"`    // ipcam のストリームURL

	FPS    int `yaml:"fps"`    // 取得フレームレート
	Width  int `yaml:"width"`  // 要求する画像幅
	Height int `yaml:"height"` // 要求する画像高さ
}

// PreviewConfig はプレビューとエンコードの設定
type PreviewConfig struct {
	FPS         int `yaml:"fps"`          // プレビューループの周期
	JPEGQuality int `yaml:"jpeg_quality"` // プレビューと撮影画像のJPEG品質
}

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "0.0.0.0",
			Port:          3000,
			ReadTimeout:   10 * time.Second,
			WriteTimeout:  0, // ストリーミング用にタイムアウト無効化
			MaxUploadSize: 10 << 20,
		},
		Camera: CameraConfig{
			Source: camera.SourceTypeDevice,
			Device: "/dev/video0",
			FPS:    15,
			Width:  1280,
			Height: 720,
		},
		Preview: PreviewConfig{
			FPS:         15,
			JPEGQuality: filter.DefaultJPEGQuality,
		},
		Storage: storage.Config{
			Backend:   storage.BackendLocal,
			AWSRegion: "us-east-1",
			LocalDir:  "captures",
		},
	}
}

// Load は設定を読み込む
// デフォルト値、CONFIG_FILE のYAML、環境変数の順に上書きする
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// loadFile はYAMLファイルの内容で設定を上書きする
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("設定ファイルの解析に失敗: %w", err)
	}
	return nil
}

// applyEnv は環境変数で設定を上書きする
func (c *Config) applyEnv() {
	c.Server.Host = getEnvOrDefault("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsIntOrDefault("PORT", c.Server.Port)

	c.Camera.Source = camera.SourceType(getEnvOrDefault("CAMERA_SOURCE", string(c.Camera.Source)))
	c.Camera.Device = getEnvOrDefault("CAMERA_DEVICE", c.Camera.Device)
	c.Camera.URL = getEnvOrDefault("CAMERA_URL", c.Camera.URL)

	c.Preview.FPS = getEnvAsIntOrDefault("PREVIEW_FPS", c.Preview.FPS)
	c.Preview.JPEGQuality = getEnvAsIntOrDefault("JPEG_QUALITY", c.Preview.JPEGQuality)

	c.Storage.Backend = storage.Backend(getEnvOrDefault("STORAGE_BACKEND", string(c.Storage.Backend)))
	c.Storage.S3Bucket = getEnvOrDefault("S3_BUCKET_NAME", c.Storage.S3Bucket)
	c.Storage.AWSRegion = getEnvOrDefault("AWS_REGION", c.Storage.AWSRegion)
	c.Storage.GCSBucket = getEnvOrDefault("GCS_BUCKET_NAME", c.Storage.GCSBucket)
	c.Storage.CredentialsFile = getEnvOrDefault("GOOGLE_APPLICATION_CREDENTIALS", c.Storage.CredentialsFile)
	c.Storage.Endpoint = getEnvOrDefault("UPLOAD_ENDPOINT", c.Storage.Endpoint)
	c.Storage.LocalDir = getEnvOrDefault("LOCAL_STORAGE_DIR", c.Storage.LocalDir)
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	// サーバー設定の検証
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}

	// カメラ設定の検証
	switch c.Camera.Source {
	case "", camera.SourceTypeDevice, camera.SourceTypeDroidCam, camera.SourceTypeTestPattern:
	case camera.SourceTypeIPCam:
		if err := camera.ValidateStreamURL(c.Camera.URL); err != nil {
			return fmt.Errorf("CAMERA_URL: %w", err)
		}
	default:
		return fmt.Errorf("無効なカメラソース: %s", c.Camera.Source)
	}
	if c.Camera.Width < 0 || c.Camera.Height < 0 {
		return fmt.Errorf("無効な解像度: %dx%d", c.Camera.Width, c.Camera.Height)
	}

	// プレビュー設定の検証
	if c.Preview.FPS < 1 || c.Preview.FPS > 60 {
		return fmt.Errorf("無効なプレビューFPS: %d", c.Preview.FPS)
	}
	if c.Preview.JPEGQuality < 1 || c.Preview.JPEGQuality > 100 {
		return fmt.Errorf("無効なJPEG品質: %d", c.Preview.JPEGQuality)
	}

	// ストレージ設定の検証
	switch c.Storage.Backend {
	case storage.BackendS3:
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET_NAME が設定されていません")
		}
	case storage.BackendGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET_NAME が設定されていません")
		}
	case storage.BackendHTTP:
		if c.Storage.Endpoint == "" {
			return fmt.Errorf("UPLOAD_ENDPOINT が設定されていません")
		}
	case storage.BackendLocal:
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("LOCAL_STORAGE_DIR が設定されていません")
		}
	default:
		return fmt.Errorf("無効なストレージバックエンド: %s", c.Storage.Backend)
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// SourceDefaults はカメラ設定から映像ソースの既定値を作る
func (c *Config) SourceDefaults() camera.SourceConfig {
	return camera.SourceConfig{
		Device: c.Camera.Device,
		URL:    c.Camera.URL,
		Settings: camera.VideoSettings{
			Width:     c.Camera.Width,
			Height:    c.Camera.Height,
			FrameRate: c.Camera.FPS,
			Quality:   3,
		},
		Target: camera.Resolution{Width: c.Camera.Width, Height: c.Camera.Height},
	}
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
