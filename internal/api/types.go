// Package api はHTTP APIのリクエスト・レスポンスの型を定義する
//
// 型は internal/server/openapi.yaml のスキーマと対応する。
package api

import (
	"time"

	"utsushie/internal/camera"
	"utsushie/internal/filter"
	"utsushie/internal/preview"
)

// エラーコード
const (
	ErrorBadRequest     = "bad_request"
	ErrorSourceInactive = "source_inactive"
	ErrorSourceNotReady = "source_not_ready"
	ErrorSourceFailed   = "source_failed"
	ErrorUploadFailed   = "upload_failed"
	ErrorNotFound       = "not_found"
)

// HealthStatus はヘルスチェックの状態
type HealthStatus string

const (
	Healthy HealthStatus = "healthy"
)

// RunningStatus はシステムの状態
type RunningStatus string

const (
	Running RunningStatus = "running"
)

// ErrorResponse はエラーレスポンス
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Details   *string   `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse はヘルスチェックのレスポンス
type HealthResponse struct {
	Status    HealthStatus `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
}

// ServerInfo はサーバー情報
type ServerInfo struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// StatusResponse はシステム状態のレスポンス
type StatusResponse struct {
	Status           RunningStatus           `json:"status"`
	Server           ServerInfo              `json:"server"`
	Filter           filter.Mode             `json:"filter"`
	Filters          []filter.Mode           `json:"filters"`
	Active           bool                    `json:"active"`
	Source           *camera.VideoSourceInfo `json:"source,omitempty"`
	SupportedSources []camera.SourceType     `json:"supported_sources"`
	Preview          PreviewInfo             `json:"preview"`
	Timestamp        time.Time               `json:"timestamp"`
}

// PreviewInfo はプレビューの状態
type PreviewInfo struct {
	Subscribers int           `json:"subscribers"`
	Stats       preview.Stats `json:"stats"`
}

// DevicesResponse はカメラデバイス一覧のレスポンス
type DevicesResponse struct {
	Devices []camera.DeviceInfo `json:"devices"`
}

// SelectSourceRequest は映像ソース選択のリクエスト
type SelectSourceRequest struct {
	Type   camera.SourceType `json:"type" binding:"required,oneof=device droidcam ipcam testpattern"`
	URL    string            `json:"url,omitempty" binding:"required_if=Type ipcam"`
	Device string            `json:"device,omitempty"`
}

// SourceResponse は映像ソース選択のレスポンス
type SourceResponse struct {
	Source camera.VideoSourceInfo `json:"source"`
	Active bool                   `json:"active"`
}

// SetFilterRequest はフィルタ変更のリクエスト
type SetFilterRequest struct {
	Mode string `json:"mode" binding:"required"`
}

// FilterResponse はフィルタ変更のレスポンス
type FilterResponse struct {
	Mode filter.Mode `json:"mode"`
}

// UploadResponse はアップロード・撮影のレスポンス
type UploadResponse struct {
	URL string `json:"url"`
}

// UploadErrorResponse は /upload のエラーレスポンス
// error にはコードではなく表示用の文言を入れる
type UploadErrorResponse struct {
	Error   string  `json:"error"`
	Details *string `json:"details,omitempty"`
}

// NewUploadErrorResponse は /upload のエラーレスポンスを作成する
func NewUploadErrorResponse(message string, details error) UploadErrorResponse {
	resp := UploadErrorResponse{Error: message}
	if details != nil {
		d := details.Error()
		resp.Details = &d
	}
	return resp
}

// NewErrorResponse はエラーレスポンスを作成する
func NewErrorResponse(code, message string, details error) ErrorResponse {
	resp := ErrorResponse{
		Error:     code,
		Message:   message,
		Timestamp: time.Now(),
	}
	if details != nil {
		d := details.Error()
		resp.Details = &d
	}
	return resp
}
