package server

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"utsushie/internal/api"
	"utsushie/internal/camera"
	"utsushie/internal/export"
	"utsushie/internal/filter"
	"utsushie/internal/storage"
)

// HealthCheck はヘルスチェックエンドポイントの実装
func (s *Server) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{
		Status:    api.Healthy,
		Timestamp: time.Now(),
	})
}

// GetStatus はシステム状態取得エンドポイントの実装
func (s *Server) GetStatus(c *gin.Context) {
	state := s.session.Snapshot()

	c.JSON(http.StatusOK, api.StatusResponse{
		Status: api.Running,
		Server: api.ServerInfo{
			Host: s.config.Server.Host,
			Port: s.config.Server.Port,
		},
		Filter:           state.Filter,
		Filters:          filter.Modes(),
		Active:           state.Active,
		Source:           state.Source,
		SupportedSources: s.factory.GetSupportedTypes(),
		Preview: api.PreviewInfo{
			Subscribers: s.hub.SubscriberCount(),
			Stats:       s.loop.Stats(),
		},
		Timestamp: time.Now(),
	})
}

// GetOpenAPI はOpenAPIドキュメントを返す
func (s *Server) GetOpenAPI(c *gin.Context) {
	c.JSON(http.StatusOK, s.openapi)
}

// ListDevices は接続されているカメラデバイスの一覧を返す
func (s *Server) ListDevices(c *gin.Context) {
	devices := []camera.DeviceInfo{}
	if s.discovery != nil {
		found, err := s.discovery.ScanDevices(c.Request.Context())
		if err != nil {
			log.Printf("カメラデバイスの検出に失敗: %v", err)
			c.JSON(http.StatusInternalServerError, api.NewErrorResponse(api.ErrorSourceFailed, "カメラデバイスを検出できませんでした", err))
			return
		}
		devices = append(devices, found...)
	}
	c.JSON(http.StatusOK, api.DevicesResponse{Devices: devices})
}

// SelectSource は映像ソースを切り替える
func (s *Server) SelectSource(c *gin.Context) {
	var req api.SelectSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.NewErrorResponse(api.ErrorBadRequest, "リクエストが不正です", err))
		return
	}

	info, err := s.session.SelectSource(c.Request.Context(), req.Type, camera.SourceConfig{
		Device: req.Device,
		URL:    req.URL,
	})
	if err != nil {
		if errors.Is(err, camera.ErrInvalidURL) || errors.Is(err, camera.ErrUnsupportedSource) ||
			errors.Is(err, camera.ErrDeviceUnavailable) {
			c.JSON(http.StatusBadRequest, api.NewErrorResponse(api.ErrorBadRequest, "映像ソースの指定が不正です", err))
			return
		}
		log.Printf("映像ソースの開始に失敗: %v", err)
		c.JSON(http.StatusInternalServerError, api.NewErrorResponse(api.ErrorSourceFailed, "映像ソースを開始できませんでした", err))
		return
	}

	c.JSON(http.StatusOK, api.SourceResponse{
		Source: info,
		Active: s.session.IsActive(),
	})
}

// StopSource は映像ソースを停止する
func (s *Server) StopSource(c *gin.Context) {
	if err := s.session.StopSource(c.Request.Context()); err != nil {
		log.Printf("映像ソースの停止に失敗: %v", err)
		c.JSON(http.StatusInternalServerError, api.NewErrorResponse(api.ErrorSourceFailed, "映像ソースを停止できませんでした", err))
		return
	}
	c.Status(http.StatusNoContent)
}

// SetFilter はフィルタを切り替える
func (s *Server) SetFilter(c *gin.Context) {
	var req api.SetFilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.NewErrorResponse(api.ErrorBadRequest, "リクエストが不正です", err))
		return
	}

	mode, err := filter.ParseMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.NewErrorResponse(api.ErrorBadRequest, "未知のフィルタです", err))
		return
	}

	s.session.SetFilter(mode)
	c.JSON(http.StatusOK, api.FilterResponse{Mode: mode})
}

// Capture は現在のフレームにフィルタを適用してアップロードする
func (s *Server) Capture(c *gin.Context) {
	url, err := s.pipeline.Capture(c.Request.Context())
	if err != nil {
		var uploadErr *storage.UploadError
		switch {
		case errors.Is(err, export.ErrSourceInactive):
			c.JSON(http.StatusConflict, api.NewErrorResponse(api.ErrorSourceInactive, "カメラがアクティブではありません", nil))
		case errors.Is(err, export.ErrSourceNotReady):
			c.JSON(http.StatusServiceUnavailable, api.NewErrorResponse(api.ErrorSourceNotReady, "フレームをまだ受信していません", nil))
		case errors.As(err, &uploadErr):
			log.Printf("撮影画像のアップロードに失敗: %v", err)
			c.JSON(http.StatusBadGateway, api.NewErrorResponse(api.ErrorUploadFailed, "画像のアップロードに失敗しました", err))
		default:
			log.Printf("撮影に失敗: %v", err)
			c.JSON(http.StatusInternalServerError, api.NewErrorResponse(api.ErrorSourceFailed, "撮影に失敗しました", err))
		}
		return
	}

	c.JSON(http.StatusOK, api.UploadResponse{URL: url})
}

// /upload のエラー文言
const (
	uploadErrNoFile = "No file uploaded"
	uploadErrFailed = "Error uploading image"
)

// UploadImage は multipart の image フィールドで受け取った画像をアップロードする
func (s *Server) UploadImage(c *gin.Context) {
	header, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, api.NewUploadErrorResponse(uploadErrNoFile, nil))
		return
	}
	if limit := s.config.Server.MaxUploadSize; limit > 0 && header.Size > limit {
		c.JSON(http.StatusBadRequest, api.NewUploadErrorResponse("File too large", nil))
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, api.NewUploadErrorResponse(uploadErrNoFile, err))
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.NewUploadErrorResponse(uploadErrNoFile, err))
		return
	}

	url, err := s.uploader.Upload(c.Request.Context(), data, header.Filename, export.CaptureContentType)
	if err != nil {
		log.Printf("画像のアップロードに失敗: %v", err)
		c.JSON(http.StatusInternalServerError, api.NewUploadErrorResponse(uploadErrFailed, err))
		return
	}

	c.JSON(http.StatusOK, api.UploadResponse{URL: url})
}

// serveSPA は埋め込みの静的ファイルを返し、見つからなければ index.html を返す
func (s *Server) serveSPA(c *gin.Context) {
	path := c.Request.URL.Path

	if strings.HasPrefix(path, "/api/") {
		c.JSON(http.StatusNotFound, api.NewErrorResponse(api.ErrorNotFound, "エンドポイントが見つかりません", nil))
		return
	}
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.JSON(http.StatusNotFound, api.NewErrorResponse(api.ErrorNotFound, "エンドポイントが見つかりません", nil))
		return
	}

	if path != "/index.html" && staticFileExists(s.static, path) {
		c.FileFromFS(path, httpStaticFS(s.static))
		return
	}

	index, err := getIndexHTML()
	if err != nil {
		c.String(http.StatusInternalServerError, "index.html が見つかりません")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", index)
}
