package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-gonic/gin"

	"utsushie/internal/camera"
	"utsushie/internal/config"
	"utsushie/internal/export"
	"utsushie/internal/preview"
	"utsushie/internal/session"
	"utsushie/internal/storage"
)

// Deps はサーバーが使うコンポーネント
type Deps struct {
	Factory   camera.VideoSourceFactory
	Discovery camera.Discovery
	Uploader  storage.Uploader
	Clock     preview.Clock // nilの場合は設定のFPSで TickerClock を作る
	FilesDir  string        // /files/ で配信するディレクトリ（空なら配信しない）
}

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	httpServer *http.Server
	router     *gin.Engine

	factory   camera.VideoSourceFactory
	discovery camera.Discovery
	uploader  storage.Uploader
	session   *session.Session
	hub       *preview.Hub
	loop      *preview.Loop
	pipeline  *export.Pipeline
	openapi   *openapi3.T
	static    fs.FS
	filesDir  string

	// done はシャットダウン時に閉じられ、ストリーミング中のハンドラを終了させる
	done     chan struct{}
	doneOnce sync.Once
}

// New は設定から各コンポーネントを組み立ててServerを作成する
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	uploader, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("アップロード先の初期化に失敗: %w", err)
	}

	discovery := camera.NewLinuxDiscovery()
	deps := Deps{
		Factory:   camera.NewVideoSourceFactory(discovery),
		Discovery: discovery,
		Uploader:  uploader,
	}
	if local, ok := uploader.(*storage.LocalUploader); ok {
		deps.FilesDir = local.Dir()
	}

	return NewWithDeps(ctx, cfg, deps)
}

// NewWithDeps は与えられたコンポーネントでServerを作成する
func NewWithDeps(ctx context.Context, cfg *config.Config, deps Deps) (*Server, error) {
	doc, err := loadOpenAPI(ctx)
	if err != nil {
		return nil, err
	}

	clock := deps.Clock
	if clock == nil {
		clock = preview.NewTickerClock(cfg.Preview.FPS)
	}

	sess := session.New(deps.Factory, cfg.SourceDefaults())
	hub := preview.NewHub(cfg.Preview.JPEGQuality)

	s := &Server{
		config:    cfg,
		factory:   deps.Factory,
		discovery: deps.Discovery,
		uploader:  deps.Uploader,
		session:   sess,
		hub:       hub,
		loop:      preview.NewLoop(sess, hub, clock),
		pipeline:  export.NewPipeline(sess, deps.Uploader, cfg.Preview.JPEGQuality),
		openapi:   doc,
		static:    staticFS(),
		filesDir:  deps.FilesDir,
		done:      make(chan struct{}),
	}

	s.router = s.setupRouter()
	s.httpServer = &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s, nil
}

// Handler はHTTPハンドラを返す
func (s *Server) Handler() http.Handler {
	return s.router
}

// Session はサーバーが保持するセッションを返す
func (s *Server) Session() *session.Session {
	return s.session
}

// setupRouter はHTTPルートを設定する
func (s *Server) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.MaxMultipartMemory = s.config.Server.MaxUploadSize

	// ヘルスチェックエンドポイント
	r.GET("/health", s.HealthCheck)

	// 画像アップロード
	r.POST("/upload", s.UploadImage)

	// APIエンドポイント
	api := r.Group("/api")
	{
		api.GET("/status", s.GetStatus)
		api.GET("/openapi.json", s.GetOpenAPI)

		api.GET("/devices", s.ListDevices)
		api.PUT("/source", s.SelectSource)
		api.DELETE("/source", s.StopSource)
		api.PUT("/filter", s.SetFilter)
		api.POST("/capture", s.Capture)

		api.GET("/preview/stream", s.GetPreviewStream)
		api.GET("/preview/ws", s.GetPreviewWebSocket)
		api.GET("/preview/frame", s.GetPreviewFrame)
	}

	if s.filesDir != "" {
		r.Static("/files", s.filesDir)
	}

	// SPAのフォールバック
	r.NoRoute(s.serveSPA)

	return r
}

// StartDefaultSource は設定された既定のソースを開始する
// 失敗してもサーバーは起動を続ける
func (s *Server) StartDefaultSource(ctx context.Context) {
	sourceType := s.config.Camera.Source
	if sourceType == "" {
		return
	}

	info, err := s.session.SelectSource(ctx, sourceType, camera.SourceConfig{})
	if err != nil {
		log.Printf("既定の映像ソース(%s)を開始できませんでした: %v", sourceType, err)
		return
	}
	log.Printf("既定の映像ソースを開始しました: %s (%s)", info.Name, info.Type)
}

// Start はサーバーを起動する
func (s *Server) Start(ctx context.Context) error {
	s.StartDefaultSource(ctx)

	// プレビューループは独立したゴルーチンで動かす
	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		s.loop.Run(loopCtx)
	}()

	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		log.Printf("HTTPサーバーを起動しています: %s", s.config.ServerAddress())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		log.Println("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		log.Printf("シグナルを受信しました: %v", sig)
	case runErr = <-shutdownCh:
	}

	stopLoop()
	<-loopDone

	// グレースフルシャットダウン
	if err := s.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Shutdown はサーバーをグレースフルにシャットダウンする
func (s *Server) Shutdown() error {
	log.Println("サーバーをシャットダウンしています...")

	s.doneOnce.Do(func() { close(s.done) })

	// 5秒のタイムアウトを設定
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("サーバーのシャットダウンに失敗: %w", err))
	}
	if err := s.session.StopSource(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	log.Println("サーバーが正常にシャットダウンされました")
	return nil
}
