package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"sync"
	"sync/atomic"

	xdraw "golang.org/x/image/draw"

	"utsushie/internal/filter"
)

// Streamer はJPEGフレームを連続して供給するキャプチャ
type Streamer interface {
	// TestCapture は接続確認を行う
	TestCapture(ctx context.Context) error

	// StartStream は ctx がキャンセルされるまでフレームを送り続ける
	StartStream(ctx context.Context, frameChan chan<- []byte, errorChan chan<- error)
}

// FFmpegSource はffmpeg経由で取得したMJPEGストリームを扱う VideoSource 実装
//
// ストリームは最新のJPEGだけを保持し、CurrentFrame の呼び出し時にデコードする。
type FFmpegSource struct {
	BaseVideoSource

	streamer Streamer
	target   Resolution // 0の場合はネイティブ解像度

	// 制御用
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// ストリーミング用の内部チャンネル
	internalFrameChan chan []byte
	internalErrorChan chan error

	// 最新フレーム保持用
	latestFrame []byte
	latestMutex sync.RWMutex

	// streamEnded はキャンセル以外の理由でストリームが終わったことを示す
	streamEnded atomic.Bool
}

// NewFFmpegSource は新しいFFmpegSourceを作成する
func NewFFmpegSource(info VideoSourceInfo, streamer Streamer, target Resolution) *FFmpegSource {
	return &FFmpegSource{
		BaseVideoSource: BaseVideoSource{
			info:   info,
			status: StatusInactive,
		},
		streamer: streamer,
		target:   target,
	}
}

// Start はストリーミングを開始する
func (s *FFmpegSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusActive && !s.streamEnded.Load() {
		return nil // 既に開始済み
	}
	// 途中で終了したストリームの後始末
	if s.cancel != nil {
		s.cancel()
		s.wg.Wait()
		s.cancel = nil
	}
	s.streamEnded.Store(false)

	// 接続テストを実行
	if err := s.streamer.TestCapture(ctx); err != nil {
		s.setStatus(StatusError)
		return fmt.Errorf("%s のテストキャプチャに失敗: %w", s.info.Name, err)
	}

	// ストリームは開始要求のコンテキストより長く生きる
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.internalFrameChan = make(chan []byte, 2)
	s.internalErrorChan = make(chan error, 5)

	s.wg.Add(2)
	go func(frameChan chan<- []byte, errorChan chan<- error) {
		defer s.wg.Done()
		s.streamer.StartStream(streamCtx, frameChan, errorChan)
		if streamCtx.Err() == nil {
			s.endStream()
			cancel()
		}
	}(s.internalFrameChan, s.internalErrorChan)
	go s.forwardFrames(streamCtx, s.info.Name, s.internalFrameChan, s.internalErrorChan)

	s.setStatus(StatusActive)
	log.Printf("映像ソースを開始しました: %s (%s)", s.info.Name, s.info.Type)
	return nil
}

// Stop はストリーミングを停止する。停止済みの場合は何もしない
func (s *FFmpegSource) Stop(_ context.Context) error {
	// フラグはロックの前に落とす
	s.active.Store(false)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		s.setStatus(StatusInactive)
		return nil // 既に停止済み
	}

	s.cancel()
	s.wg.Wait()
	s.cancel = nil

	s.latestMutex.Lock()
	s.latestFrame = nil
	s.latestMutex.Unlock()

	s.setStatus(StatusInactive)
	log.Printf("映像ソースを停止しました: %s", s.info.Name)
	return nil
}

// CurrentFrame は最新のJPEGをデコードしてピクセルバッファとして返す
func (s *FFmpegSource) CurrentFrame(_ context.Context) (*filter.PixelBuffer, error) {
	if !s.IsActive() {
		return nil, ErrNotReady
	}

	s.latestMutex.RLock()
	frame := s.latestFrame
	s.latestMutex.RUnlock()

	if len(frame) == 0 {
		return nil, ErrNotReady
	}

	img, err := jpeg.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("JPEG画像のデコードに失敗: %w", err)
	}

	return toPixelBuffer(img, s.target), nil
}

// GetStatus はステータスを返す。ストリームが途中で終了していれば StatusError
func (s *FFmpegSource) GetStatus() Status {
	status := s.BaseVideoSource.GetStatus()
	if status == StatusActive && s.streamEnded.Load() {
		return StatusError
	}
	return status
}

// latestJPEG は最新のJPEGフレームを返す（未受信時はnil）
func (s *FFmpegSource) latestJPEG() []byte {
	s.latestMutex.RLock()
	defer s.latestMutex.RUnlock()
	return s.latestFrame
}

// endStream はffmpegの終了などでストリームが切れたソースを準備未完了に戻す
// Stop が mu を保持したまま終了を待つため、ここでは mu を取らない
func (s *FFmpegSource) endStream() {
	s.streamEnded.Store(true)
	s.active.Store(false)

	s.latestMutex.Lock()
	s.latestFrame = nil
	s.latestMutex.Unlock()

	log.Printf("映像ソース %s のストリームが終了しました", s.info.Name)
}

// forwardFrames はキャプチャからのフレームを最新フレームとして保持する
// Stop が mu を保持したまま終了を待つため、ここでは mu を取らない
func (s *FFmpegSource) forwardFrames(ctx context.Context, name string, frameChan <-chan []byte, errorChan <-chan error) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case frame := <-frameChan:
			if s.streamEnded.Load() {
				continue
			}
			s.latestMutex.Lock()
			s.latestFrame = frame
			s.latestMutex.Unlock()

		case err := <-errorChan:
			log.Printf("映像ソース %s でエラーが発生: %v", name, err)
		}
	}
}

// toPixelBuffer は画像を目標解像度に合わせてバッファへ変換する
func toPixelBuffer(img image.Image, target Resolution) *filter.PixelBuffer {
	bounds := img.Bounds()
	if target.Width <= 0 || target.Height <= 0 ||
		(bounds.Dx() == target.Width && bounds.Dy() == target.Height) {
		return filter.FromImage(img)
	}

	buf := filter.NewPixelBuffer(target.Width, target.Height)
	dst := buf.Image()
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)
	return buf
}
