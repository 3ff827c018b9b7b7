package camera

import (
	"context"
	"fmt"
	"sync"

	"utsushie/internal/filter"
)

// MockSource はテスト用の VideoSource 実装
type MockSource struct {
	BaseVideoSource

	frame *filter.PixelBuffer

	// テスト制御用
	shouldFailStart bool
	notReady        bool
	frameErr        error

	callMu     sync.Mutex
	frameCalls int
	stopCalls  int
}

// NewMockSource は指定したフレームを返すMockSourceを作成する
func NewMockSource(frame *filter.PixelBuffer) *MockSource {
	return &MockSource{
		BaseVideoSource: BaseVideoSource{
			info: VideoSourceInfo{
				ID:   "mock",
				Name: "モックカメラ",
				Type: SourceTypeTestPattern,
			},
			status: StatusInactive,
		},
		frame: frame,
	}
}

// Start はモックソースを開始する
func (m *MockSource) Start(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFailStart {
		m.setStatus(StatusError)
		return fmt.Errorf("モック: ソース開始に失敗")
	}

	m.setStatus(StatusActive)
	return nil
}

// Stop はモックソースを停止する
func (m *MockSource) Stop(_ context.Context) error {
	m.active.Store(false)

	m.callMu.Lock()
	m.stopCalls++
	m.callMu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.setStatus(StatusInactive)
	return nil
}

// CurrentFrame は設定されたフレームのコピーを返す
func (m *MockSource) CurrentFrame(_ context.Context) (*filter.PixelBuffer, error) {
	m.callMu.Lock()
	m.frameCalls++
	m.callMu.Unlock()

	if !m.IsActive() {
		return nil, ErrNotReady
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.frameErr != nil {
		return nil, m.frameErr
	}
	if m.notReady || m.frame == nil {
		return nil, ErrNotReady
	}
	return m.frame.Clone(), nil
}

// SetFrame は返すフレームを差し替える
func (m *MockSource) SetFrame(frame *filter.PixelBuffer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frame = frame
}

// SetShouldFailStart はテスト用にStart失敗を設定する
func (m *MockSource) SetShouldFailStart(shouldFail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailStart = shouldFail
}

// SetNotReady はテスト用にフレーム未受信状態を設定する
func (m *MockSource) SetNotReady(notReady bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notReady = notReady
}

// SetFrameError はテスト用にフレーム取得エラーを設定する
func (m *MockSource) SetFrameError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frameErr = err
}

// FrameCalls は CurrentFrame の呼び出し回数を返す
func (m *MockSource) FrameCalls() int {
	m.callMu.Lock()
	defer m.callMu.Unlock()
	return m.frameCalls
}

// StopCalls は Stop の呼び出し回数を返す
func (m *MockSource) StopCalls() int {
	m.callMu.Lock()
	defer m.callMu.Unlock()
	return m.stopCalls
}
