package session

import (
	"context"
	"errors"
	"testing"

	"utsushie/internal/camera"
	"utsushie/internal/filter"
)

// stubFactory は作成したMockSourceと受け取った設定を記録する
type stubFactory struct {
	created    []*camera.MockSource
	lastConfig camera.SourceConfig
	failStart  bool
}

func (f *stubFactory) CreateSource(sourceType camera.SourceType, config camera.SourceConfig) (camera.VideoSource, error) {
	if sourceType == "bogus" {
		return nil, camera.ErrUnsupportedSource
	}
	f.lastConfig = config
	src := camera.NewMockSource(filter.NewPixelBuffer(2, 2))
	src.SetShouldFailStart(f.failStart)
	f.created = append(f.created, src)
	return src, nil
}

func (f *stubFactory) GetSupportedTypes() []camera.SourceType {
	return []camera.SourceType{camera.SourceTypeTestPattern}
}

func TestSession_FilterMode(t *testing.T) {
	s := New(&stubFactory{}, camera.SourceConfig{})

	if s.FilterMode() != filter.ModeNone {
		t.Errorf("初期フィルタ: got %s, want none", s.FilterMode())
	}

	s.SetFilter(filter.ModeSharpen)
	if s.FilterMode() != filter.ModeSharpen {
		t.Errorf("フィルタ: got %s, want sharpen", s.FilterMode())
	}
}

func TestSession_InactiveWithoutSource(t *testing.T) {
	s := New(&stubFactory{}, camera.SourceConfig{})

	if s.IsActive() {
		t.Error("ソース未選択でアクティブになっています")
	}
	if _, err := s.ActiveSource(); !errors.Is(err, ErrSourceInactive) {
		t.Errorf("ErrSourceInactive を期待しましたが %v", err)
	}

	// ソース未選択の停止もエラーにならない
	if err := s.StopSource(context.Background()); err != nil {
		t.Fatalf("停止でエラー: %v", err)
	}

	state := s.Snapshot()
	if state.Active || state.Source != nil {
		t.Errorf("予期しない状態: %+v", state)
	}
}

func TestSession_SelectSourceReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	factory := &stubFactory{}
	s := New(factory, camera.SourceConfig{})

	if _, err := s.SelectSource(ctx, camera.SourceTypeTestPattern, camera.SourceConfig{}); err != nil {
		t.Fatalf("1つ目のソース選択に失敗: %v", err)
	}
	if _, err := s.SelectSource(ctx, camera.SourceTypeTestPattern, camera.SourceConfig{}); err != nil {
		t.Fatalf("2つ目のソース選択に失敗: %v", err)
	}

	if len(factory.created) != 2 {
		t.Fatalf("作成されたソース数: got %d", len(factory.created))
	}
	first, second := factory.created[0], factory.created[1]
	if first.IsActive() || first.StopCalls() != 1 {
		t.Error("以前のソースが停止されていません")
	}
	if !second.IsActive() {
		t.Error("新しいソースが開始されていません")
	}
	if s.Source() != camera.VideoSource(second) {
		t.Error("現在のソースが差し替えられていません")
	}
	if !s.Snapshot().Active {
		t.Error("スナップショットがアクティブではありません")
	}
}

func TestSession_StopSourceIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New(&stubFactory{}, camera.SourceConfig{})

	if _, err := s.SelectSource(ctx, camera.SourceTypeTestPattern, camera.SourceConfig{}); err != nil {
		t.Fatalf("ソース選択に失敗: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := s.StopSource(ctx); err != nil {
			t.Fatalf("%d回目の停止でエラー: %v", i+1, err)
		}
		if s.IsActive() {
			t.Fatalf("%d回目の停止後もアクティブです", i+1)
		}
	}

	if _, err := s.ActiveSource(); !errors.Is(err, ErrSourceInactive) {
		t.Errorf("ErrSourceInactive を期待しましたが %v", err)
	}
}

func TestSession_SelectSourceErrors(t *testing.T) {
	ctx := context.Background()

	s := New(&stubFactory{}, camera.SourceConfig{})
	if _, err := s.SelectSource(ctx, "bogus", camera.SourceConfig{}); !errors.Is(err, camera.ErrUnsupportedSource) {
		t.Errorf("ErrUnsupportedSource を期待しましたが %v", err)
	}

	s = New(&stubFactory{failStart: true}, camera.SourceConfig{})
	if _, err := s.SelectSource(ctx, camera.SourceTypeTestPattern, camera.SourceConfig{}); err == nil {
		t.Error("開始失敗でエラーになるべきです")
	}
	if s.Source() != nil || s.IsActive() {
		t.Error("開始に失敗したソースが保持されています")
	}
}

func TestSession_WithDefaults(t *testing.T) {
	factory := &stubFactory{}
	defaults := camera.SourceConfig{
		Device:   "/dev/video0",
		URL:      "http://cam.local/video",
		Settings: camera.VideoSettings{Width: 1280, Height: 720, FrameRate: 15, Quality: 3},
		Target:   camera.Resolution{Width: 640, Height: 360},
	}
	s := New(factory, defaults)

	_, err := s.SelectSource(context.Background(), camera.SourceTypeIPCam, camera.SourceConfig{
		URL: "http://other.local/stream",
	})
	if err != nil {
		t.Fatalf("ソース選択に失敗: %v", err)
	}

	got := factory.lastConfig
	if got.URL != "http://other.local/stream" {
		t.Errorf("URLが上書きされています: %s", got.URL)
	}
	if got.Device != "/dev/video0" || got.Settings.FrameRate != 15 || got.Settings.Width != 1280 {
		t.Errorf("既定値が補われていません: %+v", got)
	}
	if got.Target != defaults.Target {
		t.Errorf("目標解像度: got %+v", got.Target)
	}
}

// slowStartSource は release が閉じられるまで Start を返さない
type slowStartSource struct {
	*camera.MockSource
	started chan struct{}
	release chan struct{}
}

func (s *slowStartSource) Start(ctx context.Context) error {
	close(s.started)
	<-s.release
	return s.MockSource.Start(ctx)
}

func TestSession_StopDuringSwitch(t *testing.T) {
	ctx := context.Background()
	s := New(&stubFactory{}, camera.SourceConfig{})

	src := &slowStartSource{
		MockSource: camera.NewMockSource(filter.NewPixelBuffer(2, 2)),
		started:    make(chan struct{}),
		release:    make(chan struct{}),
	}

	done := make(chan error, 1)
	go func() { done <- s.UseSource(ctx, src) }()

	<-src.started
	if err := s.StopSource(ctx); err != nil {
		t.Fatalf("切り替え中の停止でエラー: %v", err)
	}
	if s.IsActive() {
		t.Error("停止直後にアクティブです")
	}

	close(src.release)
	if err := <-done; err != nil {
		t.Fatalf("UseSource: %v", err)
	}

	if s.IsActive() {
		t.Error("切り替え中の停止要求が失われ、ソースがアクティブです")
	}
	if src.IsActive() {
		t.Error("新しいソースが停止されていません")
	}
	if _, err := s.ActiveSource(); !errors.Is(err, ErrSourceInactive) {
		t.Errorf("ErrSourceInactive を期待しましたが %v", err)
	}

	// 次の切り替えは通常どおり反映される
	if _, err := s.SelectSource(ctx, camera.SourceTypeTestPattern, camera.SourceConfig{}); err != nil {
		t.Fatalf("再選択に失敗: %v", err)
	}
	if !s.IsActive() {
		t.Error("再選択後にアクティブになっていません")
	}
}
