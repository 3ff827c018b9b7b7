package camera

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"
)

// fakeStreamer はffmpegの代わりに固定のJPEGを送るStreamer
type fakeStreamer struct {
	frames  [][]byte
	testErr error
	// exitAfterFrames が真なら、送信後にキャンセルを待たずに終了する
	exitAfterFrames bool
}

func (f *fakeStreamer) TestCapture(_ context.Context) error {
	return f.testErr
}

func (f *fakeStreamer) StartStream(ctx context.Context, frameChan chan<- []byte, _ chan<- error) {
	for _, frame := range f.frames {
		select {
		case frameChan <- frame:
		case <-ctx.Done():
			return
		}
	}
	if f.exitAfterFrames {
		return
	}
	<-ctx.Done()
}

func encodeTestJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}
	return buf.Bytes()
}

// waitForFrame はフレームが取得できるまで待つ
func waitForFrame(t *testing.T, src VideoSource) (width, height int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		frame, err := src.CurrentFrame(context.Background())
		if err == nil {
			if verr := frame.Validate(); verr != nil {
				t.Fatalf("Invalid frame: %v", verr)
			}
			return frame.Width, frame.Height
		}
		if !errors.Is(err, ErrNotReady) {
			t.Fatalf("Unexpected error: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Timed out waiting for frame")
	return 0, 0
}

func TestFFmpegSource_StartFrameStop(t *testing.T) {
	ctx := context.Background()
	streamer := &fakeStreamer{frames: [][]byte{encodeTestJPEG(t, 16, 8)}}
	src := NewFFmpegSource(VideoSourceInfo{ID: "test", Name: "Test"}, streamer, Resolution{})

	// 開始前は準備未完了
	if _, err := src.CurrentFrame(ctx); !errors.Is(err, ErrNotReady) {
		t.Errorf("Expected ErrNotReady before start, got %v", err)
	}

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !src.IsActive() || src.GetStatus() != StatusActive {
		t.Fatalf("Expected active source, got %s", src.GetStatus())
	}

	width, height := waitForFrame(t, src)
	if width != 16 || height != 8 {
		t.Errorf("Expected native 16x8, got %dx%d", width, height)
	}
	if len(src.latestJPEG()) == 0 {
		t.Error("Expected latest JPEG to be kept")
	}

	if err := src.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if src.IsActive() {
		t.Error("Expected inactive after stop")
	}
	if _, err := src.CurrentFrame(ctx); !errors.Is(err, ErrNotReady) {
		t.Errorf("Expected ErrNotReady after stop, got %v", err)
	}

	// 二重停止はエラーにならない
	if err := src.Stop(ctx); err != nil {
		t.Fatalf("Second stop failed: %v", err)
	}
	if src.GetStatus() != StatusInactive {
		t.Errorf("Expected inactive status, got %s", src.GetStatus())
	}
}

func TestFFmpegSource_TargetResolution(t *testing.T) {
	ctx := context.Background()
	streamer := &fakeStreamer{frames: [][]byte{encodeTestJPEG(t, 32, 24)}}
	src := NewFFmpegSource(VideoSourceInfo{ID: "test"}, streamer, Resolution{Width: 8, Height: 6})

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer src.Stop(ctx)

	width, height := waitForFrame(t, src)
	if width != 8 || height != 6 {
		t.Errorf("Expected scaled 8x6, got %dx%d", width, height)
	}
}

func TestFFmpegSource_StartFailure(t *testing.T) {
	ctx := context.Background()
	streamer := &fakeStreamer{testErr: errors.New("no device")}
	src := NewFFmpegSource(VideoSourceInfo{ID: "test"}, streamer, Resolution{})

	if err := src.Start(ctx); err == nil {
		t.Fatal("Expected start to fail")
	}
	if src.GetStatus() != StatusError {
		t.Errorf("Expected error status, got %s", src.GetStatus())
	}
	if src.IsActive() {
		t.Error("Expected inactive source")
	}

	// エラー状態からの停止も安全
	if err := src.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestFFmpegSource_StopNeverStarted(t *testing.T) {
	src := NewFFmpegSource(VideoSourceInfo{ID: "test"}, &fakeStreamer{}, Resolution{})

	if err := src.Stop(context.Background()); err != nil {
		t.Fatalf("Stop of inactive source failed: %v", err)
	}
	if src.IsActive() {
		t.Error("Expected source to remain inactive")
	}
}

func TestFFmpegSource_CorruptFrame(t *testing.T) {
	ctx := context.Background()
	streamer := &fakeStreamer{frames: [][]byte{{0xFF, 0xD8, 0x00, 0xFF, 0xD9}}}
	src := NewFFmpegSource(VideoSourceInfo{ID: "test"}, streamer, Resolution{})

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer src.Stop(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, err := src.CurrentFrame(ctx)
		if err != nil && !errors.Is(err, ErrNotReady) {
			return // デコードエラーは準備未完了と区別される
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Expected decode error")
}

func TestFFmpegSource_StreamEnds(t *testing.T) {
	ctx := context.Background()
	streamer := &fakeStreamer{frames: [][]byte{encodeTestJPEG(t, 16, 8)}, exitAfterFrames: true}
	src := NewFFmpegSource(VideoSourceInfo{ID: "test", Name: "Test"}, streamer, Resolution{})

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for src.IsActive() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if src.IsActive() {
		t.Fatal("Expected inactive after the stream ended")
	}
	if src.GetStatus() != StatusError {
		t.Errorf("Expected error status, got %s", src.GetStatus())
	}
	// 最後のフレームを返し続けない
	if _, err := src.CurrentFrame(ctx); !errors.Is(err, ErrNotReady) {
		t.Errorf("Expected ErrNotReady after the stream ended, got %v", err)
	}
	if src.latestJPEG() != nil {
		t.Error("Expected latest JPEG to be cleared")
	}

	// 再開始できる
	streamer.exitAfterFrames = false
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	if src.GetStatus() != StatusActive {
		t.Errorf("Expected active after restart, got %s", src.GetStatus())
	}
	waitForFrame(t, src)

	if err := src.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if src.GetStatus() != StatusInactive {
		t.Errorf("Expected inactive status, got %s", src.GetStatus())
	}
}
