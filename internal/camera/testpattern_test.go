package camera

import (
	"context"
	"errors"
	"testing"

	"utsushie/internal/filter"
)

func TestTestPatternSource(t *testing.T) {
	src := NewTestPatternSource(VideoSourceInfo{ID: "tp", Type: SourceTypeTestPattern}, 70, 10)

	if _, err := src.CurrentFrame(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Errorf("開始前は ErrNotReady が期待されました: %v", err)
	}

	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !src.IsActive() || src.GetStatus() != StatusActive {
		t.Error("開始後にアクティブになっていません")
	}

	first, err := src.CurrentFrame(context.Background())
	if err != nil {
		t.Fatalf("CurrentFrame: %v", err)
	}
	if first.Width != 70 || first.Height != 10 {
		t.Errorf("寸法: got %dx%d", first.Width, first.Height)
	}
	if err := first.Validate(); err != nil {
		t.Errorf("不正なバッファ: %v", err)
	}

	second, _ := src.CurrentFrame(context.Background())
	// 縦線は1フレームごとに1ピクセル右へ進む
	if second.Pix[4] != 255 || second.Pix[5] != 255 || second.Pix[6] != 255 {
		t.Errorf("2フレーム目の x=1 が白ではありません: %v", second.Pix[4:8])
	}
	if first.Pix[0] != 255 || first.Pix[4] == 255 {
		t.Error("1フレーム目の縦線は x=0 にあるべきです")
	}

	// 停止は何度呼んでもよい
	for i := 0; i < 2; i++ {
		if err := src.Stop(context.Background()); err != nil {
			t.Fatalf("Stop: %v", err)
		}
	}
	if src.IsActive() {
		t.Error("停止後もアクティブです")
	}
	if _, err := src.CurrentFrame(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Errorf("停止後は ErrNotReady が期待されました: %v", err)
	}
}

func TestFillColorBars_Layout(t *testing.T) {
	buf := filter.NewPixelBuffer(14, 2)
	FillColorBars(buf)

	for i := 3; i < len(buf.Pix); i += 4 {
		if buf.Pix[i] != 255 {
			t.Fatal("アルファが不透明ではありません")
		}
	}
	// 左端は灰色、右端は青
	left := buf.Pix[0:3]
	right := buf.Pix[13*4 : 13*4+3]
	if left[0] != 192 || left[1] != 192 || left[2] != 192 {
		t.Errorf("左端のバー: %v", left)
	}
	if right[0] != 0 || right[1] != 0 || right[2] != 192 {
		t.Errorf("右端のバー: %v", right)
	}
}
