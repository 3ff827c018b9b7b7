package camera

import (
	"context"
	"sync/atomic"

	"utsushie/internal/filter"
)

// smpteBars はSMPTEカラーバーの7色
var smpteBars = [7][3]uint8{
	{192, 192, 192}, // Gray
	{192, 192, 0},   // Yellow
	{0, 192, 192},   // Cyan
	{0, 192, 0},     // Green
	{192, 0, 192},   // Magenta
	{192, 0, 0},     // Red
	{0, 0, 192},     // Blue
}

// TestPatternSource はカラーバーを生成する VideoSource 実装
// フレームごとに白い縦線が右へ移動する
type TestPatternSource struct {
	BaseVideoSource

	width  int
	height int
	frame  atomic.Uint64
}

// NewTestPatternSource は新しいTestPatternSourceを作成する
func NewTestPatternSource(info VideoSourceInfo, width, height int) *TestPatternSource {
	if width <= 0 {
		width = 640
	}
	if height <= 0 {
		height = 480
	}
	return &TestPatternSource{
		BaseVideoSource: BaseVideoSource{
			info:   info,
			status: StatusInactive,
		},
		width:  width,
		height: height,
	}
}

// Start はパターン生成を開始する
func (s *TestPatternSource) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStatus(StatusActive)
	return nil
}

// Stop はパターン生成を停止する
func (s *TestPatternSource) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStatus(StatusInactive)
	return nil
}

// CurrentFrame はカラーバーのフレームを返す
func (s *TestPatternSource) CurrentFrame(_ context.Context) (*filter.PixelBuffer, error) {
	if !s.IsActive() {
		return nil, ErrNotReady
	}

	n := s.frame.Add(1) - 1
	buf := filter.NewPixelBuffer(s.width, s.height)
	FillColorBars(buf)

	// 動きが分かるよう縦線を描く
	x := int(n % uint64(s.width))
	for y := 0; y < s.height; y++ {
		i := (y*s.width + x) * 4
		buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2] = 255, 255, 255
	}

	return buf, nil
}

// FillColorBars はバッファにSMPTEカラーバーを描く
func FillColorBars(buf *filter.PixelBuffer) {
	barWidth := max(buf.Width/7, 1)
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			barIdx := min(x/barWidth, 6)
			i := (y*buf.Width + x) * 4
			buf.Pix[i] = smpteBars[barIdx][0]
			buf.Pix[i+1] = smpteBars[barIdx][1]
			buf.Pix[i+2] = smpteBars[barIdx][2]
			buf.Pix[i+3] = 255
		}
	}
}
