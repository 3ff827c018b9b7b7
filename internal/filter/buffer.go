package filter

import (
	"fmt"
	"image"
	"image/draw"
)

// PixelBuffer は1フレーム分のRGBAピクセルデータ
type PixelBuffer struct {
	Width  int     // 画像幅
	Height int     // 画像高さ
	Pix    []uint8 // RGBA各8bit、行優先で連続配置
}

// NewPixelBuffer は指定サイズのゼロ初期化されたバッファを作成する
func NewPixelBuffer(width, height int) *PixelBuffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*4),
	}
}

// Validate はバッファ長と寸法が一致しているか検証する
func (b *PixelBuffer) Validate() error {
	if b.Width < 0 || b.Height < 0 {
		return fmt.Errorf("無効な寸法: %dx%d", b.Width, b.Height)
	}
	if want := b.Width * b.Height * 4; len(b.Pix) != want {
		return fmt.Errorf("バッファ長が寸法と一致しません: got %d, want %d", len(b.Pix), want)
	}
	return nil
}

// Clone はバッファのディープコピーを返す
func (b *PixelBuffer) Clone() *PixelBuffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &PixelBuffer{Width: b.Width, Height: b.Height, Pix: pix}
}

// Image はPixを共有する *image.RGBA を返す
func (b *PixelBuffer) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    b.Pix,
		Stride: b.Width * 4,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// FromImage は任意の画像をRGBAバッファへ変換する
// 原点は (0, 0) に正規化される
func FromImage(img image.Image) *PixelBuffer {
	bounds := img.Bounds()
	buf := NewPixelBuffer(bounds.Dx(), bounds.Dy())

	// 既にRGBAでストライドが詰まっている場合はコピーだけで済ませる
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == bounds.Dx()*4 {
		copy(buf.Pix, rgba.Pix[rgba.PixOffset(bounds.Min.X, bounds.Min.Y):])
		return buf
	}

	draw.Draw(buf.Image(), buf.Image().Bounds(), img, bounds.Min, draw.Src)
	return buf
}
