package filter

import (
	"bytes"
	"fmt"
	"image/jpeg"
)

// DefaultJPEGQuality はJPEGエンコードの既定品質
const DefaultJPEGQuality = 90

// EncodeJPEG はバッファをJPEGにエンコードする
// 品質が範囲外の場合は DefaultJPEGQuality を使う
func EncodeJPEG(buf *PixelBuffer, quality int) ([]byte, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	if buf.Width == 0 || buf.Height == 0 {
		return nil, fmt.Errorf("空の画像はエンコードできません")
	}
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, buf.Image(), &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("JPEGエンコードに失敗: %w", err)
	}
	return out.Bytes(), nil
}
