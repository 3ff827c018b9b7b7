package filter

import (
	"bytes"
	"image/jpeg"
	"testing"
)

func TestEncodeJPEG(t *testing.T) {
	buf := NewPixelBuffer(8, 4)
	for i := 0; i < len(buf.Pix); i += 4 {
		buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2], buf.Pix[i+3] = 10, 200, 30, 255
	}

	data, err := EncodeJPEG(buf, 0)
	if err != nil {
		t.Fatalf("EncodeJPEG: %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("デコードに失敗: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 4 {
		t.Errorf("寸法: got %dx%d", b.Dx(), b.Dy())
	}
}

func TestEncodeJPEG_Invalid(t *testing.T) {
	if _, err := EncodeJPEG(NewPixelBuffer(0, 0), 80); err == nil {
		t.Error("空の画像でエラーになるべきです")
	}
	if _, err := EncodeJPEG(&PixelBuffer{Width: 2, Height: 2, Pix: make([]uint8, 3)}, 80); err == nil {
		t.Error("長さ不一致でエラーになるべきです")
	}
}
