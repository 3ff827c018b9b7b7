package filter

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
)

// Mode はフィルタの種類を表す
type Mode string

const (
	ModeNone      Mode = "none"      // フィルタなし
	ModeGrayscale Mode = "grayscale" // グレースケール
	ModeNegative  Mode = "negative"  // ネガポジ反転
	ModeSharpen   Mode = "sharpen"   // シャープ化
)

// ErrUnsupportedMode は ParseMode が未知のモード名を受け取った場合に返される
var ErrUnsupportedMode = errors.New("サポートされていないフィルタモード")

// sharpenKernel は3x3のアンシャープマスク。重みの合計は1
var sharpenKernel = [9]int{
	0, -1, 0,
	-1, 5, -1,
	0, -1, 0,
}

// parallelThreshold を超える画素数の場合はsharpenを行単位で並列化する
const parallelThreshold = 320 * 240

// Modes は利用可能なフィルタモードの一覧を返す
func Modes() []Mode {
	return []Mode{ModeNone, ModeGrayscale, ModeNegative, ModeSharpen}
}

// ParseMode は文字列をModeに変換する
// 空文字は none、"sharp" は sharpen の別名として受け付ける
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ModeNone, nil
	case "grayscale":
		return ModeGrayscale, nil
	case "negative":
		return ModeNegative, nil
	case "sharpen", "sharp":
		return ModeSharpen, nil
	default:
		return ModeNone, fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
	}
}

// Clamp は整数値をチャンネル値の範囲 [0, 255] に丸める
func Clamp(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Apply はバッファにフィルタをその場で適用し、同じバッファを返す
// 未知のモードは none として扱う
func Apply(buf *PixelBuffer, mode Mode) *PixelBuffer {
	if buf == nil {
		return nil
	}

	switch mode {
	case ModeGrayscale:
		grayscale(buf.Pix)
	case ModeNegative:
		negative(buf.Pix)
	case ModeSharpen, "sharp":
		sharpen(buf)
	default:
		// フィルタなし
	}

	return buf
}

// grayscale はRGBの単純平均を3チャンネルに書き込む
func grayscale(pix []uint8) {
	for i := 0; i+3 < len(pix); i += 4 {
		avg := uint8((int(pix[i]) + int(pix[i+1]) + int(pix[i+2])) / 3)
		pix[i] = avg
		pix[i+1] = avg
		pix[i+2] = avg
	}
}

// negative はRGBを反転する
func negative(pix []uint8) {
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i] = 255 - pix[i]
		pix[i+1] = 255 - pix[i+1]
		pix[i+2] = 255 - pix[i+2]
	}
}

// sharpen は内側の画素にカーネルを畳み込む
func sharpen(buf *PixelBuffer) {
	if buf.Width < 3 || buf.Height < 3 {
		return
	}

	// 書き込みが近傍の計算に影響しないよう、元画像のスナップショットから読む
	src := make([]uint8, len(buf.Pix))
	copy(src, buf.Pix)

	first, last := 1, buf.Height-1
	if buf.Width*buf.Height < parallelThreshold {
		sharpenRows(buf.Pix, src, buf.Width, first, last)
		return
	}

	workers := runtime.GOMAXPROCS(0)
	rows := last - first
	if workers > rows {
		workers = rows
	}
	band := (rows + workers - 1) / workers

	var wg sync.WaitGroup
	for y0 := first; y0 < last; y0 += band {
		y1 := min(y0+band, last)
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			sharpenRows(buf.Pix, src, buf.Width, y0, y1)
		}(y0, y1)
	}
	wg.Wait()
}

// sharpenRows は [y0, y1) の行を処理する
func sharpenRows(dst, src []uint8, width, y0, y1 int) {
	stride := width * 4
	for y := y0; y < y1; y++ {
		for x := 1; x < width-1; x++ {
			offset := y*stride + x*4
			for c := 0; c < 3; c++ {
				val := 0
				for ky := -1; ky <= 1; ky++ {
					row := offset + ky*stride + c
					for kx := -1; kx <= 1; kx++ {
						val += int(src[row+kx*4]) * sharpenKernel[(ky+1)*3+(kx+1)]
					}
				}
				dst[offset+c] = Clamp(val)
			}
		}
	}
}
