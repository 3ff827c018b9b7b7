package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"time"
)

// maxFrameSize を超えて終了マーカーが現れない場合は破損とみなして捨てる
const maxFrameSize = 16 * 1024 * 1024

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// FFmpegCapturer はffmpegのサブプロセス経由で映像を取得し、MJPEGフレームを取り出す
type FFmpegCapturer struct {
	input   []string // ffmpegの入力引数（-i を含む）
	fps     int
	quality int
}

// NewDeviceCapturer はローカルカメラデバイス用のキャプチャを作成する
func NewDeviceCapturer(device string, width, height, fps, quality int) *FFmpegCapturer {
	var input []string

	switch runtime.GOOS {
	case "darwin":
		if device == "" {
			device = "0"
		}
		input = []string{"-f", "avfoundation"}
	case "windows":
		if device == "" {
			device = "Integrated Webcam"
		}
		input = []string{"-f", "dshow"}
		device = "video=" + device
	default:
		if device == "" {
			device = "/dev/video0"
		}
		input = []string{"-f", "v4l2"}
	}

	if width > 0 && height > 0 {
		input = append(input, "-video_size", fmt.Sprintf("%dx%d", width, height))
	}
	input = append(input, "-i", device)

	return &FFmpegCapturer{input: input, fps: fps, quality: quality}
}

// NewStreamCapturer はネットワークストリーム（MJPEG over HTTP、RTSP等）用のキャプチャを作成する
func NewStreamCapturer(url string, fps, quality int) *FFmpegCapturer {
	input := []string{
		"-fflags", "nobuffer",
		"-flags", "low_delay",
		"-i", url,
	}
	return &FFmpegCapturer{input: input, fps: fps, quality: quality}
}

// Args は連続キャプチャ時のffmpeg引数を返す
func (c *FFmpegCapturer) Args() []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	args = append(args, c.input...)
	if c.fps > 0 {
		args = append(args, "-r", strconv.Itoa(c.fps))
	}
	return append(args,
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-q:v", strconv.Itoa(c.qualityOrDefault()),
		"-",
	)
}

// CaptureFrameAsJPEG は1フレームをキャプチャしてJPEGバイト配列として返す
func (c *FFmpegCapturer) CaptureFrameAsJPEG(ctx context.Context) ([]byte, error) {
	args := []string{"-hide_banner", "-loglevel", "error"}
	args = append(args, c.input...)
	args = append(args,
		"-vframes", "1",
		"-f", "image2",
		"-c:v", "mjpeg",
		"-q:v", "2", // 高品質JPEG
		"-",
	)
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("JPEGフレームキャプチャに失敗: %w (stderr: %s)", err, stderr.String())
	}

	return stdout.Bytes(), nil
}

// TestCapture は接続確認用に1フレームだけ取得する
func (c *FFmpegCapturer) TestCapture(ctx context.Context) error {
	testCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := c.CaptureFrameAsJPEG(testCtx)
	return err
}

// StartStream は連続キャプチャを行い、完全なJPEGフレームを frameChan に送る
// ctx がキャンセルされるかストリームが終了するまでブロックする
func (c *FFmpegCapturer) StartStream(ctx context.Context, frameChan chan<- []byte, errorChan chan<- error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", c.Args()...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		sendError(ctx, errorChan, fmt.Errorf("stdoutパイプの作成に失敗: %w", err))
		return
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		sendError(ctx, errorChan, fmt.Errorf("ffmpegの起動に失敗: %w", err))
		return
	}

	readErr := readJPEGStream(ctx, stdout, frameChan)

	// コンテキストキャンセル時のエラーは無視
	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return
	}
	if readErr != nil {
		sendError(ctx, errorChan, readErr)
		return
	}
	if waitErr != nil {
		sendError(ctx, errorChan, fmt.Errorf("ffmpegが異常終了: %w (stderr: %s)", waitErr, stderr.String()))
		return
	}
	sendError(ctx, errorChan, errors.New("ストリームが終了しました"))
}

// readJPEGStream はMJPEGバイトストリームを読み、フレーム単位で送信する
func readJPEGStream(ctx context.Context, r io.Reader, frameChan chan<- []byte) error {
	buffer := make([]byte, 256*1024)
	var pending []byte

	for {
		n, err := r.Read(buffer)
		if n > 0 {
			pending = append(pending, buffer[:n]...)

			var frames [][]byte
			frames, pending = splitJPEGFrames(pending)
			if len(pending) > maxFrameSize {
				pending = nil
			}
			for _, frame := range frames {
				select {
				case frameChan <- frame:
				case <-ctx.Done():
					return nil
				}
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("フレーム読み取りエラー: %w", err)
		}
	}
}

// splitJPEGFrames はバッファから完全なJPEGフレームを切り出す
// 戻り値の rest は次の読み取りで補完される未完成部分
func splitJPEGFrames(data []byte) (frames [][]byte, rest []byte) {
	for {
		startIdx := bytes.Index(data, jpegSOI)
		if startIdx == -1 {
			// 開始マーカーの片割れ（末尾の0xFF）だけは残す
			if len(data) > 0 && data[len(data)-1] == 0xFF {
				return frames, data[len(data)-1:]
			}
			return frames, nil
		}

		endIdx := bytes.Index(data[startIdx+2:], jpegEOI)
		if endIdx == -1 {
			// 完全なフレームがまだない。不要な先頭データは捨てる
			return frames, data[startIdx:]
		}

		// マーカーのサイズを含める
		endIdx += startIdx + 2 + 2
		frame := make([]byte, endIdx-startIdx)
		copy(frame, data[startIdx:endIdx])
		frames = append(frames, frame)

		data = data[endIdx:]
	}
}

func (c *FFmpegCapturer) qualityOrDefault() int {
	if c.quality < 2 || c.quality > 31 {
		return 3
	}
	return c.quality
}

// sendError はエラーを送る。チャンネルが詰まっている場合は捨てる
func sendError(ctx context.Context, errorChan chan<- error, err error) {
	select {
	case errorChan <- err:
	case <-ctx.Done():
	default:
	}
}
