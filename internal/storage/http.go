package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// HTTPUploader は別のutsushieサーバー（またはそれと互換のサービス）の /upload へ
// multipart/form-data で画像を送信する
type HTTPUploader struct {
	endpoint string
	client   *http.Client
}

// NewHTTPUploader はHTTPUploaderを作成する
// client がnilの場合は30秒タイムアウトのクライアントを使う
func NewHTTPUploader(endpoint string, client *http.Client) (*HTTPUploader, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("アップロード先のURLが設定されていません")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPUploader{
		endpoint: endpoint,
		client:   client,
	}, nil
}

type uploadResponse struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// Upload は画像を image フィールドとして送信し、応答の url を返す
func (u *HTTPUploader) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	body, formContentType, err := buildMultipartBody(data, filename, contentType)
	if err != nil {
		return "", &UploadError{Message: "リクエストの作成に失敗", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, body)
	if err != nil {
		return "", &UploadError{Message: "リクエストの作成に失敗", Err: err}
	}
	req.Header.Set("Content-Type", formContentType)

	resp, err := u.client.Do(req)
	if err != nil {
		return "", &UploadError{Message: "アップロードに失敗", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &UploadError{StatusCode: resp.StatusCode, Message: "応答の読み込みに失敗", Err: err}
	}

	var result uploadResponse
	decodeErr := json.Unmarshal(raw, &result)

	if resp.StatusCode != http.StatusOK {
		msg := result.Error
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return "", &UploadError{
			StatusCode: resp.StatusCode,
			Message:    "アップロードに失敗",
			Err:        fmt.Errorf("サーバーエラー: %s", msg),
		}
	}
	if decodeErr != nil {
		return "", &UploadError{
			StatusCode: resp.StatusCode,
			Message:    "応答の解析に失敗",
			Err:        fmt.Errorf("%w: %s", decodeErr, strings.TrimSpace(string(raw))),
		}
	}
	if result.URL == "" {
		return "", &UploadError{
			StatusCode: resp.StatusCode,
			Message:    "応答にURLが含まれていません",
			Err:        fmt.Errorf("不正な応答: %s", strings.TrimSpace(string(raw))),
		}
	}

	return result.URL, nil
}

// quoteEscaper は multipart.Writer.CreateFormFile と同じ規則で引用符をエスケープする
var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func buildMultipartBody(data []byte, filename, contentType string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, quoteEscaper.Replace(filename)))
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
