package storage

import (
	"context"
	"sync"
)

// MockUploader はテスト用の Uploader 実装
type MockUploader struct {
	mu    sync.Mutex
	url   string
	err   error
	calls []MockUpload
}

// MockUpload は MockUploader が受け取った1回分の呼び出し
type MockUpload struct {
	Data        []byte
	Filename    string
	ContentType string
}

// NewMockUploader は常に url を返すMockUploaderを作成する
func NewMockUploader(url string) *MockUploader {
	return &MockUploader{url: url}
}

// SetError はテスト用に返すエラーを設定する
func (m *MockUploader) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Upload は呼び出しを記録する
func (m *MockUploader) Upload(_ context.Context, data []byte, filename, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockUpload{
		Data:        append([]byte(nil), data...),
		Filename:    filename,
		ContentType: contentType,
	})
	if m.err != nil {
		return "", m.err
	}
	return m.url, nil
}

// Calls は記録された呼び出しを返す
func (m *MockUploader) Calls() []MockUpload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockUpload(nil), m.calls...)
}
