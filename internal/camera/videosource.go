package camera

import (
	"sync"
	"sync/atomic"
)

// BaseVideoSource は各ソース共通の状態管理を提供する
//
// active はループやキャプチャ要求がロックなしで読めるよう atomic で保持し、
// status や info は mu で保護する。
type BaseVideoSource struct {
	info   VideoSourceInfo
	status Status
	active atomic.Bool
	mu     sync.RWMutex
}

// GetInfo は基本情報を返す
func (b *BaseVideoSource) GetInfo() VideoSourceInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.info
}

// GetStatus はステータスを返す
func (b *BaseVideoSource) GetStatus() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// IsActive はソースが動作中かを返す
func (b *BaseVideoSource) IsActive() bool {
	return b.active.Load()
}

// setStatus はステータスとアクティブフラグを更新する（mu取得済み前提）
func (b *BaseVideoSource) setStatus(status Status) {
	b.status = status
	b.active.Store(status == StatusActive)
}
