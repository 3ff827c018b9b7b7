package preview

import (
	"sync"

	"utsushie/internal/filter"
)

// Hub はプレビューフレームをJPEGにエンコードし、購読者へ配信する Display 実装
//
// 購読者ごとのバッファは1フレームで、受信が遅い購読者には最新フレームだけを残す。
type Hub struct {
	quality int

	mu          sync.RWMutex
	latest      []byte
	subscribers map[chan []byte]struct{}
}

// NewHub は新しいHubを作成する
func NewHub(quality int) *Hub {
	return &Hub{
		quality:     quality,
		subscribers: make(map[chan []byte]struct{}),
	}
}

// Show はフレームをエンコードして配信する
func (h *Hub) Show(frame *filter.PixelBuffer) error {
	data, err := filter.EncodeJPEG(frame, h.quality)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = data
	for ch := range h.subscribers {
		select {
		case ch <- data:
		default:
			// 古いフレームを捨てて入れ直す
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- data:
			default:
			}
		}
	}
	return nil
}

// Subscribe はフレームの購読を開始する。戻り値の関数で購読を解除する
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 1)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	if h.latest != nil {
		ch <- h.latest
	}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, ch)
			h.mu.Unlock()
		})
	}
}

// Latest は最後に表示したJPEGを返す（未表示の場合はnil）
func (h *Hub) Latest() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// SubscriberCount は購読者数を返す
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
