// Package preview はフィルタ適用済みのリアルタイムプレビューを生成する
//
// Loop はクロックのティックごとに映像ソースからフレームを取得し、
// その時点で選択されているフィルタを適用して Display に渡す。
// ソースが動作していないティックは何もしない。エラーでループが終了することはなく、
// 終了するのはコンテキストがキャンセルされた場合だけ。
package preview

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"utsushie/internal/camera"
	"utsushie/internal/filter"
	"utsushie/internal/session"
)

// Display はフィルタ適用後のフレームを表示する
type Display interface {
	Show(frame *filter.PixelBuffer) error
}

// Clock はティックを供給する
type Clock interface {
	C() <-chan time.Time
	Stop()
}

// TickerClock は time.Ticker によるクロック
type TickerClock struct {
	ticker *time.Ticker
}

// NewTickerClock は指定FPSのクロックを作成する
func NewTickerClock(fps int) *TickerClock {
	if fps <= 0 {
		fps = 15
	}
	return &TickerClock{ticker: time.NewTicker(time.Second / time.Duration(fps))}
}

// C はティックのチャンネルを返す
func (c *TickerClock) C() <-chan time.Time { return c.ticker.C }

// Stop はクロックを停止する
func (c *TickerClock) Stop() { c.ticker.Stop() }

// TickResult は1ティックの結果
type TickResult string

const (
	TickIdle     TickResult = "idle"      // ソースが動作していない
	TickNotReady TickResult = "not_ready" // フレーム未受信
	TickRendered TickResult = "rendered"  // 表示を更新した
	TickError    TickResult = "error"     // 取得または表示に失敗
)

// Stats はループの統計情報
type Stats struct {
	Ticks    uint64 `json:"ticks"`
	Rendered uint64 `json:"rendered"`
	Errors   uint64 `json:"errors"`
}

// Loop はプレビューループ
type Loop struct {
	session *session.Session
	display Display
	clock   Clock

	ticks    atomic.Uint64
	rendered atomic.Uint64
	errors   atomic.Uint64
}

// NewLoop は新しいLoopを作成する
func NewLoop(s *session.Session, display Display, clock Clock) *Loop {
	return &Loop{
		session: s,
		display: display,
		clock:   clock,
	}
}

// Run はコンテキストがキャンセルされるまでティックごとに Tick を実行する
func (l *Loop) Run(ctx context.Context) {
	defer l.clock.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.clock.C():
			l.Tick(ctx)
		}
	}
}

// Tick はループ本体を1回実行する
// フィルタモードはティックの開始時に1度だけ読む
func (l *Loop) Tick(ctx context.Context) TickResult {
	l.ticks.Add(1)

	mode := l.session.FilterMode()
	src, err := l.session.ActiveSource()
	if err != nil {
		return TickIdle
	}

	frame, err := src.CurrentFrame(ctx)
	if err != nil {
		if errors.Is(err, camera.ErrNotReady) {
			return TickNotReady
		}
		l.errors.Add(1)
		log.Printf("プレビュー用フレームの取得に失敗: %v", err)
		return TickError
	}

	filter.Apply(frame, mode)

	if err := l.display.Show(frame); err != nil {
		l.errors.Add(1)
		log.Printf("プレビューの表示に失敗: %v", err)
		return TickError
	}

	l.rendered.Add(1)
	return TickRendered
}

// Stats は統計情報を返す
func (l *Loop) Stats() Stats {
	return Stats{
		Ticks:    l.ticks.Load(),
		Rendered: l.rendered.Load(),
		Errors:   l.errors.Load(),
	}
}
