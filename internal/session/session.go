// Package session はプレビューループとキャプチャ処理が共有する状態を保持する
//
// 選択中のフィルタモードと映像ソースをグローバル変数ではなく Session に持たせ、
// UIからの操作はコマンドハンドラ（SelectSource / StopSource / SetFilter）として受け付ける。
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"utsushie/internal/camera"
	"utsushie/internal/filter"
)

// ErrSourceInactive は映像ソースが動作していない場合に返される
var ErrSourceInactive = errors.New("カメラがアクティブではありません。先にカメラを開始してください")

// State はセッションのスナップショット
type State struct {
	Filter filter.Mode             `json:"filter"`
	Active bool                    `json:"active"`
	Source *camera.VideoSourceInfo `json:"source,omitempty"`
}

// Session は1つの映像ソースと選択中のフィルタを管理する
type Session struct {
	factory  camera.VideoSourceFactory
	defaults camera.SourceConfig

	mode atomic.Value // filter.Mode

	// switchMu はソース切り替えコマンドを直列化する
	switchMu sync.Mutex

	mu     sync.RWMutex
	source camera.VideoSource
	// stopGen は StopSource が呼ばれるたびに進む。切り替え中の停止要求の検出に使う
	stopGen uint64
}

// New は新しいSessionを作成する
func New(factory camera.VideoSourceFactory, defaults camera.SourceConfig) *Session {
	s := &Session{
		factory:  factory,
		defaults: defaults,
	}
	s.mode.Store(filter.ModeNone)
	return s
}

// FilterMode は現在選択されているフィルタモードを返す
func (s *Session) FilterMode() filter.Mode {
	return s.mode.Load().(filter.Mode)
}

// SetFilter はフィルタモードを切り替える。次のティックから反映される
func (s *Session) SetFilter(mode filter.Mode) {
	s.mode.Store(mode)
}

// Source は現在の映像ソースを返す。未選択の場合はnil
func (s *Session) Source() camera.VideoSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// IsActive は映像ソースが動作中かを返す
func (s *Session) IsActive() bool {
	src := s.Source()
	return src != nil && src.IsActive()
}

// ActiveSource は動作中の映像ソースを返す。動作していなければ ErrSourceInactive
func (s *Session) ActiveSource() (camera.VideoSource, error) {
	src := s.Source()
	if src == nil || !src.IsActive() {
		return nil, ErrSourceInactive
	}
	return src, nil
}

// SelectSource は現在のソースを停止し、指定された種別のソースを作成して開始する
func (s *Session) SelectSource(ctx context.Context, sourceType camera.SourceType, config camera.SourceConfig) (camera.VideoSourceInfo, error) {
	src, err := s.factory.CreateSource(sourceType, s.withDefaults(config))
	if err != nil {
		return camera.VideoSourceInfo{}, fmt.Errorf("映像ソースの作成に失敗: %w", err)
	}

	if err := s.UseSource(ctx, src); err != nil {
		return camera.VideoSourceInfo{}, err
	}
	return src.GetInfo(), nil
}

// UseSource は現在のソースを停止し、与えられたソースを開始して差し替える
func (s *Session) UseSource(ctx context.Context, src camera.VideoSource) error {
	s.switchMu.Lock()
	defer s.switchMu.Unlock()

	// 古いソースを先に外してから停止する
	s.mu.Lock()
	old := s.source
	s.source = nil
	gen := s.stopGen
	s.mu.Unlock()

	if old != nil {
		if err := old.Stop(ctx); err != nil {
			log.Printf("以前の映像ソースの停止に失敗: %v", err)
		}
	}

	// 開始には時間がかかることがあるため、ロック外で行う
	if err := src.Start(ctx); err != nil {
		return fmt.Errorf("映像ソースの開始に失敗: %w", err)
	}

	s.mu.Lock()
	if s.stopGen == gen {
		s.source = src
		s.mu.Unlock()
		log.Printf("映像ソースを切り替えました: %s", src.GetInfo().Name)
		return nil
	}
	s.mu.Unlock()

	// 開始中に停止要求が来ていたら、停止してから停止済みのソースとして残す
	log.Printf("切り替え中に停止が要求されました: %s", src.GetInfo().Name)
	if err := src.Stop(ctx); err != nil {
		return fmt.Errorf("映像ソースの停止に失敗: %w", err)
	}
	s.mu.Lock()
	if s.source == nil {
		s.source = src
	}
	s.mu.Unlock()
	return nil
}

// StopSource は映像ソースを停止する。停止済みでもエラーにならない
// 切り替え中に呼ばれた場合は、開始を待たずに新しいソースを停止扱いにする
func (s *Session) StopSource(ctx context.Context) error {
	s.mu.Lock()
	s.stopGen++
	src := s.source
	s.mu.Unlock()
	if src == nil {
		return nil
	}

	// 切り替え中のコマンドを待たずにフラグを落とす
	if err := src.Stop(ctx); err != nil {
		return fmt.Errorf("映像ソースの停止に失敗: %w", err)
	}
	return nil
}

// Snapshot は現在の状態を返す
func (s *Session) Snapshot() State {
	state := State{Filter: s.FilterMode()}
	if src := s.Source(); src != nil {
		info := src.GetInfo()
		state.Source = &info
		state.Active = src.IsActive()
	}
	return state
}

// withDefaults は未指定の項目を既定値で補う
func (s *Session) withDefaults(config camera.SourceConfig) camera.SourceConfig {
	if config.Device == "" {
		config.Device = s.defaults.Device
	}
	if config.URL == "" {
		config.URL = s.defaults.URL
	}
	if config.Settings.Width == 0 && config.Settings.Height == 0 {
		config.Settings.Width = s.defaults.Settings.Width
		config.Settings.Height = s.defaults.Settings.Height
	}
	if config.Settings.FrameRate == 0 {
		config.Settings.FrameRate = s.defaults.Settings.FrameRate
	}
	if config.Settings.Quality == 0 {
		config.Settings.Quality = s.defaults.Settings.Quality
	}
	if config.Target.Width == 0 && config.Target.Height == 0 {
		config.Target = s.defaults.Target
	}
	return config
}
