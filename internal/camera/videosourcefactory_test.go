package camera

import (
	"context"
	"errors"
	"testing"
)

func TestFactory_SupportedTypes(t *testing.T) {
	factory := NewVideoSourceFactory(NewMockDiscovery(nil))

	types := factory.GetSupportedTypes()
	want := []SourceType{SourceTypeDevice, SourceTypeDroidCam, SourceTypeIPCam, SourceTypeTestPattern}
	if len(types) != len(want) {
		t.Fatalf("Expected %d types, got %v", len(want), types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("Expected %s at %d, got %s", want[i], i, types[i])
		}
	}
}

func TestFactory_CreateSource(t *testing.T) {
	factory := NewVideoSourceFactory(NewMockDiscovery([]string{"/dev/video0"}))

	testCases := []struct {
		name       string
		sourceType SourceType
		config     SourceConfig
		wantErr    error
		wantName   string
		wantURL    string
	}{
		{
			name:       "ローカルデバイス",
			sourceType: SourceTypeDevice,
			config:     SourceConfig{Device: "/dev/video0"},
			wantName:   "テストカメラ 1",
		},
		{
			name:       "DroidCam",
			sourceType: SourceTypeDroidCam,
			wantName:   "DroidCam",
			wantURL:    DroidCamURL,
		},
		{
			name:       "IPカメラ",
			sourceType: SourceTypeIPCam,
			config:     SourceConfig{URL: "http://192.168.1.10:8080/video"},
			wantName:   "IPカメラ",
			wantURL:    "http://192.168.1.10:8080/video",
		},
		{
			name:       "IPカメラ URLなし",
			sourceType: SourceTypeIPCam,
			wantErr:    ErrInvalidURL,
		},
		{
			name:       "IPカメラ 不正なスキーム",
			sourceType: SourceTypeIPCam,
			config:     SourceConfig{URL: "ftp://example.com/video"},
			wantErr:    ErrInvalidURL,
		},
		{
			name:       "未知のタイプ",
			sourceType: SourceType("x11_screen"),
			wantErr:    ErrUnsupportedSource,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			src, err := factory.CreateSource(tc.sourceType, tc.config)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("Expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateSource failed: %v", err)
			}

			info := src.GetInfo()
			if info.Type != tc.sourceType {
				t.Errorf("Expected type %s, got %s", tc.sourceType, info.Type)
			}
			if info.Name != tc.wantName {
				t.Errorf("Expected name %q, got %q", tc.wantName, info.Name)
			}
			if info.URL != tc.wantURL {
				t.Errorf("Expected URL %q, got %q", tc.wantURL, info.URL)
			}
			if info.ID == "" {
				t.Error("Expected generated ID")
			}
			if src.IsActive() {
				t.Error("Expected new source to be inactive")
			}
		})
	}
}

func TestFactory_UnavailableDevice(t *testing.T) {
	factory := NewVideoSourceFactory(NewMockDiscovery([]string{"/dev/video0"}))

	_, err := factory.CreateSource(SourceTypeDevice, SourceConfig{Device: "/dev/video5"})
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("Expected ErrDeviceUnavailable, got %v", err)
	}
}

func TestFactory_TestPattern(t *testing.T) {
	ctx := context.Background()
	factory := NewVideoSourceFactory(nil)

	src, err := factory.CreateSource(SourceTypeTestPattern, SourceConfig{Target: Resolution{Width: 14, Height: 4}})
	if err != nil {
		t.Fatalf("CreateSource failed: %v", err)
	}

	if _, err := src.CurrentFrame(ctx); !errors.Is(err, ErrNotReady) {
		t.Errorf("Expected ErrNotReady before start, got %v", err)
	}

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	frame, err := src.CurrentFrame(ctx)
	if err != nil {
		t.Fatalf("CurrentFrame failed: %v", err)
	}
	if frame.Width != 14 || frame.Height != 4 {
		t.Fatalf("Expected 14x4, got %dx%d", frame.Width, frame.Height)
	}

	// 2フレーム目は縦線が移動している
	next, _ := src.CurrentFrame(ctx)
	if next.Pix[0] == 255 && frame.Pix[0] == 255 && next.Pix[4] == frame.Pix[4] {
		t.Error("Expected moving marker between frames")
	}

	if err := src.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := src.Stop(ctx); err != nil {
		t.Fatalf("Second stop failed: %v", err)
	}
	if src.IsActive() {
		t.Error("Expected inactive after stop")
	}
}

func TestFillColorBars(t *testing.T) {
	src := NewTestPatternSource(VideoSourceInfo{}, 7, 1)
	_ = src.Start(context.Background())
	frame, _ := src.CurrentFrame(context.Background())

	// 最初のフレームは x=0 に白線、残りはバー
	if got := frame.Pix[4*6 : 4*6+4]; got[0] != 0 || got[1] != 0 || got[2] != 192 || got[3] != 255 {
		t.Errorf("Expected blue bar at x=6, got %v", got)
	}
	if got := frame.Pix[0:3]; got[0] != 255 || got[1] != 255 || got[2] != 255 {
		t.Errorf("Expected white marker at x=0, got %v", got)
	}
}

func TestMockSource(t *testing.T) {
	ctx := context.Background()
	src := NewMockSource(nil)

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := src.CurrentFrame(ctx); !errors.Is(err, ErrNotReady) {
		t.Errorf("Expected ErrNotReady without frame, got %v", err)
	}

	src.SetShouldFailStart(true)
	_ = src.Stop(ctx)
	if err := src.Start(ctx); err == nil {
		t.Error("Expected start to fail")
	}
	if src.GetStatus() != StatusError {
		t.Errorf("Expected error status, got %s", src.GetStatus())
	}
	if src.StopCalls() != 1 {
		t.Errorf("Expected 1 stop call, got %d", src.StopCalls())
	}
}
