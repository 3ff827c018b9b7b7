package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	// wsWriteWait はWebSocketへの書き込みの待ち時間
	wsWriteWait = 10 * time.Second
	// wsPongWait はpong応答の待ち時間
	wsPongWait = 60 * time.Second
	// wsPingPeriod は wsPongWait より短くする
	wsPingPeriod = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GetPreviewStream はフィルタ適用済みプレビューをMJPEGで配信する
func (s *Server) GetPreviewStream(c *gin.Context) {
	// レスポンスヘッダーを設定
	c.Header("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")

	// レスポンスライターを取得
	writer := c.Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	frames, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	// クライアント切断を検知するためのコンテキスト
	clientGone := c.Request.Context().Done()

	// ストリーミングループ
	for {
		select {
		case <-clientGone:
			return
		case <-s.done:
			return
		case frame := <-frames:
			if err := writeMJPEGFrame(writer, frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeMJPEGFrame はMJPEGの1パートを書き込む
func writeMJPEGFrame(w http.ResponseWriter, frame []byte) error {
	if _, err := w.Write([]byte("--frame\r\nContent-Type: image/jpeg\r\n\r\n")); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	_, err := w.Write([]byte("\r\n"))
	return err
}

// GetPreviewWebSocket はフィルタ適用済みプレビューをWebSocketのバイナリメッセージで配信する
func (s *Server) GetPreviewWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocketへの切り替えに失敗: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	frames, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	// 読み込み側は切断とpongの検知だけを行う
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-s.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(wsWriteWait))
			return
		case frame := <-frames:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// GetPreviewFrame は最新のプレビューフレームを返す
func (s *Server) GetPreviewFrame(c *gin.Context) {
	frame := s.hub.Latest()
	if frame == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "image/jpeg", frame)
}
