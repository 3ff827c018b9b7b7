// Package camera 映像ソースからのフレーム取得を担う
//
// # 責務
// - ローカルカメラ、DroidCam、任意のストリームURLからの映像取得
// - 最新フレームのピクセルバッファへの変換
// - 映像ソースの開始・停止とアクティブ状態の管理
// - V4L2デバイスの検出
//
// # 使い分け
// このパッケージは以下の場合に使用する：
// - プレビューループやキャプチャ処理にフレームを供給したい
// - 選択された種別から映像ソースを作成したい
//
// # 仕様
// - VideoSource: 開始・停止・最新フレーム取得を統一するインターフェース
// - FFmpegSource: ffmpegのMJPEG出力（image2pipe）を読み、最新フレームだけを保持
// - TestPatternSource: 開発用のSMPTEカラーバー
// - フレーム未受信・未接続の場合は ErrNotReady を返す（処理エラーとは区別）
// - Stop は冪等で、呼び出し直後から IsActive は false
// - 目標解像度が指定された場合は golang.org/x/image/draw で縮尺する
//
// # 前提要件
//   - ffmpeg: 映像の取得とMJPEGへの変換に使用
//     Ubuntu/Debian: sudo apt install ffmpeg
//     Red Hat/Fedora: sudo dnf install ffmpeg
//   - v4l-utils: カメラ名の取得に使用（任意）
//     Ubuntu/Debian: sudo apt install v4l-utils
//   - videoグループへの参加: デバイスアクセス権限
//     sudo usermod -a -G video $USER
package camera
