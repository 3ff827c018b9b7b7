// Package server は、HTTPサーバーを管理します。
//
// このパッケージは、ginによるルーティング、プレビューのMJPEG・WebSocket配信、
// 撮影とアップロードのエンドポイント、埋め込みUIの配信を担当します。
//
// 責務:
//   - HTTPサーバーの起動とグレースフルシャットダウン
//   - 映像ソースとフィルタの切り替えコマンドの受け付け
//   - プレビューループの起動と停止
//   - 静的ファイル（dist/）の配信とSPAのフォールバック
//   - OpenAPIドキュメント（openapi.yaml）の検証と公開
package server
