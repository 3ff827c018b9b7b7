// Package filter はフレーム画像に対するピクセル単位のフィルタを提供する
//
// # 責務
// - RGBAピクセルバッファの表現と image.Image との相互変換
// - フィルタモード（none / grayscale / negative / sharpen）の適用
//
// # 仕様
// - バッファは行優先・連続配置のRGBA各8bit。len(Pix) == Width*Height*4
// - どのフィルタもアルファ値とバッファの寸法を変更しない
// - チャンネル値の演算結果は常に [0, 255] に丸める
// - sharpen は3x3カーネルを入力のスナップショットに対して畳み込み、
//   外周1ピクセルはそのまま残す
// - 未知のモードは none として扱う（UIからの不正値で処理を止めない）
// - フィルタはモードを状態として保持しない純粋な関数
package filter
