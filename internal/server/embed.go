package server

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed all:dist
var embedFS embed.FS

//go:embed openapi.yaml
var openapiYAML []byte

// staticFS は dist 以下のファイルシステムを返す
func staticFS() fs.FS {
	sub, err := fs.Sub(embedFS, "dist")
	if err != nil {
		// dist は埋め込み済みなので起こらない
		panic(err)
	}
	return sub
}

// getIndexHTML は index.html の内容を返す
func getIndexHTML() ([]byte, error) {
	return embedFS.ReadFile("dist/index.html")
}

// staticFileExists はパスが dist 内の通常ファイルかを返す
func staticFileExists(fsys fs.FS, urlPath string) bool {
	name := strings.TrimPrefix(urlPath, "/")
	if name == "" {
		return false
	}
	info, err := fs.Stat(fsys, name)
	return err == nil && !info.IsDir()
}

// httpStaticFS は http.FileSystem として dist を返す
func httpStaticFS(fsys fs.FS) http.FileSystem {
	return http.FS(fsys)
}
