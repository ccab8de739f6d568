package handler

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// NewSPAHandler はSPAの静的ファイルを配信するハンドラーを返す。
// 存在しないパスはクライアント側ルーティングに任せるためindex.htmlを返す。
func NewSPAHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		name := path.Clean("/" + r.URL.Path)
		if strings.HasPrefix(name, "/api/") || strings.HasPrefix(name, "/auth/") {
			http.NotFound(w, r)
			return
		}

		if name != "/" {
			info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(name)))
			if err == nil && !info.IsDir() {
				if strings.HasPrefix(name, "/assets/") {
					w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
				}
				files.ServeHTTP(w, r)
				return
			}
		}

		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, index)
	})
}
