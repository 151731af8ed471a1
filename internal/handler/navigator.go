package handler

import "net/http"

// httpNavigator はリクエスト単位のNavigator。
// コントローラーが指示した遷移先を記録し、レスポンスで302として返す。
type httpNavigator struct {
	location string
}

// Redirect は外部URLへの遷移を記録する。
func (n *httpNavigator) Redirect(url string) {
	n.location = url
}

// Navigate はアプリケーション内パスへの遷移を記録する。
func (n *httpNavigator) Navigate(path string) {
	n.location = path
}

// respond は記録した遷移先へ302で応答する。遷移が指示されなかった場合はfallbackを使う。
func (n *httpNavigator) respond(w http.ResponseWriter, r *http.Request, fallback string) {
	loc := n.location
	if loc == "" {
		loc = fallback
	}
	http.Redirect(w, r, loc, http.StatusFound)
}
