// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// RemoteImage はURLから取得した画像。
type RemoteImage struct {
	Name        string
	ContentType string
	Data        []byte
}

// ImageRejectedError は画像URLまたは取得結果が受け入れられないことを表す。
type ImageRejectedError struct {
	URL    string
	Reason string
}

// Error はerrorインターフェースを実装する。
func (e *ImageRejectedError) Error() string {
	return fmt.Sprintf("image rejected: %s: %s", e.URL, e.Reason)
}

// ImageFetcher はリモート画像の取得機能のインターフェースを定義する。
// 「URLから画像をアップロード」で、バックエンドへ再アップロードする前に使用される。
type ImageFetcher interface {
	// ValidateURL はDNS解決を伴わない静的な検証を行う。
	ValidateURL(rawURL string) error
	// Fetch は画像を取得する。サイズ上限を超える、または画像でない場合はエラーを返す。
	Fetch(ctx context.Context, rawURL string) (*RemoteImage, error)
}

// imageFetcher はImageFetcherの実装。
type imageFetcher struct {
	client   *http.Client
	maxSize  int64
	validate func(rawURL string) error
}

// NewImageFetcher はSSRF防止付きHTTPクライアントを使うImageFetcherを生成する。
// タイムアウトはこのクライアントにのみ設定する（バックエンドAPIクライアントには設定しない）。
func NewImageFetcher(timeout time.Duration, maxSize int64) *imageFetcher {
	return &imageFetcher{
		client:   NewSafeClient(timeout),
		maxSize:  maxSize,
		validate: ValidateImageURL,
	}
}

// NewSafeClient はsafeurlによるSSRF防止機能付きのHTTPクライアントを生成する。
// 接続時にDNS解決後のIPアドレスを検証するため、DNS再バインディングにも対応する。
func NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

// ValidateURL はURLの安全性を事前に検証する。
func (f *imageFetcher) ValidateURL(rawURL string) error {
	return f.validate(rawURL)
}

// Fetch は画像を取得する。
func (f *imageFetcher) Fetch(ctx context.Context, rawURL string) (*RemoteImage, error) {
	if err := f.validate(rawURL); err != nil {
		return nil, &ImageRejectedError{URL: rawURL, Reason: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &ImageRejectedError{URL: rawURL, Reason: err.Error()}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &ImageRejectedError{URL: rawURL, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ImageRejectedError{URL: rawURL, Reason: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}
	if resp.ContentLength > f.maxSize {
		return nil, &ImageRejectedError{URL: rawURL, Reason: "image too large"}
	}

	// 上限+1バイトまで読み、超過を検出する
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, &ImageRejectedError{URL: rawURL, Reason: err.Error()}
	}
	if int64(len(data)) > f.maxSize {
		return nil, &ImageRejectedError{URL: rawURL, Reason: "image too large"}
	}

	contentType := resp.Header.Get("Content-Type")
	if mediaType, _, _ := strings.Cut(contentType, ";"); !strings.HasPrefix(strings.TrimSpace(mediaType), "image/") {
		contentType = http.DetectContentType(data)
		if !strings.HasPrefix(contentType, "image/") {
			return nil, &ImageRejectedError{URL: rawURL, Reason: "not an image"}
		}
	}

	return &RemoteImage{
		Name:        imageName(req.URL),
		ContentType: contentType,
		Data:        data,
	}, nil
}

// imageName はURLのパス末尾をファイル名として使う。
func imageName(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "image"
	}
	return name
}

// ValidateImageURL は画像URLを静的に検証する。
// http/https以外、空ホスト、内部向けIPアドレス、localhostを拒否する。
// DNS解決後の検証はNewSafeClientのダイヤラーが行う。
func ValidateImageURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("disallowed scheme: %q", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".localhost") {
		return fmt.Errorf("blocked host: %s", host)
	}

	if ip := net.ParseIP(host); ip != nil && isInternalIP(ip) {
		return fmt.Errorf("blocked IP address: %s", ip)
	}
	return nil
}

// isInternalIP はプライベート、ループバック、リンクローカル（メタデータIPを含む）、未指定アドレスを判定する。
func isInternalIP(ip net.IP) bool {
	return ip.IsPrivate() ||
		ip.IsLoopback() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified() ||
		(ip.To4() != nil && ip.To4()[0] == 0)
}
