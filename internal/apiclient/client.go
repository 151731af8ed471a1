// Package apiclient はReViewsバックエンドへの認証付きHTTPリクエストを提供する。
//
// 1回の呼び出しは1回のHTTPリクエストで完結する（リトライ・バックオフ・独自タイムアウトなし）。
// キャンセルは呼び出し元のcontext.Contextに従う。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/reviews/internal/metrics"
	"github.com/hitoshi/reviews/internal/model"
)

const (
	// RequestIDHeader はリクエスト追跡用のヘッダー名。
	RequestIDHeader = "X-Request-ID"
	userAgent       = "ReViews-Client/1.0"
)

// TokenSource は呼び出し時点のクレデンシャルを返す。
// credential.Storeが実装する。
type TokenSource interface {
	Get() (token string, ok bool)
}

// File はmultipartで送信するファイル。
type File struct {
	Field       string // フォーム項目名（既定: file）
	Name        string // ファイル名
	ContentType string // 空の場合はapplication/octet-stream
	Content     io.Reader
}

// Request は1回のAPI呼び出しを表す。
type Request struct {
	Op     string     // 操作名。エラーとメトリクスのラベルに使う
	Method string     // 空の場合はGET
	Path   string     // ベースURLからの相対パス（例: /resenas/123）
	Query  url.Values // クエリパラメータ
	Body   any        // JSONボディ。Fileと同時指定不可
	File   *File      // multipartボディ
}

// Options はClientの任意設定。
type Options struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    metrics.MetricsCollector
}

// Client はベースURLに対して認証付きリクエストを発行するAPIクライアント。
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
}

// New はClientを生成する。baseURLは絶対URL（末尾スラッシュなし）を渡す。
func New(baseURL string, tokens TokenSource, opts Options) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: opts.HTTPClient,
		tokens:     tokens,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.metrics == nil {
		c.metrics = metrics.Nop{}
	}
	return c
}

// BaseURL はAPIベースURLを返す。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL はベースURLにpathを連結した絶対URLを返す。
// ブラウザリダイレクト先のように、取得はせずURLだけが必要な場合に使う。
func (c *Client) URL(path string) string {
	return c.baseURL + path
}

// Do はリクエストを実行し、成功ステータスの場合はレスポンスJSONをoutにデコードする。
// outがnilの場合はボディを読み捨てる。
//
// 失敗時のエラー:
//   - 通信失敗: *model.TransportError
//   - 2xx以外: *model.RequestFailedError（401はmodel.ErrUnauthorizedと一致）
//   - デコード失敗: *model.DecodeError
func (c *Client) Do(ctx context.Context, r Request, out any) error {
	req, err := c.newHTTPRequest(ctx, r)
	if err != nil {
		return err
	}

	requestID := req.Header.Get(RequestIDHeader)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.metrics.RecordAPITransportError(r.Op, duration)
		c.logger.Error("api request failed",
			slog.String("op", r.Op),
			slog.String("method", req.Method),
			slog.String("path", r.Path),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return &model.TransportError{Op: r.Op, Err: err}
	}
	defer resp.Body.Close()

	c.metrics.RecordAPIRequest(r.Op, resp.StatusCode, duration)

	attrs := []any{
		slog.String("op", r.Op),
		slog.String("method", req.Method),
		slog.String("path", r.Path),
		slog.Int("status", resp.StatusCode),
		slog.Float64("duration_ms", float64(duration.Nanoseconds())/float64(time.Millisecond)),
		slog.String("request_id", requestID),
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("api request returned error status", attrs...)
		// エラーボディは解析しない
		io.Copy(io.Discard, resp.Body)
		return &model.RequestFailedError{Op: r.Op, StatusCode: resp.StatusCode}
	}
	c.logger.Debug("api request completed", attrs...)

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &model.TransportError{Op: r.Op, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error("failed to decode api response",
			slog.String("op", r.Op),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return &model.DecodeError{Op: r.Op, Err: err}
	}
	return nil
}

// newHTTPRequest はヘッダーを注入したhttp.Requestを構築する。
func (c *Client) newHTTPRequest(ctx context.Context, r Request) (*http.Request, error) {
	if r.Body != nil && r.File != nil {
		return nil, fmt.Errorf("%s: json body and file payload are mutually exclusive", r.Op)
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	u, err := url.Parse(c.baseURL + r.Path)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid request url: %w", r.Op, err)
	}
	if len(r.Query) > 0 {
		q := u.Query()
		for k, vs := range r.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case r.File != nil:
		buf, ct, err := encodeMultipart(r.File)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.Op, err)
		}
		body, contentType = buf, ct
	case r.Body != nil:
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to encode request body: %w", r.Op, err)
		}
		body, contentType = bytes.NewReader(data), "application/json"
	default:
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", r.Op, err)
	}

	// multipartの場合はboundary付きのContent-Typeを使う
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(RequestIDHeader, uuid.NewString())

	if c.tokens != nil {
		if token, ok := c.tokens.Get(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	return req, nil
}

// encodeMultipart はファイルをmultipart/form-dataにエンコードする。
func encodeMultipart(f *File) (*bytes.Buffer, string, error) {
	if f.Content == nil {
		return nil, "", fmt.Errorf("file content is required")
	}

	field := f.Field
	if field == "" {
		field = "file"
	}
	name := f.Name
	if name == "" {
		name = "upload"
	}
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(field), escapeQuotes(name)),
	}
	header["Content-Type"] = []string{ct}

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := io.Copy(part, f.Content); err != nil {
		return nil, "", fmt.Errorf("failed to write multipart content: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
