// Package resena はレビュー（/resenas/*）エンドポイントのクライアントを提供する。
//
// 送信前に本文のマークアップ除去とバックエンドと同じ範囲の入力検証を行う。
package resena

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hitoshi/reviews/internal/apiclient"
	"github.com/hitoshi/reviews/internal/model"
	"github.com/hitoshi/reviews/internal/security"
)

// 操作名
const (
	OpList            = "resenas.list"
	OpGet             = "resenas.get"
	OpCreate          = "resenas.create"
	OpUpdate          = "resenas.update"
	OpDelete          = "resenas.delete"
	OpMine            = "resenas.mine"
	OpByEstablishment = "resenas.by_establishment"
	OpByLocation      = "resenas.by_location"
	OpByRating        = "resenas.by_rating"
	OpUploadImage     = "resenas.upload_image"
)

// デフォルト値
const (
	DefaultLimit    = 100
	DefaultRadiusKm = 5.0
	MinRating       = 0.0
	MaxRating       = 5.0

	defaultImageName     = "resena.jpg"
	defaultMaxImageBytes = 10 * 1024 * 1024
)

// Page はページング指定。Limitが0以下の場合はDefaultLimitを使う。
type Page struct {
	Skip  int
	Limit int
}

func (p Page) normalized() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	return p
}

// API はバックエンド呼び出しのインターフェース。
type API interface {
	Do(ctx context.Context, r apiclient.Request, out any) error
}

// Options はServiceの任意設定。
type Options struct {
	Sanitizer     security.TextSanitizer
	Images        security.ImageFetcher // nilの場合URLからのアップロードは不可
	MaxImageBytes int64
	Logger        *slog.Logger
}

// Service はレビューのCRUDと検索を提供する。
type Service struct {
	api           API
	validate      *validator.Validate
	sanitizer     security.TextSanitizer
	images        security.ImageFetcher
	maxImageBytes int64
	logger        *slog.Logger
}

// NewService はServiceを生成する。
func NewService(api API, opts Options) *Service {
	s := &Service{
		api:           api,
		validate:      newValidator(),
		sanitizer:     opts.Sanitizer,
		images:        opts.Images,
		maxImageBytes: opts.MaxImageBytes,
		logger:        opts.Logger,
	}
	if s.sanitizer == nil {
		s.sanitizer = security.NewTextSanitizer()
	}
	if s.maxImageBytes <= 0 {
		s.maxImageBytes = defaultMaxImageBytes
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// List はレビュー一覧を取得する。
func (s *Service) List(ctx context.Context, page Page) (*model.ResenaList, error) {
	q, err := s.pageQuery(page)
	if err != nil {
		return nil, err
	}
	var out model.ResenaList
	if err := s.api.Do(ctx, apiclient.Request{Op: OpList, Path: "/resenas/", Query: q}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get はIDでレビューを取得する。
func (s *Service) Get(ctx context.Context, id string) (*model.Resena, error) {
	path, err := resenaPath(id)
	if err != nil {
		return nil, err
	}
	var out model.Resena
	if err := s.api.Do(ctx, apiclient.Request{Op: OpGet, Path: path}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create はレビューを作成する。テキスト項目はマークアップを除去してから検証する。
func (s *Service) Create(ctx context.Context, in model.ResenaCreate) (*model.Resena, error) {
	in.NombreEstablecimiento = s.sanitizer.Sanitize(in.NombreEstablecimiento)
	in.Direccion = s.sanitizer.Sanitize(in.Direccion)
	if in.Imagenes == nil {
		// バックエンドはnullを受け付けない
		in.Imagenes = []string{}
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, toValidationError(err)
	}

	var out model.Resena
	err := s.api.Do(ctx, apiclient.Request{
		Op:     OpCreate,
		Method: http.MethodPost,
		Path:   "/resenas/",
		Body:   in,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Update はレビューを部分更新する。nilのフィールドは送信しない。
func (s *Service) Update(ctx context.Context, id string, in model.ResenaUpdate) (*model.Resena, error) {
	path, err := resenaPath(id)
	if err != nil {
		return nil, err
	}

	if in.NombreEstablecimiento != nil {
		v := s.sanitizer.Sanitize(*in.NombreEstablecimiento)
		if v == "" {
			return nil, &model.ValidationError{Field: "nombre_establecimiento", Reason: "must be at least 1 characters"}
		}
		in.NombreEstablecimiento = &v
	}
	if in.Direccion != nil {
		v := s.sanitizer.Sanitize(*in.Direccion)
		in.Direccion = &v
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, toValidationError(err)
	}

	var out model.Resena
	err = s.api.Do(ctx, apiclient.Request{
		Op:     OpUpdate,
		Method: http.MethodPut,
		Path:   path,
		Body:   in,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete はレビューを削除する。
func (s *Service) Delete(ctx context.Context, id string) error {
	path, err := resenaPath(id)
	if err != nil {
		return err
	}
	return s.api.Do(ctx, apiclient.Request{
		Op:     OpDelete,
		Method: http.MethodDelete,
		Path:   path,
	}, nil)
}

// Mine は認証ユーザー自身のレビュー一覧を取得する。
func (s *Service) Mine(ctx context.Context, page Page) (*model.ResenaList, error) {
	q, err := s.pageQuery(page)
	if err != nil {
		return nil, err
	}
	var out model.ResenaList
	if err := s.api.Do(ctx, apiclient.Request{Op: OpMine, Path: "/resenas/mis-resenas", Query: q}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ByEstablishment は店舗名でレビューを検索する。
func (s *Service) ByEstablishment(ctx context.Context, nombre string, page Page) ([]model.Resena, error) {
	nombre = strings.TrimSpace(nombre)
	if nombre == "" {
		return nil, &model.ValidationError{Field: "nombre", Reason: "is required"}
	}
	q, err := s.pageQuery(page)
	if err != nil {
		return nil, err
	}

	out := []model.Resena{}
	err = s.api.Do(ctx, apiclient.Request{
		Op:    OpByEstablishment,
		Path:  "/resenas/establecimiento/" + url.PathEscape(nombre),
		Query: q,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ByLocation は地点から半径radiusKm以内のレビューを検索する。
// radiusKmは0.1〜100の範囲外ならValidationErrorを返す。省略時の既定値は呼び出し側でDefaultRadiusKmを渡す。
func (s *Service) ByLocation(ctx context.Context, lat, lon, radiusKm float64) ([]model.Resena, error) {
	lq := locationQuery{Latitud: lat, Longitud: lon, RadioKm: radiusKm}
	if err := s.validate.Struct(lq); err != nil {
		return nil, toValidationError(err)
	}

	out := []model.Resena{}
	err := s.api.Do(ctx, apiclient.Request{
		Op:   OpByLocation,
		Path: "/resenas/ubicacion",
		Query: url.Values{
			"latitud":  {formatFloat(lat)},
			"longitud": {formatFloat(lon)},
			"radio_km": {formatFloat(radiusKm)},
		},
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ByRating は評価値の範囲[min, max]でレビューを検索する。
func (s *Service) ByRating(ctx context.Context, min, max float64, page Page) ([]model.Resena, error) {
	if err := s.validate.Struct(ratingQuery{Min: min, Max: max}); err != nil {
		return nil, toValidationError(err)
	}
	q, err := s.pageQuery(page)
	if err != nil {
		return nil, err
	}
	q.Set("min_valoracion", formatFloat(min))
	q.Set("max_valoracion", formatFloat(max))

	out := []model.Resena{}
	if err := s.api.Do(ctx, apiclient.Request{Op: OpByRating, Path: "/resenas/valoracion", Query: q}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadImage は画像をmultipartでアップロードし、公開URLを返す。
// contentTypeはimage/*のみ受け付ける。サイズ上限を超える場合はエラーを返す。
func (s *Service) UploadImage(ctx context.Context, name, contentType string, r io.Reader) (*model.UploadedImage, error) {
	mediaType, _, _ := strings.Cut(contentType, ";")
	if !strings.HasPrefix(strings.TrimSpace(mediaType), "image/") {
		return nil, &model.ValidationError{Field: "file", Reason: "must be an image"}
	}
	if name == "" {
		name = defaultImageName
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > s.maxImageBytes {
		return nil, &model.ValidationError{Field: "file", Reason: fmt.Sprintf("must be at most %d bytes", s.maxImageBytes)}
	}
	if len(data) == 0 {
		return nil, &model.ValidationError{Field: "file", Reason: "is empty"}
	}

	var out model.UploadedImage
	err = s.api.Do(ctx, apiclient.Request{
		Op:     OpUploadImage,
		Method: http.MethodPost,
		Path:   "/resenas/upload-image",
		File: &apiclient.File{
			Field:       "file",
			Name:        name,
			ContentType: contentType,
			Content:     bytes.NewReader(data),
		},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadImageFromURL はリモート画像をSSRF防止付きクライアントで取得し、バックエンドへ再アップロードする。
func (s *Service) UploadImageFromURL(ctx context.Context, rawURL string) (*model.UploadedImage, error) {
	if s.images == nil {
		return nil, fmt.Errorf("image fetching is not configured")
	}

	img, err := s.images.Fetch(ctx, rawURL)
	if err != nil {
		s.logger.Warn("remote image rejected",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return s.UploadImage(ctx, img.Name, img.ContentType, bytes.NewReader(img.Data))
}

func (s *Service) pageQuery(page Page) (url.Values, error) {
	page = page.normalized()
	if err := s.validate.Struct(pageQuery{Skip: page.Skip, Limit: page.Limit}); err != nil {
		return nil, toValidationError(err)
	}
	return url.Values{
		"skip":  {strconv.Itoa(page.Skip)},
		"limit": {strconv.Itoa(page.Limit)},
	}, nil
}

func resenaPath(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", &model.ValidationError{Field: "id", Reason: "is required"}
	}
	return "/resenas/" + url.PathEscape(id), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
