package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/reviews/internal/middleware"
	"github.com/hitoshi/reviews/internal/model"
	"github.com/hitoshi/reviews/internal/resena"
)

const (
	// uploadFormMemory はmultipartフォームをメモリに保持する上限。超過分は一時ファイルに書き出される。
	uploadFormMemory = 1 << 20
	// uploadFormOverhead はファイル本体以外（境界・ヘッダー）に許容するバイト数。
	uploadFormOverhead = 64 << 10
	// DefaultMaxUploadBytes はアップロード画像サイズ上限の既定値。
	DefaultMaxUploadBytes int64 = 5 << 20
)

var errUploadTooLarge = errors.New("upload exceeds maximum size")

// ResenaServiceInterface はレビューハンドラーが必要とするサービスインターフェース。
type ResenaServiceInterface interface {
	List(ctx context.Context, page resena.Page) (*model.ResenaList, error)
	Get(ctx context.Context, id string) (*model.Resena, error)
	Create(ctx context.Context, in model.ResenaCreate) (*model.Resena, error)
	Update(ctx context.Context, id string, in model.ResenaUpdate) (*model.Resena, error)
	Delete(ctx context.Context, id string) error
	Mine(ctx context.Context, page resena.Page) (*model.ResenaList, error)
	ByEstablishment(ctx context.Context, nombre string, page resena.Page) ([]model.Resena, error)
	ByLocation(ctx context.Context, lat, lon, radiusKm float64) ([]model.Resena, error)
	ByRating(ctx context.Context, min, max float64, page resena.Page) ([]model.Resena, error)
	UploadImage(ctx context.Context, name, contentType string, r io.Reader) (*model.UploadedImage, error)
	UploadImageFromURL(ctx context.Context, rawURL string) (*model.UploadedImage, error)
}

// ResenaHandler はレビュー画面と検索のHTTPハンドラー。
type ResenaHandler struct {
	service        ResenaServiceInterface
	maxUploadBytes int64
}

// NewResenaHandler はResenaHandlerを生成する。
// maxUploadBytesが0以下の場合はDefaultMaxUploadBytesを使う。
func NewResenaHandler(service ResenaServiceInterface, maxUploadBytes int64) *ResenaHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &ResenaHandler{service: service, maxUploadBytes: maxUploadBytes}
}

// resenaPageResponse は単一レビュー画面のレスポンス。
type resenaPageResponse struct {
	Title  string        `json:"title"`
	Resena *model.Resena `json:"resena"`
}

// createFormResponse はレビュー作成画面の初期値。
type createFormResponse struct {
	Title  string             `json:"title"`
	Resena model.ResenaCreate `json:"resena"`
}

// searchResponse は検索結果のレスポンス。
type searchResponse struct {
	Resenas []model.Resena `json:"resenas"`
	Total   int            `json:"total"`
}

// uploadURLRequest はURL指定の画像アップロードのリクエストボディ。
type uploadURLRequest struct {
	URL string `json:"url"`
}

// Get はレビュー詳細を返す。
// GET /resena/{id}
func (h *ResenaHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resenaPageResponse{Title: routeTitle("DetalleResena"), Resena: res})
}

// CreateForm はレビュー作成画面の空テンプレートを返す。
// GET /crear-resena
func (h *ResenaHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, createFormResponse{
		Title:  routeTitle("CrearResena"),
		Resena: model.ResenaCreate{Imagenes: []string{}},
	})
}

// Create はレビューを作成する。
// POST /crear-resena
func (h *ResenaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.ResenaCreate
	if !decodeJSON(w, r, &in) {
		return
	}

	res, err := h.service.Create(r.Context(), in)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Update はレビューを部分更新する。
// PUT /resena/{id}
func (h *ResenaHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in model.ResenaUpdate
	if !decodeJSON(w, r, &in) {
		return
	}

	res, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Delete はレビューを削除する。
// DELETE /resena/{id}
func (h *ResenaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Mine は自分のレビュー一覧を返す。
// GET /mis-resenas?skip=&limit=
func (h *ResenaHandler) Mine(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	list, err := h.service.Mine(r.Context(), page)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ByEstablishment は店舗名でレビューを検索する。
// GET /buscar/establecimiento/{nombre}
func (h *ResenaHandler) ByEstablishment(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	list, err := h.service.ByEstablishment(r.Context(), chi.URLParam(r, "nombre"), page)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeSearch(w, list)
}

// ByLocation は位置の周辺でレビューを検索する。
// GET /buscar/ubicacion?latitud=&longitud=&radio_km=
func (h *ResenaHandler) ByLocation(w http.ResponseWriter, r *http.Request) {
	lat, err := requiredFloat(r, "latitud")
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	lon, err := requiredFloat(r, "longitud")
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	radius, err := queryFloat(r, "radio_km", resena.DefaultRadiusKm)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	list, err := h.service.ByLocation(r.Context(), lat, lon, radius)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeSearch(w, list)
}

// ByRating は評価の範囲でレビューを検索する。
// GET /buscar/valoracion?min_valoracion=&max_valoracion=&skip=&limit=
func (h *ResenaHandler) ByRating(w http.ResponseWriter, r *http.Request) {
	min, err := queryFloat(r, "min_valoracion", resena.MinRating)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	max, err := queryFloat(r, "max_valoracion", resena.MaxRating)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	page, err := pageFromQuery(r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	list, err := h.service.ByRating(r.Context(), min, max, page)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeSearch(w, list)
}

// UploadImage は画像をアップロードする。
// multipartの場合はfileフィールド、JSONの場合は{"url": ...}のリモート画像を受け付ける。
// POST /upload-image
func (h *ResenaHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		img *model.UploadedImage
		err error
	)
	if strings.HasPrefix(mediaType, "multipart/") {
		img, err = h.uploadMultipart(w, r)
		if errors.Is(err, errUploadTooLarge) {
			middleware.WriteErrorResponse(w, http.StatusRequestEntityTooLarge,
				model.NewInvalidInputError(fmt.Sprintf("file exceeds %d bytes", h.maxUploadBytes)))
			return
		}
	} else {
		var req uploadURLRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.URL == "" {
			middleware.WriteError(w, r, &model.ValidationError{Field: "url", Reason: "is required"})
			return
		}
		img, err = h.service.UploadImageFromURL(r.Context(), req.URL)
	}
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, img)
}

// uploadMultipart はボディをmaxUploadBytes（+境界分）に制限してからフォームを解析する。
func (h *ResenaHandler) uploadMultipart(w http.ResponseWriter, r *http.Request) (*model.UploadedImage, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+uploadFormOverhead)
	if err := r.ParseMultipartForm(uploadFormMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, errUploadTooLarge
		}
		return nil, &model.ValidationError{Field: "file", Reason: "invalid multipart form"}
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, &model.ValidationError{Field: "file", Reason: "is required"}
	}
	defer file.Close()
	if header.Size > h.maxUploadBytes {
		return nil, errUploadTooLarge
	}

	return h.service.UploadImage(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
}

func pageFromQuery(r *http.Request) (resena.Page, error) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		return resena.Page{}, err
	}
	limit, err := queryInt(r, "limit", resena.DefaultLimit)
	if err != nil {
		return resena.Page{}, err
	}
	return resena.Page{Skip: skip, Limit: limit}, nil
}

func writeSearch(w http.ResponseWriter, list []model.Resena) {
	if list == nil {
		list = []model.Resena{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Resenas: list, Total: len(list)})
}
