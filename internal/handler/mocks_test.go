package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/reviews/internal/model"
	"github.com/hitoshi/reviews/internal/resena"
	"github.com/hitoshi/reviews/internal/session"
	"github.com/hitoshi/reviews/internal/theme"
)

// --- モック定義 ---

// mockSessionController はSessionControllerInterfaceのモック実装。
type mockSessionController struct {
	snapshotFn            func() session.Snapshot
	loginWithGoogleFn     func(nav session.Navigator)
	handleOAuthCallbackFn func(ctx context.Context, token string)
	loadUserFn            func(ctx context.Context)
	logoutFn              func(ctx context.Context, nav session.Navigator)
}

func (m *mockSessionController) Snapshot() session.Snapshot {
	if m.snapshotFn != nil {
		return m.snapshotFn()
	}
	return session.Snapshot{State: session.StateAnonymous}
}

func (m *mockSessionController) LoginWithGoogle(nav session.Navigator) {
	if m.loginWithGoogleFn != nil {
		m.loginWithGoogleFn(nav)
	}
}

func (m *mockSessionController) HandleOAuthCallback(ctx context.Context, token string) {
	if m.handleOAuthCallbackFn != nil {
		m.handleOAuthCallbackFn(ctx, token)
	}
}

func (m *mockSessionController) LoadUser(ctx context.Context) {
	if m.loadUserFn != nil {
		m.loadUserFn(ctx)
	}
}

func (m *mockSessionController) Logout(ctx context.Context, nav session.Navigator) {
	if m.logoutFn != nil {
		m.logoutFn(ctx, nav)
	}
}

// mockCredentials はCredentialReaderのモック実装。
type mockCredentials struct {
	token string
}

func (m *mockCredentials) Get() (string, bool) {
	return m.token, m.token != ""
}

func (m *mockCredentials) Present() bool {
	return m.token != ""
}

// mockResenaService はResenaServiceInterfaceのモック実装。
type mockResenaService struct {
	listFn               func(ctx context.Context, page resena.Page) (*model.ResenaList, error)
	getFn                func(ctx context.Context, id string) (*model.Resena, error)
	createFn             func(ctx context.Context, in model.ResenaCreate) (*model.Resena, error)
	updateFn             func(ctx context.Context, id string, in model.ResenaUpdate) (*model.Resena, error)
	deleteFn             func(ctx context.Context, id string) error
	mineFn               func(ctx context.Context, page resena.Page) (*model.ResenaList, error)
	byEstablishmentFn    func(ctx context.Context, nombre string, page resena.Page) ([]model.Resena, error)
	byLocationFn         func(ctx context.Context, lat, lon, radiusKm float64) ([]model.Resena, error)
	byRatingFn           func(ctx context.Context, min, max float64, page resena.Page) ([]model.Resena, error)
	uploadImageFn        func(ctx context.Context, name, contentType string, r io.Reader) (*model.UploadedImage, error)
	uploadImageFromURLFn func(ctx context.Context, rawURL string) (*model.UploadedImage, error)
}

func (m *mockResenaService) List(ctx context.Context, page resena.Page) (*model.ResenaList, error) {
	if m.listFn != nil {
		return m.listFn(ctx, page)
	}
	return &model.ResenaList{Resenas: []model.Resena{}}, nil
}

func (m *mockResenaService) Get(ctx context.Context, id string) (*model.Resena, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, nil
}

func (m *mockResenaService) Create(ctx context.Context, in model.ResenaCreate) (*model.Resena, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return nil, nil
}

func (m *mockResenaService) Update(ctx context.Context, id string, in model.ResenaUpdate) (*model.Resena, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, in)
	}
	return nil, nil
}

func (m *mockResenaService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockResenaService) Mine(ctx context.Context, page resena.Page) (*model.ResenaList, error) {
	if m.mineFn != nil {
		return m.mineFn(ctx, page)
	}
	return &model.ResenaList{Resenas: []model.Resena{}}, nil
}

func (m *mockResenaService) ByEstablishment(ctx context.Context, nombre string, page resena.Page) ([]model.Resena, error) {
	if m.byEstablishmentFn != nil {
		return m.byEstablishmentFn(ctx, nombre, page)
	}
	return nil, nil
}

func (m *mockResenaService) ByLocation(ctx context.Context, lat, lon, radiusKm float64) ([]model.Resena, error) {
	if m.byLocationFn != nil {
		return m.byLocationFn(ctx, lat, lon, radiusKm)
	}
	return nil, nil
}

func (m *mockResenaService) ByRating(ctx context.Context, min, max float64, page resena.Page) ([]model.Resena, error) {
	if m.byRatingFn != nil {
		return m.byRatingFn(ctx, min, max, page)
	}
	return nil, nil
}

func (m *mockResenaService) UploadImage(ctx context.Context, name, contentType string, r io.Reader) (*model.UploadedImage, error) {
	if m.uploadImageFn != nil {
		return m.uploadImageFn(ctx, name, contentType, r)
	}
	return nil, nil
}

func (m *mockResenaService) UploadImageFromURL(ctx context.Context, rawURL string) (*model.UploadedImage, error) {
	if m.uploadImageFromURLFn != nil {
		return m.uploadImageFromURLFn(ctx, rawURL)
	}
	return nil, nil
}

// mockSessionLogService はSessionLogServiceInterfaceのモック実装。
type mockSessionLogService struct {
	listFn func(ctx context.Context) ([]model.SessionLog, error)
}

func (m *mockSessionLogService) List(ctx context.Context) ([]model.SessionLog, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []model.SessionLog{}, nil
}

// mockThemeController はThemeControllerInterfaceのモック実装。
type mockThemeController struct {
	current         theme.Theme
	setThemeFn      func(ctx context.Context, t theme.Theme) error
	systemChangedFn func(ctx context.Context, isDark bool) error
}

func (m *mockThemeController) GetTheme(ctx context.Context) (theme.Theme, error) {
	if m.current == "" {
		return theme.System, nil
	}
	return m.current, nil
}

func (m *mockThemeController) SetTheme(ctx context.Context, t theme.Theme) error {
	if m.setThemeFn != nil {
		return m.setThemeFn(ctx, t)
	}
	m.current = t
	return nil
}

func (m *mockThemeController) SystemChanged(ctx context.Context, isDark bool) error {
	if m.systemChangedFn != nil {
		return m.systemChangedFn(ctx, isDark)
	}
	return nil
}

// compile-time interface checks
var (
	_ SessionControllerInterface = (*mockSessionController)(nil)
	_ CredentialReader           = (*mockCredentials)(nil)
	_ ResenaServiceInterface     = (*mockResenaService)(nil)
	_ SessionLogServiceInterface = (*mockSessionLogService)(nil)
	_ ThemeControllerInterface   = (*mockThemeController)(nil)
	_ DocumentStateReader        = (*theme.MemoryDocument)(nil)

	_ SessionControllerInterface = (*session.Controller)(nil)
	_ ResenaServiceInterface     = (*resena.Service)(nil)
	_ ThemeControllerInterface   = (*theme.Controller)(nil)
)

// --- テストヘルパー ---

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

func sampleResena(id string) model.Resena {
	return model.Resena{
		ID:                    id,
		NombreEstablecimiento: "Café Central",
		Direccion:             "Calle Mayor 1",
		Latitud:               40.4168,
		Longitud:              -3.7038,
		Valoracion:            4.5,
		EmailAutor:            "ana@example.com",
		NombreAutor:           "Ana",
		Imagenes:              []string{},
	}
}
