package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/cosecasa/internal/config"
	"github.com/cosecasa/internal/db"
	"github.com/cosecasa/internal/store"
)

// fakeStore serves the handler tests from an in-memory file map.
type fakeStore struct {
	files   map[string]string
	deletes []string
	listErr error
}

func newFakeStore(files map[string]string) *fakeStore {
	if files == nil {
		files = map[string]string{}
	}
	return &fakeStore{files: files}
}

func (f *fakeStore) ListDirectory(_ context.Context, path string) ([]store.AssetEntry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	prefix := store.NormalizePath(path)
	if prefix != "" {
		prefix += "/"
	}

	seenDirs := map[string]bool{}
	var entries []store.AssetEntry
	for _, filePath := range f.sortedPaths() {
		if !strings.HasPrefix(filePath, prefix) {
			continue
		}
		relative := strings.TrimPrefix(filePath, prefix)
		if idx := strings.Index(relative, "/"); idx >= 0 {
			dir := relative[:idx]
			if !seenDirs[dir] {
				seenDirs[dir] = true
				entries = append(entries, store.AssetEntry{Path: prefix + dir, Name: dir, Type: store.EntryDir})
			}
			continue
		}
		entries = append(entries, store.AssetEntry{
			Path: filePath,
			Name: relative,
			Type: store.EntryFile,
			Size: int64(len(f.files[filePath])),
			URL:  f.RawURL(filePath),
		})
	}
	return entries, nil
}

func (f *fakeStore) ListTree(_ context.Context, prefix string) ([]store.AssetEntry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	normalized := store.NormalizePath(prefix)
	if normalized != "" {
		normalized += "/"
	}

	var entries []store.AssetEntry
	for _, filePath := range f.sortedPaths() {
		if !strings.HasPrefix(filePath, normalized) {
			continue
		}
		name := filePath
		if idx := strings.LastIndex(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		entries = append(entries, store.AssetEntry{Path: filePath, Name: name, Type: store.EntryFile, URL: f.RawURL(filePath)})
	}
	return entries, nil
}

func (f *fakeStore) ReadFile(_ context.Context, path string) (string, error) {
	content, ok := f.files[store.NormalizePath(path)]
	if !ok {
		return "", store.ErrObjectNotFound
	}
	return content, nil
}

func (f *fakeStore) RawURL(path string) string {
	normalized := store.NormalizePath(path)
	if normalized == "" {
		return "https://cdn.test"
	}
	return "https://cdn.test/" + normalized
}

func (f *fakeStore) Put(_ context.Context, path string, content []byte, _ string) (store.AssetEntry, error) {
	normalized := store.NormalizePath(path)
	f.files[normalized] = string(content)
	return store.AssetEntry{Path: normalized, Type: store.EntryFile, URL: f.RawURL(normalized)}, nil
}

func (f *fakeStore) Delete(_ context.Context, path string) error {
	normalized := store.NormalizePath(path)
	if _, ok := f.files[normalized]; !ok {
		return store.ErrObjectNotFound
	}
	delete(f.files, normalized)
	f.deletes = append(f.deletes, normalized)
	return nil
}

func (f *fakeStore) sortedPaths() []string {
	paths := make([]string, 0, len(f.files))
	for path := range f.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

var handlerDBCounter int64

func testConfig(t *testing.T) config.AppConfig {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("parola-segreta"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return config.AppConfig{
		GinMode:           gin.TestMode,
		SessionSecret:     "test-secret",
		SiteBaseURL:       "https://cosecasa.test",
		AdminEmails:       []string{"ada@cosecasa.test"},
		AdminPasswordHash: string(hash),
	}
}

// newTestRouter wires the same route shape the real router uses,
// against the in-memory store and a throwaway staging database.
func newTestRouter(t *testing.T, cfg config.AppConfig, st store.Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handler-%d?mode=memory&cache=shared", atomic.AddInt64(&handlerDBCounter, 1))
	gdb, err := db.Init(dsn)
	if err != nil {
		t.Fatalf("init staging db: %v", err)
	}

	api := NewAPI(cfg, st, gdb)

	r := gin.New()
	r.Use(sessions.Sessions("cosecasa_session", cookie.NewStore([]byte(cfg.SessionSecret))))

	public := r.Group("")
	public.Use(api.WithCatalog())
	{
		public.GET("/", api.ShowHome)
		public.GET("/search", api.Search)
		public.GET("/:category", api.ShowCategory)
		public.GET("/:category/:slug", api.ShowArticle)
	}

	admin := r.Group("/admin")
	{
		admin.POST("/login", api.Login)
		admin.GET("/logout", api.Logout)

		auth := admin.Group("")
		auth.Use(api.AuthRequired())
		{
			auth.GET("", api.Browse)
			adminAPI := auth.Group("/api")
			{
				adminAPI.POST("/delete-asset", api.DeleteAsset)
				adminAPI.POST("/delete-article", api.DeleteArticle)
				adminAPI.POST("/upload", api.UploadArticle)
				adminAPI.GET("/pending", api.ListPending)
				adminAPI.POST("/pending/uploads", api.StageUpload)
				adminAPI.POST("/pending/deletes", api.StageDelete)
				adminAPI.POST("/pending/publish", api.PublishPending)
			}
		}
	}
	return r
}

func doRequest(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// login authenticates and returns the session cookie header value.
func login(t *testing.T, r *gin.Engine, email, password string) string {
	t.Helper()
	form := fmt.Sprintf("email=%s&password=%s", email, password)
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := doRequest(r, req)
	if w.Code != http.StatusOK {
		t.Fatalf("login failed with status %d: %s", w.Code, w.Body.String())
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("login did not set a session cookie")
	}
	return cookies[0].String()
}

func authedRequest(method, target, sessionCookie string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Cookie", sessionCookie)
	return req
}
