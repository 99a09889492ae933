package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cosecasa/internal/store"
)

func publicFiles() map[string]string {
	return map[string]string{
		"articles/cucina/text.md":   "---\ntitle: La cucina\ndate: 2024-01-25\ntags: cucina\nfeatured: true\n---\n\nTesto cucina.",
		"articles/ritratti/text.md": "---\ntitle: Ritratti\ndate: 2024-01-20\ntags: ritratti\n---\n\nTesto ritratti.",
	}
}

func TestShowHome(t *testing.T) {
	r := newTestRouter(t, testConfig(t), newFakeStore(publicFiles()))

	w := doRequest(r, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var body struct {
		Featured []struct {
			Slug string `json:"slug"`
		} `json:"featured"`
		Articles []struct {
			Slug string `json:"slug"`
		} `json:"articles"`
		Tags []string `json:"tags"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Articles) != 2 || body.Articles[0].Slug != "cucina" {
		t.Errorf("articles = %+v", body.Articles)
	}
	if len(body.Featured) != 1 || body.Featured[0].Slug != "cucina" {
		t.Errorf("featured = %+v", body.Featured)
	}
	if len(body.Tags) != 2 {
		t.Errorf("tags = %v", body.Tags)
	}
}

func TestShowCategory(t *testing.T) {
	r := newTestRouter(t, testConfig(t), newFakeStore(publicFiles()))

	w := doRequest(r, httptest.NewRequest(http.MethodGet, "/persone", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var body struct {
		Category string `json:"category"`
		Articles []struct {
			Slug string `json:"slug"`
		} `json:"articles"`
		Subcategories []string `json:"subcategories"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Articles) != 1 || body.Articles[0].Slug != "ritratti" {
		t.Errorf("articles = %+v", body.Articles)
	}

	if w := doRequest(r, httptest.NewRequest(http.MethodGet, "/inesistente", nil)); w.Code != http.StatusNotFound {
		t.Errorf("unknown category status = %d", w.Code)
	}
}

func TestShowArticle(t *testing.T) {
	r := newTestRouter(t, testConfig(t), newFakeStore(publicFiles()))

	w := doRequest(r, httptest.NewRequest(http.MethodGet, "/casa/cucina", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var body struct {
		Article struct {
			Slug        string `json:"slug"`
			HTMLContent string `json:"htmlContent"`
		} `json:"article"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Article.Slug != "cucina" || body.Article.HTMLContent == "" {
		t.Errorf("article = %+v", body.Article)
	}

	// The slug exists but under another category.
	if w := doRequest(r, httptest.NewRequest(http.MethodGet, "/cose/cucina", nil)); w.Code != http.StatusNotFound {
		t.Errorf("wrong category status = %d", w.Code)
	}
}

func TestSearch(t *testing.T) {
	r := newTestRouter(t, testConfig(t), newFakeStore(publicFiles()))

	w := doRequest(r, httptest.NewRequest(http.MethodGet, "/search?q=RITRATTI", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var body struct {
		Count   int `json:"count"`
		Results []struct {
			Slug string `json:"slug"`
		} `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Count != 1 || body.Results[0].Slug != "ritratti" {
		t.Errorf("body = %+v", body)
	}
}

func TestShowHomeWithEmptyStore(t *testing.T) {
	st := newFakeStore(nil)
	r := newTestRouter(t, testConfig(t), st)

	w := doRequest(r, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestPublicRoutesSurfaceStoreFailure(t *testing.T) {
	st := newFakeStore(nil)
	st.listErr = store.ErrMissingCredentials
	r := newTestRouter(t, testConfig(t), st)

	w := doRequest(r, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !strings.Contains(body.Error, "configurazione") {
		t.Errorf("error = %q", body.Error)
	}

	st.listErr = errors.New("timeout")
	if w := doRequest(r, httptest.NewRequest(http.MethodGet, "/casa", nil)); w.Code != http.StatusInternalServerError {
		t.Errorf("generic failure status = %d", w.Code)
	}
}
