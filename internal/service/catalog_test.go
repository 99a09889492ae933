package service

import (
	"reflect"
	"testing"
)

func testCatalog() *Catalog {
	return NewCatalog([]ArticleRecord{
		{Slug: "tavolo", Title: "Il tavolo di famiglia", Excerpt: "Un tavolo in rovere", Category: "casa", Subcategory: "cucina", Tags: []string{"cucina", "legno"}, Featured: true},
		{Slug: "falegname", Title: "Il falegname", Excerpt: "Una bottega", Category: "persone", Subcategory: "artigiani", Tags: []string{"artigiani", "legno"}},
		{Slug: "bagno", Title: "Rifare il bagno", Excerpt: "Piastrelle", Category: "casa", Subcategory: "bagno", Tags: []string{"bagno"}, Featured: true},
		{Slug: "lampada", Title: "Una lampada", Excerpt: "Ottone e vetro", Category: "cose", Subcategory: "generale"},
		{Slug: "cantina", Title: "La cantina", Excerpt: "Sotto casa", Category: "casa", Subcategory: "cucina", Tags: []string{"cucina"}},
	})
}

func TestCatalogByCategoryAndSubcategory(t *testing.T) {
	catalog := testCatalog()

	if got := len(catalog.ByCategory("casa")); got != 3 {
		t.Errorf("ByCategory(casa) = %d articles, want 3", got)
	}
	if got := catalog.ByCategory("Casa"); got != nil {
		t.Errorf("category match must be case-sensitive, got %v", got)
	}

	narrowed := catalog.BySubcategory("casa", "cucina")
	if len(narrowed) != 2 || narrowed[0].Slug != "tavolo" || narrowed[1].Slug != "cantina" {
		t.Errorf("BySubcategory(casa, cucina) = %v", slugsOf(narrowed))
	}
}

func TestCatalogByTagExactMatch(t *testing.T) {
	catalog := testCatalog()

	if got := slugsOf(catalog.ByTag("legno")); !reflect.DeepEqual(got, []string{"tavolo", "falegname"}) {
		t.Errorf("ByTag(legno) = %v", got)
	}
	if got := catalog.ByTag("leg"); got != nil {
		t.Errorf("ByTag must not substring-match, got %v", slugsOf(got))
	}
}

func TestCatalogBySlug(t *testing.T) {
	catalog := testCatalog()

	article, ok := catalog.BySlug("casa", "bagno")
	if !ok || article.Title != "Rifare il bagno" {
		t.Fatalf("BySlug(casa, bagno) = %v, %v", article, ok)
	}
	if _, ok := catalog.BySlug("cose", "bagno"); ok {
		t.Error("slug lookup must be scoped to the category")
	}
}

func TestCatalogSearch(t *testing.T) {
	catalog := testCatalog()

	if got := slugsOf(catalog.Search("LEGNO")); !reflect.DeepEqual(got, []string{"tavolo", "falegname"}) {
		t.Errorf("case-insensitive tag search = %v", got)
	}
	if got := slugsOf(catalog.Search("ottone")); !reflect.DeepEqual(got, []string{"lampada"}) {
		t.Errorf("excerpt search = %v", got)
	}
	if got := catalog.Search("   "); got != nil {
		t.Errorf("blank query must return nothing, got %v", slugsOf(got))
	}
}

func TestCatalogRelated(t *testing.T) {
	catalog := testCatalog()
	current, _ := catalog.BySlug("casa", "tavolo")

	related := catalog.Related(current, 3)
	got := slugsOf(related)
	// falegname shares a tag, cantina shares tag and subcategory, then
	// bagno pads from the same category. Never the article itself.
	want := []string{"falegname", "cantina", "bagno"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Related = %v, want %v", got, want)
	}

	if got := slugsOf(catalog.Related(current, 1)); !reflect.DeepEqual(got, []string{"falegname"}) {
		t.Errorf("Related must truncate to the limit, got %v", got)
	}
	if got := catalog.Related(current, 0); got != nil {
		t.Errorf("non-positive limit must return nothing, got %v", slugsOf(got))
	}
}

func TestCatalogFeatured(t *testing.T) {
	catalog := testCatalog()

	if got := slugsOf(catalog.Featured(0)); !reflect.DeepEqual(got, []string{"tavolo", "bagno"}) {
		t.Errorf("Featured(0) = %v", got)
	}
	if got := slugsOf(catalog.Featured(1)); !reflect.DeepEqual(got, []string{"tavolo"}) {
		t.Errorf("Featured(1) = %v", got)
	}
}

func TestCatalogSubcategoriesAndTags(t *testing.T) {
	catalog := testCatalog()

	if got := catalog.Subcategories("casa"); !reflect.DeepEqual(got, []string{"bagno", "cucina"}) {
		t.Errorf("Subcategories(casa) = %v", got)
	}
	if got := catalog.AllTags(); !reflect.DeepEqual(got, []string{"artigiani", "bagno", "cucina", "legno"}) {
		t.Errorf("AllTags = %v", got)
	}
}

func slugsOf(articles []ArticleRecord) []string {
	if articles == nil {
		return nil
	}
	out := make([]string, 0, len(articles))
	for _, article := range articles {
		out = append(out, article.Slug)
	}
	return out
}
