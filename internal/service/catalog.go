package service

import (
	"sort"
	"strings"
)

// Catalog 是单次请求内装配好的文章集合，所有投影都是纯函数，
// 不再触发任何 I/O。
type Catalog struct {
	articles []ArticleRecord
}

// NewCatalog wraps an assembled, already sorted article collection.
func NewCatalog(articles []ArticleRecord) *Catalog {
	return &Catalog{articles: articles}
}

// All returns the full collection in date-descending order.
func (c *Catalog) All() []ArticleRecord {
	return c.articles
}

// ByCategory filters on the stored category value, case-sensitively.
func (c *Catalog) ByCategory(category string) []ArticleRecord {
	var out []ArticleRecord
	for _, article := range c.articles {
		if article.Category == category {
			out = append(out, article)
		}
	}
	return out
}

// BySubcategory filters on category and subcategory, case-sensitively.
func (c *Catalog) BySubcategory(category, subcategory string) []ArticleRecord {
	var out []ArticleRecord
	for _, article := range c.articles {
		if article.Category == category && article.Subcategory == subcategory {
			out = append(out, article)
		}
	}
	return out
}

// ByTag returns articles carrying the exact tag.
func (c *Catalog) ByTag(tag string) []ArticleRecord {
	var out []ArticleRecord
	for _, article := range c.articles {
		for _, candidate := range article.Tags {
			if candidate == tag {
				out = append(out, article)
				break
			}
		}
	}
	return out
}

// BySlug looks a single article up within a category.
func (c *Catalog) BySlug(category, slug string) (ArticleRecord, bool) {
	for _, article := range c.articles {
		if article.Category == category && article.Slug == slug {
			return article, true
		}
	}
	return ArticleRecord{}, false
}

// Search is a case-insensitive substring match over title, excerpt,
// tags and subcategory.
func (c *Catalog) Search(query string) []ArticleRecord {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var out []ArticleRecord
	for _, article := range c.articles {
		if strings.Contains(strings.ToLower(article.Title), q) ||
			strings.Contains(strings.ToLower(article.Excerpt), q) ||
			strings.Contains(strings.ToLower(article.Subcategory), q) ||
			anyTagContains(article.Tags, q) {
			out = append(out, article)
		}
	}
	return out
}

func anyTagContains(tags []string, q string) bool {
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// Related selects up to limit other articles sharing a tag or the
// subcategory with current; when short, it pads with same-category
// articles in collection order without duplicates.
func (c *Catalog) Related(current ArticleRecord, limit int) []ArticleRecord {
	if limit <= 0 {
		return nil
	}

	seen := map[string]bool{current.Slug: true}
	var related []ArticleRecord

	for _, article := range c.articles {
		if seen[article.Slug] {
			continue
		}
		if sharesTag(article.Tags, current.Tags) || article.Subcategory == current.Subcategory {
			related = append(related, article)
			seen[article.Slug] = true
		}
	}

	if len(related) < limit {
		for _, article := range c.articles {
			if len(related) >= limit {
				break
			}
			if seen[article.Slug] || article.Category != current.Category {
				continue
			}
			related = append(related, article)
			seen[article.Slug] = true
		}
	}

	if len(related) > limit {
		related = related[:limit]
	}
	return related
}

func sharesTag(a, b []string) bool {
	for _, tagA := range a {
		for _, tagB := range b {
			if tagA == tagB {
				return true
			}
		}
	}
	return false
}

// Featured returns flagged articles, preserving date order, up to limit.
func (c *Catalog) Featured(limit int) []ArticleRecord {
	var out []ArticleRecord
	for _, article := range c.articles {
		if !article.Featured {
			continue
		}
		out = append(out, article)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Subcategories lists the distinct subcategories within a category,
// sorted alphabetically.
func (c *Catalog) Subcategories(category string) []string {
	seen := map[string]bool{}
	var out []string
	for _, article := range c.ByCategory(category) {
		if !seen[article.Subcategory] {
			seen[article.Subcategory] = true
			out = append(out, article.Subcategory)
		}
	}
	sort.Strings(out)
	return out
}

// AllTags lists every distinct tag across the collection, sorted.
func (c *Catalog) AllTags() []string {
	seen := map[string]bool{}
	var out []string
	for _, article := range c.articles {
		for _, tag := range article.Tags {
			if !seen[tag] {
				seen[tag] = true
				out = append(out, tag)
			}
		}
	}
	sort.Strings(out)
	return out
}
