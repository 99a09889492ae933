package service

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/cosecasa/internal/store"
)

// Categories 是站点支持的固定分类。
var Categories = []string{"cose", "casa", "persone"}

// DefaultCategory is assigned when no tag matches an inference rule.
const DefaultCategory = "cose"

// DefaultSubcategory is the sentinel for articles without tags.
const DefaultSubcategory = "generale"

// ArticleRecord is one published article ready for display.
type ArticleRecord struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Excerpt     string   `json:"excerpt"`
	Date        string   `json:"date"`
	Tags        []string `json:"tags"`
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory"`
	Author      string   `json:"author,omitempty"`
	Featured    bool     `json:"featured"`
	HTMLContent string   `json:"htmlContent"`
	ImageURL    string   `json:"imageUrl,omitempty"`
}

// ArticleService assembles ArticleRecords from the backing store.
type ArticleService struct {
	store store.Store
}

// NewArticleService creates an ArticleService on top of a backing store.
func NewArticleService(st store.Store) *ArticleService {
	return &ArticleService{store: st}
}

// FetchAll lists the articles root, reads and parses every canonical
// file and returns the records sorted by date descending. Per-article
// failures are logged and skipped so one broken article never takes
// down the whole collection. A missing store credential yields the
// error to the caller instead.
func (s *ArticleService) FetchAll(ctx context.Context) ([]ArticleRecord, error) {
	rootEntries, err := s.store.ListDirectory(ctx, store.ArticlesRoot)
	if err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(s.store.RawURL(""), "/")

	var articles []ArticleRecord
	for _, entry := range rootEntries {
		if entry.Type != store.EntryDir {
			continue
		}
		record, err := s.assembleArticle(ctx, entry.Name, baseURL)
		if err != nil {
			if errors.Is(err, store.ErrObjectNotFound) {
				log.Printf("skipping article %s: no %s found", entry.Name, store.CanonicalFilename)
			} else {
				log.Printf("skipping article %s: %v", entry.Name, err)
			}
			continue
		}
		articles = append(articles, record)
	}

	// 日期相同的文章保持枚举顺序，所以必须用稳定排序。
	sort.SliceStable(articles, func(i, j int) bool {
		return parseArticleDate(articles[i].Date).After(parseArticleDate(articles[j].Date))
	})

	return articles, nil
}

func (s *ArticleService) assembleArticle(ctx context.Context, slug, baseURL string) (ArticleRecord, error) {
	markdownPath := store.ArticlesRoot + "/" + slug + "/" + store.CanonicalFilename
	markdownText, err := s.store.ReadFile(ctx, markdownPath)
	if err != nil {
		return ArticleRecord{}, err
	}

	parsed, err := ParseMarkdown(markdownText, slug, baseURL)
	if err != nil {
		return ArticleRecord{}, err
	}

	siblings, err := s.store.ListDirectory(ctx, store.ArticlesRoot+"/"+slug)
	if err != nil {
		return ArticleRecord{}, err
	}

	var imageURLs []string
	for _, sibling := range siblings {
		if sibling.Type == store.EntryFile && store.IsImageFile(sibling.Name) {
			url := sibling.URL
			if url == "" {
				url = s.store.RawURL(sibling.Path)
			}
			imageURLs = append(imageURLs, url)
		}
	}
	sort.Strings(imageURLs)

	imageURL := extractFirstImage(parsed.HTMLContent)
	if imageURL == "" && len(imageURLs) > 0 {
		imageURL = imageURLs[0]
	}

	fm := parsed.Frontmatter

	category := fm.Category
	if !isKnownCategory(category) {
		category = InferCategory(fm.Tags)
	}

	subcategory := fm.Subcategory
	if subcategory == "" {
		if len(fm.Tags) > 0 {
			subcategory = fm.Tags[0]
		} else {
			subcategory = DefaultSubcategory
		}
	}

	return ArticleRecord{
		Slug:        slug,
		Title:       fm.Title,
		Excerpt:     fm.Description,
		Date:        fm.Date,
		Tags:        fm.Tags,
		Category:    category,
		Subcategory: subcategory,
		Author:      fm.Author,
		Featured:    fm.Featured,
		HTMLContent: parsed.HTMLContent,
		ImageURL:    imageURL,
	}, nil
}

func isKnownCategory(category string) bool {
	for _, known := range Categories {
		if category == known {
			return true
		}
	}
	return false
}

var (
	casaKeywords    = []string{"casa", "bagno", "cucina", "ristrutturazione", "design", "interior", "architettura"}
	personeKeywords = []string{"persone", "ritratti", "incontri", "artigiani"}
)

// InferCategory maps tags onto the fixed category enumeration. The
// casa rule is checked before persone; anything else is cose.
func InferCategory(tags []string) string {
	if matchesKeyword(tags, casaKeywords) {
		return "casa"
	}
	if matchesKeyword(tags, personeKeywords) {
		return "persone"
	}
	return DefaultCategory
}

func matchesKeyword(tags, keywords []string) bool {
	for _, tag := range tags {
		lowered := strings.ToLower(strings.TrimSpace(tag))
		for _, keyword := range keywords {
			if lowered == keyword {
				return true
			}
		}
	}
	return false
}

func parseArticleDate(date string) time.Time {
	parsed, err := time.Parse("2006-01-02", strings.TrimSpace(date))
	if err != nil {
		return time.Time{}
	}
	return parsed
}
