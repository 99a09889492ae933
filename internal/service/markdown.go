package service

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		// 原始 HTML 交给 bluemonday 统一清洗，渲染阶段不拦截。
		goldmark.WithRendererOptions(html.WithXHTML(), html.WithUnsafe()),
	)
	sanitizer = newSanitizerPolicy()
)

// newSanitizerPolicy 在 UGC 默认策略上放开文章需要的标签和属性，
// 其余一律剥离而不是报错。
func newSanitizerPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("img", "h1", "h2", "h3", "h4", "h5", "h6", "figure", "figcaption")
	p.AllowAttrs("src", "alt", "title", "width", "height").OnElements("img")
	p.AllowAttrs("href", "title", "target", "rel").OnElements("a")
	p.AllowURLSchemes("http", "https", "mailto")
	return p
}

// Frontmatter carries the typed metadata extracted from the YAML
// header of an article file.
type Frontmatter struct {
	Title       string
	Date        string
	Description string
	Tags        []string
	Category    string
	Subcategory string
	Author      string
	Featured    bool
}

// ParsedMarkdown is the result of parsing one article body.
type ParsedMarkdown struct {
	Frontmatter Frontmatter
	HTMLContent string
	RawContent  string
}

// tagList accepts either a comma-separated scalar or a YAML sequence.
type tagList []string

func (l *tagList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		*l = splitTags(single)
		return nil
	}

	var many []string
	if err := unmarshal(&many); err != nil {
		return err
	}
	cleaned := make([]string, 0, len(many))
	for _, tag := range many {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	*l = cleaned
	return nil
}

func splitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}

type frontmatterEnvelope struct {
	Title       string  `yaml:"title"`
	Date        string  `yaml:"date"`
	Description string  `yaml:"description"`
	Tags        tagList `yaml:"tags"`
	Category    string  `yaml:"category"`
	Subcategory string  `yaml:"subcategory"`
	Author      string  `yaml:"author"`
	Featured    bool    `yaml:"featured"`
}

var markdownImagePattern = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)([^)]*)\)`)

var urlSchemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

// ParseMarkdown splits the YAML frontmatter from the body, rewrites
// relative image references under {baseURL}/articles/{slug}/ and
// renders sanitized HTML. A relative image path containing a ".."
// segment aborts parsing with PathTraversalError.
func ParseMarkdown(markdownText, slug, baseURL string) (*ParsedMarkdown, error) {
	var meta frontmatterEnvelope
	body, err := frontmatter.Parse(strings.NewReader(markdownText), &meta)
	if err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}

	content, err := resolveImagePaths(string(body), slug, baseURL)
	if err != nil {
		return nil, err
	}

	var rendered bytes.Buffer
	if err := markdownEngine.Convert([]byte(content), &rendered); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	htmlContent := sanitizer.Sanitize(rendered.String())

	fm := Frontmatter{
		Title:       strings.TrimSpace(meta.Title),
		Date:        strings.TrimSpace(meta.Date),
		Description: strings.TrimSpace(meta.Description),
		Tags:        meta.Tags,
		Category:    strings.TrimSpace(meta.Category),
		Subcategory: strings.TrimSpace(meta.Subcategory),
		Author:      strings.TrimSpace(meta.Author),
		Featured:    meta.Featured,
	}
	if fm.Title == "" {
		fm.Title = "Untitled"
	}
	if fm.Date == "" {
		fm.Date = time.Now().Format("2006-01-02")
	}

	return &ParsedMarkdown{
		Frontmatter: fm,
		HTMLContent: htmlContent,
		RawContent:  string(body),
	}, nil
}

// resolveImagePaths rewrites every relative markdown image reference
// to an absolute URL under the article folder. Schemed URLs pass
// through untouched.
func resolveImagePaths(content, slug, baseURL string) (string, error) {
	var traversal *PathTraversalError

	rewritten := markdownImagePattern.ReplaceAllStringFunc(content, func(match string) string {
		if traversal != nil {
			return match
		}
		groups := markdownImagePattern.FindStringSubmatch(match)
		if len(groups) < 4 {
			return match
		}
		alt, path, rest := groups[1], groups[2], groups[3]

		if !isRelativeImagePath(path) {
			return match
		}
		if containsTraversal(path) {
			traversal = &PathTraversalError{Path: path}
			return match
		}
		if baseURL == "" {
			return match
		}

		cleaned := strings.TrimPrefix(path, "./")
		cleaned = strings.TrimPrefix(cleaned, "/")
		fullURL := fmt.Sprintf("%s/articles/%s/%s", strings.TrimRight(baseURL, "/"), slug, cleaned)
		return fmt.Sprintf("![%s](%s%s)", alt, fullURL, rest)
	})

	if traversal != nil {
		return "", traversal
	}
	return rewritten, nil
}

func isRelativeImagePath(path string) bool {
	if strings.HasPrefix(path, "/") || strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") {
		return true
	}
	return !urlSchemePattern.MatchString(path)
}

func containsTraversal(path string) bool {
	for _, segment := range strings.Split(path, "/") {
		if segment == ".." {
			return true
		}
	}
	return false
}

var firstImagePattern = regexp.MustCompile(`(?i)<img[^>]+src=["']([^"']+)["']`)

// extractFirstImage returns the src of the first <img> in the rendered
// body, or empty when none exists.
func extractFirstImage(htmlContent string) string {
	match := firstImagePattern.FindStringSubmatch(htmlContent)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}
