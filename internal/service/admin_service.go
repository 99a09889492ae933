package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/cosecasa/internal/store"
)

const (
	// MaxMarkdownSizeBytes caps the canonical article file.
	MaxMarkdownSizeBytes = 2 * 1024 * 1024
	// MaxImageSizeBytes caps each uploaded image.
	MaxImageSizeBytes = 5 * 1024 * 1024
)

// AdminService implements the explorer listing and the guarded
// mutations against the backing store. Authorization happens in the
// HTTP layer before any of these run.
type AdminService struct {
	store store.Store
}

// NewAdminService creates an AdminService over a backing store.
func NewAdminService(st store.Store) *AdminService {
	return &AdminService{store: st}
}

// ExplorerListing 是目录浏览器一页的内容。Prefix 始终以 / 结尾或为空。
type ExplorerListing struct {
	Prefix           string            `json:"prefix"`
	ParentPrefix     *string           `json:"parentPrefix"`
	Folders          []store.AssetEntry `json:"folders"`
	Files            []store.AssetEntry `json:"files"`
	CanUploadImages  bool              `json:"canUploadImages"`
	CanDeleteArticle bool              `json:"canDeleteArticle"`
}

// NormalizeBrowsePrefix cleans a browse prefix from the query string:
// empty and "..-bearing" segments are dropped entirely rather than
// resolved.
func NormalizeBrowsePrefix(raw string) string {
	var segments []string
	for _, segment := range strings.Split(raw, "/") {
		trimmed := strings.TrimSpace(segment)
		if trimmed == "" || strings.Contains(trimmed, "..") {
			continue
		}
		segments = append(segments, trimmed)
	}
	if len(segments) == 0 {
		return ""
	}
	return strings.Join(segments, "/") + "/"
}

// NormalizeArticlesPrefix validates a prefix that must point inside an
// article folder: articles/{slug}/... with no traversal segments.
func NormalizeArticlesPrefix(raw string) (string, bool) {
	trimmed := strings.TrimLeft(strings.TrimSpace(raw), "/")
	if trimmed == "" || !strings.HasPrefix(trimmed, store.ArticlesRoot+"/") {
		return "", false
	}

	var segments []string
	for _, segment := range strings.Split(trimmed, "/") {
		if segment == "" {
			continue
		}
		if segment == ".." {
			return "", false
		}
		segments = append(segments, segment)
	}
	if len(segments) < 2 {
		return "", false
	}
	return strings.Join(segments, "/") + "/", true
}

// Browse lists the entries under a raw browse prefix, grouped into
// folders and files, with the flags the admin UI needs.
func (s *AdminService) Browse(ctx context.Context, rawPrefix string) (*ExplorerListing, error) {
	prefix := NormalizeBrowsePrefix(rawPrefix)

	path := strings.TrimSuffix(prefix, "/")
	entries, err := s.store.ListDirectory(ctx, path)
	if err != nil {
		return nil, err
	}

	listing := &ExplorerListing{
		Prefix:  prefix,
		Folders: []store.AssetEntry{},
		Files:   []store.AssetEntry{},
	}

	if prefix != "" {
		parent := parentPrefix(prefix)
		listing.ParentPrefix = &parent
	}

	hasCanonical := false
	for _, entry := range entries {
		switch entry.Type {
		case store.EntryDir:
			listing.Folders = append(listing.Folders, entry)
		case store.EntryFile:
			listing.Files = append(listing.Files, entry)
			if store.IsCanonicalFile(entry.Name) {
				hasCanonical = true
			}
		}
	}

	listing.CanUploadImages = strings.HasPrefix(prefix, store.ArticlesRoot+"/") && hasCanonical
	listing.CanDeleteArticle = listing.CanUploadImages && prefix != store.ArticlesRoot+"/"

	return listing, nil
}

func parentPrefix(prefix string) string {
	withoutSlash := strings.TrimSuffix(prefix, "/")
	idx := strings.LastIndex(withoutSlash, "/")
	if idx < 0 {
		return ""
	}
	return withoutSlash[:idx+1]
}

// DeleteAsset removes a single file. The canonical article file is
// protected: deleting it directly would orphan the whole folder.
func (s *AdminService) DeleteAsset(ctx context.Context, pathname string) error {
	cleaned := store.NormalizePath(pathname)
	if cleaned == "" {
		return newValidationError("Percorso non valido.")
	}
	if store.IsCanonicalFile(cleaned[strings.LastIndex(cleaned, "/")+1:]) {
		return newValidationError("Il file %s non può essere eliminato singolarmente: elimina l'intero articolo.", store.CanonicalFilename)
	}
	return s.store.Delete(ctx, cleaned)
}

// DeleteArticle removes every object under an articles/{slug}/ prefix.
// The prefix must resolve to exactly one article folder and must still
// contain the canonical file. There is no rollback: a failure midway
// leaves a partially deleted folder and is surfaced to the caller.
func (s *AdminService) DeleteArticle(ctx context.Context, rawPrefix string) (string, error) {
	prefix, ok := NormalizeArticlesPrefix(rawPrefix)
	if !ok {
		return "", newValidationError("Puoi eliminare solo cartelle articolo valide.")
	}
	if strings.Count(strings.TrimSuffix(prefix, "/"), "/") != 1 {
		return "", newValidationError("Il percorso deve essere una cartella articolo diretta.")
	}

	entries, err := s.store.ListTree(ctx, strings.TrimSuffix(prefix, "/"))
	if err != nil {
		return "", err
	}

	hasCanonical := false
	for _, entry := range entries {
		if entry.Path == prefix+store.CanonicalFilename {
			hasCanonical = true
			break
		}
	}
	if !hasCanonical {
		return "", newValidationError("La cartella non contiene %s: non è un articolo eliminabile.", store.CanonicalFilename)
	}

	for _, entry := range entries {
		if err := s.store.Delete(ctx, entry.Path); err != nil {
			return "", fmt.Errorf("delete %s: %w", entry.Path, err)
		}
	}

	return parentPrefix(prefix), nil
}

// ImageUpload is one image file submitted by the admin.
type ImageUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

// ArticleUpload is the input of the new-article action.
type ArticleUpload struct {
	Title        string
	MarkdownName string
	MarkdownType string
	Markdown     []byte
	Images       []ImageUpload
}

// UploadedAsset echoes one written object back to the caller.
type UploadedAsset struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// UploadResult reports a completed article upload.
type UploadResult struct {
	Slug     string          `json:"slug"`
	Title    string          `json:"title"`
	Markdown UploadedAsset   `json:"markdown"`
	Images   []UploadedAsset `json:"images,omitempty"`
}

// Validate applies the request-level rules before any store call.
func (u ArticleUpload) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Title, validation.Required.Error("Inserisci un titolo per l'articolo.")),
		validation.Field(&u.Markdown, validation.Required.Error("Seleziona un file Markdown da caricare.")),
	)
}

func validateMarkdownFile(name, contentType string, size int) error {
	if size == 0 {
		return newValidationError("Il file Markdown selezionato è vuoto.")
	}
	if size > MaxMarkdownSizeBytes {
		return newValidationError("Il file Markdown è troppo grande. Dimensione massima: 2 MB.")
	}
	isMarkdown := contentType == "text/markdown" ||
		contentType == "text/plain" ||
		strings.HasSuffix(strings.ToLower(strings.TrimSpace(name)), ".md")
	if !isMarkdown {
		return newValidationError("Sono supportati solo file Markdown (.md).")
	}
	return nil
}

func validateImages(images []ImageUpload) error {
	for _, image := range images {
		if !strings.HasPrefix(image.ContentType, "image/") {
			return newValidationError("Sono supportati solo file immagine (PNG, JPG, WebP, ecc.).")
		}
		if len(image.Data) > MaxImageSizeBytes {
			return newValidationError("Una delle immagini supera i 5 MB consentiti.")
		}
	}
	return nil
}

// UploadArticle writes a new article folder: canonical file first,
// then each accepted image under a collision-free name.
func (s *AdminService) UploadArticle(ctx context.Context, input ArticleUpload) (*UploadResult, error) {
	input.Title = strings.TrimSpace(input.Title)

	if err := input.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	if err := validateMarkdownFile(input.MarkdownName, input.MarkdownType, len(input.Markdown)); err != nil {
		return nil, err
	}
	if err := validateImages(input.Images); err != nil {
		return nil, err
	}

	slug := Slugify(input.Title)
	if slug == "" {
		slug = FallbackSlug
	}
	basePath := store.ArticlesRoot + "/" + slug

	markdownEntry, err := s.store.Put(ctx, basePath+"/"+store.CanonicalFilename, input.Markdown, "text/markdown")
	if err != nil {
		return nil, err
	}

	result := &UploadResult{
		Slug:     slug,
		Title:    input.Title,
		Markdown: UploadedAsset{URL: markdownEntry.URL, Filename: markdownEntry.Path},
	}

	// 同名文章重复上传时，不覆盖已有图片，冲突名追加序号。
	used := map[string]bool{store.CanonicalFilename: true}
	if entries, err := s.store.ListTree(ctx, basePath); err == nil {
		for _, entry := range entries {
			if name := strings.TrimPrefix(entry.Path, basePath+"/"); name != "" {
				used[name] = true
			}
		}
	}
	uploaded, err := s.putImages(ctx, basePath+"/", input.Images, used)
	if err != nil {
		return nil, err
	}
	result.Images = uploaded

	return result, nil
}

// UploadImages adds images to an existing article folder. The folder
// must already hold the canonical file; that file is never rewritten
// by this action.
func (s *AdminService) UploadImages(ctx context.Context, rawPrefix string, images []ImageUpload) ([]UploadedAsset, error) {
	prefix, ok := NormalizeArticlesPrefix(rawPrefix)
	if !ok {
		return nil, newValidationError("Puoi caricare immagini solo nelle cartelle articolo valide.")
	}
	if len(images) == 0 {
		return nil, newValidationError("Seleziona almeno un file immagine da caricare.")
	}
	if err := validateImages(images); err != nil {
		return nil, err
	}

	entries, err := s.store.ListTree(ctx, strings.TrimSuffix(prefix, "/"))
	if err != nil {
		return nil, err
	}

	hasCanonical := false
	used := map[string]bool{}
	for _, entry := range entries {
		name := strings.TrimPrefix(entry.Path, prefix)
		if name == "" {
			continue
		}
		used[name] = true
		if name == store.CanonicalFilename {
			hasCanonical = true
		}
	}
	if !hasCanonical {
		return nil, newValidationError("La cartella selezionata non contiene un file %s necessario per identificare l'articolo.", store.CanonicalFilename)
	}

	return s.putImages(ctx, prefix, images, used)
}

func (s *AdminService) putImages(ctx context.Context, prefix string, images []ImageUpload, used map[string]bool) ([]UploadedAsset, error) {
	var uploaded []UploadedAsset
	for _, image := range images {
		if len(image.Data) == 0 {
			continue
		}
		fallback := fmt.Sprintf("image-%s", uuid.New().String())
		sanitized := SanitizeFileName(image.Name, fallback)
		unique := EnsureUniqueName(sanitized, used)

		entry, err := s.store.Put(ctx, prefix+unique, image.Data, image.ContentType)
		if err != nil {
			return uploaded, err
		}
		uploaded = append(uploaded, UploadedAsset{URL: entry.URL, Filename: entry.Path})
	}
	return uploaded, nil
}

// IsNotFound reports whether err is the backing store's missing-object
// condition.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrObjectNotFound)
}
