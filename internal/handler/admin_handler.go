package handler

import (
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cosecasa/internal/service"
)

// breadcrumb 是浏览器顶部的一级路径节点。
type breadcrumb struct {
	Label  string `json:"label"`
	Prefix string `json:"prefix"`
	Active bool   `json:"active"`
}

// Browse renders the prefix-scoped directory listing. The prefix is
// the only navigational state and round-trips via the query string.
func (a *API) Browse(c *gin.Context) {
	listing, err := a.admin.Browse(c.Request.Context(), c.Query("prefix"))
	if err != nil {
		respondActionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"listing":     listing,
		"breadcrumbs": buildBreadcrumbs(listing.Prefix),
	})
}

func buildBreadcrumbs(prefix string) []breadcrumb {
	crumbs := []breadcrumb{{Label: "Root", Prefix: "", Active: prefix == ""}}
	if prefix == "" {
		return crumbs
	}

	segments := strings.Split(strings.TrimSuffix(prefix, "/"), "/")
	cumulative := ""
	for i, segment := range segments {
		cumulative += segment + "/"
		crumbs = append(crumbs, breadcrumb{
			Label:  segment,
			Prefix: cumulative,
			Active: i == len(segments)-1,
		})
	}
	return crumbs
}

// DeleteAsset removes a single file; deleting the canonical article
// file this way is always rejected.
func (a *API) DeleteAsset(c *gin.Context) {
	pathname := c.PostForm("pathname")
	if err := a.admin.DeleteAsset(c.Request.Context(), pathname); err != nil {
		respondActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteArticle removes a whole article folder and points the caller
// back at the parent listing.
func (a *API) DeleteArticle(c *gin.Context) {
	prefix := c.PostForm("prefix")
	parent, err := a.admin.DeleteArticle(c.Request.Context(), prefix)
	if err != nil {
		respondActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"redirectTo": "/admin?prefix=" + url.QueryEscape(parent),
	})
}

// ShowUploadForm describes the new-article form and its limits.
func (a *API) ShowUploadForm(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"title":            "Carica nuovo articolo",
		"maxMarkdownBytes": service.MaxMarkdownSizeBytes,
		"maxImageBytes":    service.MaxImageSizeBytes,
	})
}

// ShowUploadImagesForm describes the add-images form for a prefix.
func (a *API) ShowUploadImagesForm(c *gin.Context) {
	prefix, ok := service.NormalizeArticlesPrefix(c.Query("prefix"))
	if !ok {
		respondError(c, http.StatusBadRequest, "Puoi caricare immagini solo nelle cartelle articolo valide.")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"title":         "Aggiungi immagini",
		"prefix":        prefix,
		"maxImageBytes": service.MaxImageSizeBytes,
	})
}

// UploadArticle handles the new-article multipart form: a title, one
// markdown file and optional images.
func (a *API) UploadArticle(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, http.StatusBadRequest, "Richiesta non valida.")
		return
	}

	input := service.ArticleUpload{Title: c.PostForm("title")}

	if files := form.File["markdown"]; len(files) > 0 {
		content, err := readUploadedFile(files[0], service.MaxMarkdownSizeBytes)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Il file Markdown è troppo grande. Dimensione massima: 2 MB.")
			return
		}
		input.Markdown = content
		input.MarkdownName = files[0].Filename
		input.MarkdownType = files[0].Header.Get("Content-Type")
	}

	images, err := readImageUploads(form.File["images"])
	if err != nil {
		respondActionError(c, err)
		return
	}
	input.Images = images

	result, err := a.admin.UploadArticle(c.Request.Context(), input)
	if err != nil {
		respondActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// UploadImages adds images to an existing article folder.
func (a *API) UploadImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, http.StatusBadRequest, "Richiesta non valida.")
		return
	}

	images, err := readImageUploads(form.File["images"])
	if err != nil {
		respondActionError(c, err)
		return
	}

	uploaded, err := a.admin.UploadImages(c.Request.Context(), c.PostForm("prefix"), images)
	if err != nil {
		respondActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "images": uploaded})
}

// readUploadedFile reads a multipart file fully, rejecting anything
// over limit without buffering it all first.
func readUploadedFile(header *multipart.FileHeader, limit int64) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > limit {
		return nil, io.ErrShortBuffer
	}
	return content, nil
}

func readImageUploads(headers []*multipart.FileHeader) ([]service.ImageUpload, error) {
	var images []service.ImageUpload
	for _, header := range headers {
		if header.Size == 0 {
			continue
		}
		content, err := readUploadedFile(header, service.MaxImageSizeBytes)
		if err != nil {
			return nil, &service.ValidationError{Message: "Una delle immagini supera i 5 MB consentiti."}
		}
		images = append(images, service.ImageUpload{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        content,
		})
	}
	return images, nil
}
