package handler

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cosecasa/internal/service"
)

// stagedImagePayload carries an inline image in the staging API.
type stagedImagePayload struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Data        string `json:"data"` // base64
}

type stageUploadPayload struct {
	Slug     string               `json:"slug"`
	Title    string               `json:"title"`
	Markdown string               `json:"markdown"`
	Images   []stagedImagePayload `json:"images"`
}

// ListPending returns the staged changes and the budget summary.
func (a *API) ListPending(c *gin.Context) {
	uploads, deletes, err := a.staging.List()
	if err != nil {
		respondActionError(c, err)
		return
	}
	summary, err := a.staging.Summary()
	if err != nil {
		respondActionError(c, err)
		return
	}

	type pendingUploadView struct {
		Slug   string   `json:"slug"`
		Title  string   `json:"title,omitempty"`
		Images []string `json:"images"`
	}
	uploadViews := make([]pendingUploadView, 0, len(uploads))
	for _, upload := range uploads {
		view := pendingUploadView{Slug: upload.Slug, Title: upload.Title, Images: []string{}}
		for _, image := range upload.Images {
			view.Images = append(view.Images, image.Name)
		}
		uploadViews = append(uploadViews, view)
	}

	deleteSlugs := make([]string, 0, len(deletes))
	for _, del := range deletes {
		deleteSlugs = append(deleteSlugs, del.Slug)
	}

	c.JSON(http.StatusOK, gin.H{
		"uploads": uploadViews,
		"deletes": deleteSlugs,
		"summary": summary,
	})
}

// StageUpload stages an upload (new article or extra images).
func (a *API) StageUpload(c *gin.Context) {
	var payload stageUploadPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, "Richiesta non valida.")
		return
	}

	input := service.StagedUploadInput{
		Slug:     payload.Slug,
		Title:    payload.Title,
		Markdown: payload.Markdown,
	}
	for _, image := range payload.Images {
		data, err := base64.StdEncoding.DecodeString(image.Data)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Una delle immagini non è codificata correttamente.")
			return
		}
		input.Images = append(input.Images, service.StagedImageInput{
			Name:        image.Name,
			ContentType: image.ContentType,
			Data:        data,
		})
	}

	if err := a.staging.StageUpload(input); err != nil {
		respondActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// StageDelete schedules an article folder deletion.
func (a *API) StageDelete(c *gin.Context) {
	if err := a.staging.StageDelete(c.PostForm("slug")); err != nil {
		respondActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RemovePendingUpload discards one staged upload.
func (a *API) RemovePendingUpload(c *gin.Context) {
	if err := a.staging.RemoveUpload(c.Param("slug")); err != nil {
		respondActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RemovePendingDelete unschedules one staged deletion.
func (a *API) RemovePendingDelete(c *gin.Context) {
	if err := a.staging.RemoveDelete(c.Param("slug")); err != nil {
		respondActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ClearPending drops every staged change.
func (a *API) ClearPending(c *gin.Context) {
	if err := a.staging.Clear(); err != nil {
		respondActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PublishPending pushes the staged changes to the backing store.
func (a *API) PublishPending(c *gin.Context) {
	if err := a.staging.Publish(c.Request.Context(), a.store); err != nil {
		respondActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
