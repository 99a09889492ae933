package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/cosecasa/internal/db"
	"github.com/cosecasa/internal/store"
)

const (
	// MaxStagingBytes bounds the serialized size of all staged changes.
	MaxStagingBytes = 4 * 1024 * 1024
	// MaxStagedImageBytes caps each staged image.
	MaxStagedImageBytes = 2 * 1024 * 1024
)

// StagingService 把待发布的上传/删除暂存在本地 sqlite 里，
// 超出字节预算的写入直接拒绝，而不是静默截断。
type StagingService struct {
	db *gorm.DB
}

// NewStagingService creates a StagingService instance.
func NewStagingService(gdb *gorm.DB) *StagingService {
	return &StagingService{db: gdb}
}

// StagedImageInput is one image submitted for staging.
type StagedImageInput struct {
	Name        string
	ContentType string
	Data        []byte
}

// StagedUploadInput is an article (or image-only addition) to stage.
type StagedUploadInput struct {
	Slug     string
	Title    string
	Markdown string
	Images   []StagedImageInput
}

// StagingSummary reports budget usage and staged counts.
type StagingSummary struct {
	Uploads    int   `json:"uploads"`
	Deletes    int   `json:"deletes"`
	UsedBytes  int64 `json:"usedBytes"`
	LimitBytes int64 `json:"limitBytes"`
}

func stagedUploadSize(upload db.PendingUpload) int64 {
	size := int64(len(upload.Slug) + len(upload.Title) + len(upload.Markdown))
	for _, image := range upload.Images {
		size += int64(len(image.Name)) + int64(len(image.Data))
	}
	return size
}

func (s *StagingService) usedBytes() (int64, error) {
	uploads, deletes, err := s.List()
	if err != nil {
		return 0, err
	}
	var used int64
	for _, upload := range uploads {
		used += stagedUploadSize(upload)
	}
	for _, del := range deletes {
		used += int64(len(del.Slug))
	}
	return used, nil
}

// Summary returns the current staging state for display.
func (s *StagingService) Summary() (*StagingSummary, error) {
	uploads, deletes, err := s.List()
	if err != nil {
		return nil, err
	}
	used, err := s.usedBytes()
	if err != nil {
		return nil, err
	}
	return &StagingSummary{
		Uploads:    len(uploads),
		Deletes:    len(deletes),
		UsedBytes:  used,
		LimitBytes: MaxStagingBytes,
	}, nil
}

// List returns the staged uploads with their images, and the staged
// deletes, in insertion order.
func (s *StagingService) List() ([]db.PendingUpload, []db.PendingDelete, error) {
	var uploads []db.PendingUpload
	if err := s.db.Preload("Images").Order("created_at asc").Find(&uploads).Error; err != nil {
		return nil, nil, err
	}
	var deletes []db.PendingDelete
	if err := s.db.Order("created_at asc").Find(&deletes).Error; err != nil {
		return nil, nil, err
	}
	return uploads, deletes, nil
}

func validateStagedImages(images []StagedImageInput) error {
	for _, image := range images {
		if !strings.HasPrefix(image.ContentType, "image/") {
			return newValidationError("Sono supportati solo file immagine (PNG, JPG, WebP, ecc.).")
		}
		if len(image.Data) > MaxStagedImageBytes {
			return newValidationError("Una delle immagini supera i 2 MB consentiti in area di staging.")
		}
	}
	return nil
}

// StageUpload stages a new upload or merges into an existing staged
// slug; image name collisions within the slug are resolved with
// numeric suffixes. The write fails closed when the budget would be
// exceeded.
func (s *StagingService) StageUpload(input StagedUploadInput) error {
	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		return newValidationError("Slug mancante per la modifica da mettere in coda.")
	}
	if err := validateStagedImages(input.Images); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing db.PendingUpload
		err := tx.Preload("Images").Where("slug = ?", slug).First(&existing).Error
		isNew := errors.Is(err, gorm.ErrRecordNotFound)
		if err != nil && !isNew {
			return err
		}

		if isNew {
			existing = db.PendingUpload{Slug: slug}
		}
		if input.Title != "" {
			existing.Title = input.Title
		}
		if input.Markdown != "" {
			existing.Markdown = input.Markdown
		}

		used := map[string]bool{}
		for _, image := range existing.Images {
			used[image.Name] = true
		}
		for _, image := range input.Images {
			name := EnsureUniqueName(image.Name, used)
			existing.Images = append(existing.Images, db.PendingImage{
				Name:        name,
				ContentType: image.ContentType,
				Size:        int64(len(image.Data)),
				Data:        image.Data,
			})
		}

		if err := s.assertBudget(tx, existing, isNew); err != nil {
			return err
		}

		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(&existing).Error
	})
}

// stagedBytes sums the serialized size of everything currently staged,
// leaving out the upload registered under skipSlug when set.
func stagedBytes(tx *gorm.DB, skipSlug string) (int64, error) {
	var uploads []db.PendingUpload
	if err := tx.Preload("Images").Find(&uploads).Error; err != nil {
		return 0, err
	}
	var deletes []db.PendingDelete
	if err := tx.Find(&deletes).Error; err != nil {
		return 0, err
	}

	var total int64
	for _, upload := range uploads {
		if skipSlug != "" && upload.Slug == skipSlug {
			continue
		}
		total += stagedUploadSize(upload)
	}
	for _, del := range deletes {
		total += int64(len(del.Slug))
	}
	return total, nil
}

func budgetExceededError() error {
	return newValidationError("Le modifiche in coda superano il limite di 4 MB: pubblica o rimuovi elementi prima di aggiungerne altri.")
}

// assertBudget recomputes the post-insertion serialized size and
// rejects the write when it would cross the ceiling.
func (s *StagingService) assertBudget(tx *gorm.DB, candidate db.PendingUpload, isNew bool) error {
	skip := ""
	if !isNew {
		skip = candidate.Slug
	}
	total, err := stagedBytes(tx, skip)
	if err != nil {
		return err
	}
	if total+stagedUploadSize(candidate) > MaxStagingBytes {
		return budgetExceededError()
	}
	return nil
}

// StageDelete schedules an article folder for deletion at publish time.
// Deletes count against the same staging budget as uploads.
func (s *StagingService) StageDelete(slug string) error {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return newValidationError("Slug mancante per l'eliminazione da mettere in coda.")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing db.PendingDelete
		err := tx.Where("slug = ?", trimmed).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		total, err := stagedBytes(tx, "")
		if err != nil {
			return err
		}
		if total+int64(len(trimmed)) > MaxStagingBytes {
			return budgetExceededError()
		}
		return tx.Create(&db.PendingDelete{Slug: trimmed}).Error
	})
}

// RemoveUpload discards a staged upload and its images.
func (s *StagingService) RemoveUpload(slug string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var upload db.PendingUpload
		if err := tx.Where("slug = ?", slug).First(&upload).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newValidationError("Nessuna modifica in coda per %q.", slug)
			}
			return err
		}
		if err := tx.Where("pending_upload_id = ?", upload.ID).Delete(&db.PendingImage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&upload).Error
	})
}

// RemoveDelete unschedules a staged folder deletion.
func (s *StagingService) RemoveDelete(slug string) error {
	result := s.db.Where("slug = ?", slug).Delete(&db.PendingDelete{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return newValidationError("Nessuna eliminazione in coda per %q.", slug)
	}
	return nil
}

// Clear drops every staged change.
func (s *StagingService) Clear() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&db.PendingImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&db.PendingUpload{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&db.PendingDelete{}).Error
	})
}

// Publish pushes every staged change to the backing store. A store
// that supports batch commits gets one commit for the whole set;
// otherwise writes and deletions run sequentially. On success the
// staging area is cleared; on failure everything stays staged.
func (s *StagingService) Publish(ctx context.Context, st store.Store) error {
	uploads, deletes, err := s.List()
	if err != nil {
		return err
	}
	if len(uploads) == 0 && len(deletes) == 0 {
		return newValidationError("Non ci sono modifiche in coda da pubblicare.")
	}

	var puts []store.BatchPut
	for _, upload := range uploads {
		base := store.ArticlesRoot + "/" + upload.Slug + "/"
		if upload.Markdown != "" {
			puts = append(puts, store.BatchPut{
				Path:        base + store.CanonicalFilename,
				Content:     []byte(upload.Markdown),
				ContentType: "text/markdown",
			})
		}
		for _, image := range upload.Images {
			puts = append(puts, store.BatchPut{
				Path:        base + image.Name,
				Content:     image.Data,
				ContentType: image.ContentType,
			})
		}
	}

	var deletePaths []string
	for _, del := range deletes {
		entries, err := st.ListTree(ctx, store.ArticlesRoot+"/"+del.Slug)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			deletePaths = append(deletePaths, entry.Path)
		}
	}

	if batch, ok := st.(store.BatchWriter); ok {
		if err := batch.PublishBatch(ctx, "Publish staged changes", puts, deletePaths); err != nil {
			return fmt.Errorf("publish staged changes: %w", err)
		}
	} else {
		for _, put := range puts {
			if _, err := st.Put(ctx, put.Path, put.Content, put.ContentType); err != nil {
				return fmt.Errorf("publish %s: %w", put.Path, err)
			}
		}
		for _, path := range deletePaths {
			if err := st.Delete(ctx, path); err != nil {
				return fmt.Errorf("delete %s: %w", path, err)
			}
		}
	}

	return s.Clear()
}
