package db

import "gorm.io/gorm"

// PendingUpload 是尚未发布到后端存储的暂存文章。
type PendingUpload struct {
	gorm.Model
	Slug     string `gorm:"uniqueIndex"`
	Title    string
	Markdown string
	Images   []PendingImage `gorm:"constraint:OnDelete:CASCADE"`
}

// PendingImage is one staged image, held inline until publishing.
type PendingImage struct {
	gorm.Model
	PendingUploadID uint `gorm:"index"`
	Name            string
	ContentType     string
	Size            int64
	Data            []byte
}

// PendingDelete marks an article slug scheduled for folder deletion.
type PendingDelete struct {
	gorm.Model
	Slug string `gorm:"uniqueIndex"`
}
