package store

import (
	"regexp"
	"strings"
	"time"
)

// CanonicalFilename 是每篇文章目录下必须存在的正文文件名。
const CanonicalFilename = "text.md"

// ArticlesRoot 是后端存储中文章目录的根前缀。
const ArticlesRoot = "articles"

// EntryType distinguishes files from directories in a listing.
type EntryType string

const (
	EntryFile EntryType = "file"
	EntryDir  EntryType = "dir"
)

// AssetEntry describes a file or directory under a prefix in the
// backing store. Directories carry no size or URL.
type AssetEntry struct {
	Path       string     `json:"path"`
	Name       string     `json:"name"`
	Type       EntryType  `json:"type"`
	Size       int64      `json:"size,omitempty"`
	UploadedAt *time.Time `json:"uploadedAt,omitempty"`
	URL        string     `json:"url,omitempty"`
}

var imagePattern = regexp.MustCompile(`(?i)\.(png|jpe?g|webp|gif|svg)$`)

// IsImageFile reports whether the filename matches one of the
// recognized image extensions, case-insensitively.
func IsImageFile(name string) bool {
	return imagePattern.MatchString(name)
}

// IsCanonicalFile reports whether the entry name is the article body file.
func IsCanonicalFile(name string) bool {
	return name == CanonicalFilename
}

// NormalizePath trims surrounding slashes and whitespace so the two
// adapters agree on path shape.
func NormalizePath(path string) string {
	return strings.Trim(strings.TrimSpace(path), "/")
}
