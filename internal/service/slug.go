package service

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// FallbackSlug 在标题归一化后为空时使用。
const FallbackSlug = "untitled"

var (
	nonAlphanumericRun = regexp.MustCompile(`[^a-z0-9]+`)
	invalidNameRun     = regexp.MustCompile(`[^a-z0-9._-]+`)
)

// Slugify derives the canonical URL slug from a title: lower-case,
// runs of non-alphanumerics collapsed to single hyphens, trimmed of
// leading and trailing hyphens. Callers fall back to FallbackSlug on
// an empty result.
func Slugify(title string) string {
	lowered := strings.ToLower(strings.TrimSpace(title))
	hyphenated := nonAlphanumericRun.ReplaceAllString(lowered, "-")
	return strings.Trim(hyphenated, "-")
}

// SanitizeFileName normalizes an uploaded filename to a safe asset
// name; fallback replaces names that normalize to nothing.
func SanitizeFileName(name, fallback string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	lowered := strings.ToLower(base)
	cleaned := invalidNameRun.ReplaceAllString(lowered, "-")
	cleaned = strings.Trim(cleaned, "-.")
	if cleaned == "" || strings.HasPrefix(cleaned, ".") {
		ext := strings.ToLower(path.Ext(base))
		return fallback + ext
	}
	return cleaned
}

// EnsureUniqueName resolves filename collisions by suffixing -1, -2, …
// before the extension, and records the final choice in used.
func EnsureUniqueName(name string, used map[string]bool) string {
	if !used[name] {
		used[name] = true
		return name
	}

	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, i, ext)
		if !used[candidate] {
			used[candidate] = true
			return candidate
		}
	}
}
