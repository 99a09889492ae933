package service

import (
	"context"
	"sort"
	"strings"

	"github.com/cosecasa/internal/store"
)

// fakeStore is an in-memory Store used across the service tests.
type fakeStore struct {
	files   map[string]string
	baseURL string

	listErr error
	puts    []string
	deletes []string
}

func newFakeStore(files map[string]string) *fakeStore {
	if files == nil {
		files = map[string]string{}
	}
	return &fakeStore{files: files, baseURL: "https://cdn.test"}
}

func (f *fakeStore) ListDirectory(_ context.Context, path string) ([]store.AssetEntry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}

	prefix := store.NormalizePath(path)
	if prefix != "" {
		prefix += "/"
	}

	seenDirs := map[string]bool{}
	var entries []store.AssetEntry
	for _, filePath := range f.sortedPaths() {
		if !strings.HasPrefix(filePath, prefix) {
			continue
		}
		relative := strings.TrimPrefix(filePath, prefix)
		if idx := strings.Index(relative, "/"); idx >= 0 {
			dir := relative[:idx]
			if !seenDirs[dir] {
				seenDirs[dir] = true
				entries = append(entries, store.AssetEntry{Path: prefix + dir, Name: dir, Type: store.EntryDir})
			}
			continue
		}
		entries = append(entries, store.AssetEntry{
			Path: filePath,
			Name: relative,
			Type: store.EntryFile,
			Size: int64(len(f.files[filePath])),
			URL:  f.baseURL + "/" + filePath,
		})
	}
	return entries, nil
}

func (f *fakeStore) ListTree(_ context.Context, prefix string) ([]store.AssetEntry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}

	normalized := store.NormalizePath(prefix)
	if normalized != "" {
		normalized += "/"
	}

	var entries []store.AssetEntry
	for _, filePath := range f.sortedPaths() {
		if !strings.HasPrefix(filePath, normalized) {
			continue
		}
		name := filePath
		if idx := strings.LastIndex(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		entries = append(entries, store.AssetEntry{
			Path: filePath,
			Name: name,
			Type: store.EntryFile,
			Size: int64(len(f.files[filePath])),
			URL:  f.baseURL + "/" + filePath,
		})
	}
	return entries, nil
}

func (f *fakeStore) ReadFile(_ context.Context, path string) (string, error) {
	content, ok := f.files[store.NormalizePath(path)]
	if !ok {
		return "", store.ErrObjectNotFound
	}
	return content, nil
}

func (f *fakeStore) RawURL(path string) string {
	normalized := store.NormalizePath(path)
	if normalized == "" {
		return f.baseURL
	}
	return f.baseURL + "/" + normalized
}

func (f *fakeStore) Put(_ context.Context, path string, content []byte, _ string) (store.AssetEntry, error) {
	normalized := store.NormalizePath(path)
	f.files[normalized] = string(content)
	f.puts = append(f.puts, normalized)

	name := normalized
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return store.AssetEntry{
		Path: normalized,
		Name: name,
		Type: store.EntryFile,
		Size: int64(len(content)),
		URL:  f.baseURL + "/" + normalized,
	}, nil
}

func (f *fakeStore) Delete(_ context.Context, path string) error {
	normalized := store.NormalizePath(path)
	if _, ok := f.files[normalized]; !ok {
		return store.ErrObjectNotFound
	}
	delete(f.files, normalized)
	f.deletes = append(f.deletes, normalized)
	return nil
}

func (f *fakeStore) sortedPaths() []string {
	paths := make([]string, 0, len(f.files))
	for path := range f.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
