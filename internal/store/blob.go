package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const blobListPageSize = 1000

// BlobStore talks to the blob object-storage REST API: paginated
// prefix listing, public puts and deletes, all authorized by a single
// read-write token.
type BlobStore struct {
	apiURL string
	token  string
	client *http.Client

	mu         sync.Mutex
	publicBase string
}

// NewBlobStore 创建 Blob 适配器。token 为空时所有操作都会返回
// ErrMissingCredentials。
func NewBlobStore(apiURL, token string) *BlobStore {
	return &BlobStore{
		apiURL: strings.TrimRight(apiURL, "/"),
		token:  token,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type blobListItem struct {
	URL        string     `json:"url"`
	Pathname   string     `json:"pathname"`
	Size       int64      `json:"size"`
	UploadedAt *time.Time `json:"uploadedAt"`
}

type blobListResponse struct {
	Blobs   []blobListItem `json:"blobs"`
	Cursor  string         `json:"cursor"`
	HasMore bool           `json:"hasMore"`
}

// listAll accumulates every blob under prefix, following the opaque
// cursor until the listing is exhausted.
func (s *BlobStore) listAll(ctx context.Context, prefix string) ([]blobListItem, error) {
	if s.token == "" {
		return nil, ErrMissingCredentials
	}

	var all []blobListItem
	cursor := ""
	for {
		q := url.Values{}
		if prefix != "" {
			q.Set("prefix", prefix)
		}
		if cursor != "" {
			q.Set("cursor", cursor)
		}
		q.Set("limit", strconv.Itoa(blobListPageSize))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL+"?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+s.token)

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("list blobs: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, &APIError{Op: "list", Path: prefix, Status: resp.StatusCode}
		}

		var page blobListResponse
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decode blob listing: %w", err)
		}

		all = append(all, page.Blobs...)

		if len(page.Blobs) > 0 {
			s.rememberPublicBase(page.Blobs[0].URL)
		}

		if !page.HasMore || page.Cursor == "" {
			return all, nil
		}
		cursor = page.Cursor
	}
}

// rememberPublicBase caches the public origin shared by every blob so
// RawURL can be answered without a further API call.
func (s *BlobStore) rememberPublicBase(blobURL string) {
	u, err := url.Parse(blobURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return
	}
	s.mu.Lock()
	s.publicBase = u.Scheme + "://" + u.Host
	s.mu.Unlock()
}

// ListDirectory lists the immediate children of path: flat blobs whose
// first remaining segment has a slash become a single directory entry.
func (s *BlobStore) ListDirectory(ctx context.Context, path string) ([]AssetEntry, error) {
	prefix := NormalizePath(path)
	if prefix != "" {
		prefix += "/"
	}

	blobs, err := s.listAll(ctx, prefix)
	if err != nil {
		return nil, err
	}

	seenDirs := map[string]bool{}
	var entries []AssetEntry
	for _, blob := range blobs {
		relative := strings.TrimPrefix(blob.Pathname, prefix)
		if relative == "" {
			continue
		}
		if idx := strings.Index(relative, "/"); idx >= 0 {
			dir := relative[:idx]
			if !seenDirs[dir] {
				seenDirs[dir] = true
				entries = append(entries, AssetEntry{
					Path: prefix + dir,
					Name: dir,
					Type: EntryDir,
				})
			}
			continue
		}
		entries = append(entries, AssetEntry{
			Path:       blob.Pathname,
			Name:       relative,
			Type:       EntryFile,
			Size:       blob.Size,
			UploadedAt: blob.UploadedAt,
			URL:        blob.URL,
		})
	}
	return entries, nil
}

// ListTree returns every blob under prefix; the flat blob namespace
// makes this a single paginated listing.
func (s *BlobStore) ListTree(ctx context.Context, prefix string) ([]AssetEntry, error) {
	normalized := NormalizePath(prefix)
	if normalized != "" {
		normalized += "/"
	}

	blobs, err := s.listAll(ctx, normalized)
	if err != nil {
		return nil, err
	}

	entries := make([]AssetEntry, 0, len(blobs))
	for _, blob := range blobs {
		name := blob.Pathname
		if idx := strings.LastIndex(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		entries = append(entries, AssetEntry{
			Path:       blob.Pathname,
			Name:       name,
			Type:       EntryFile,
			Size:       blob.Size,
			UploadedAt: blob.UploadedAt,
			URL:        blob.URL,
		})
	}
	return entries, nil
}

// ReadFile fetches the blob content via its public URL.
func (s *BlobStore) ReadFile(ctx context.Context, path string) (string, error) {
	normalized := NormalizePath(path)

	blobs, err := s.listAll(ctx, normalized)
	if err != nil {
		return "", err
	}

	var target *blobListItem
	for i := range blobs {
		if blobs[i].Pathname == normalized {
			target = &blobs[i]
			break
		}
	}
	if target == nil {
		return "", ErrObjectNotFound
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("read blob %q: %w", normalized, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Op: "read", Path: normalized, Status: resp.StatusCode}
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// RawURL resolves against the cached public origin; before any listing
// has run it falls back to the API base.
func (s *BlobStore) RawURL(path string) string {
	s.mu.Lock()
	base := s.publicBase
	s.mu.Unlock()
	if base == "" {
		base = s.apiURL
	}
	return base + "/" + NormalizePath(path)
}

type blobPutResponse struct {
	URL      string `json:"url"`
	Pathname string `json:"pathname"`
}

// Put uploads content at path with public access.
func (s *BlobStore) Put(ctx context.Context, path string, content []byte, contentType string) (AssetEntry, error) {
	if s.token == "" {
		return AssetEntry{}, ErrMissingCredentials
	}

	normalized := NormalizePath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.apiURL+"/"+normalized, bytes.NewReader(content))
	if err != nil {
		return AssetEntry{}, err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("X-Access", "public")
	if contentType != "" {
		req.Header.Set("X-Content-Type", contentType)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return AssetEntry{}, fmt.Errorf("put blob %q: %w", normalized, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return AssetEntry{}, &APIError{Op: "put", Path: normalized, Status: resp.StatusCode}
	}

	var result blobPutResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return AssetEntry{}, fmt.Errorf("decode put response: %w", err)
	}
	s.rememberPublicBase(result.URL)

	name := normalized
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return AssetEntry{
		Path: result.Pathname,
		Name: name,
		Type: EntryFile,
		Size: int64(len(content)),
		URL:  result.URL,
	}, nil
}

// Delete removes the blob at path. The API treats unknown pathnames as
// a silent no-op, so existence is checked first to honor the
// "deleting a missing object is a reported failure" contract.
func (s *BlobStore) Delete(ctx context.Context, path string) error {
	if s.token == "" {
		return ErrMissingCredentials
	}

	normalized := NormalizePath(path)
	blobs, err := s.listAll(ctx, normalized)
	if err != nil {
		return err
	}
	exists := false
	for _, blob := range blobs {
		if blob.Pathname == normalized {
			exists = true
			break
		}
	}
	if !exists {
		return ErrObjectNotFound
	}

	payload, err := json.Marshal(map[string][]string{"urls": {normalized}})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+"/delete", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete blob %q: %w", normalized, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return &APIError{Op: "delete", Path: normalized, Status: resp.StatusCode}
	}
	return nil
}
