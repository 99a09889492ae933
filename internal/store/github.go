package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// GitHubConfig carries the repository coordinates and token for the
// Git-backed store.
type GitHubConfig struct {
	Token  string
	Owner  string
	Repo   string
	Branch string

	// APIBaseURL and RawBaseURL override the GitHub endpoints, used by
	// tests. Empty values select the public GitHub hosts.
	APIBaseURL string
	RawBaseURL string
}

// GitHubStore 通过 GitHub 内容 API 读写仓库中的文章目录，
// 批量发布则走 git data API（blob → tree → commit → ref）。
type GitHubStore struct {
	cfg     GitHubConfig
	apiBase string
	rawBase string
	client  *http.Client
}

// NewGitHubStore builds the Git-backed adapter. The token is mounted
// on the HTTP client via an oauth2 static token source.
func NewGitHubStore(cfg GitHubConfig) *GitHubStore {
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	apiBase := strings.TrimRight(cfg.APIBaseURL, "/")
	if apiBase == "" {
		apiBase = "https://api.github.com"
	}
	rawBase := strings.TrimRight(cfg.RawBaseURL, "/")
	if rawBase == "" {
		rawBase = "https://raw.githubusercontent.com"
	}

	var client *http.Client
	if cfg.Token != "" {
		source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		client = oauth2.NewClient(context.Background(), source)
	} else {
		client = http.DefaultClient
	}

	return &GitHubStore{cfg: cfg, apiBase: apiBase, rawBase: rawBase, client: client}
}

func (s *GitHubStore) configured() error {
	if s.cfg.Token == "" || s.cfg.Owner == "" || s.cfg.Repo == "" {
		return ErrMissingCredentials
	}
	return nil
}

func (s *GitHubStore) contentsURL(path string) string {
	escaped := url.PathEscape(NormalizePath(path))
	// PathEscape also escapes the separators we need to keep.
	escaped = strings.ReplaceAll(escaped, "%2F", "/")
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s", s.apiBase, s.cfg.Owner, s.cfg.Repo, escaped, url.QueryEscape(s.cfg.Branch))
}

func (s *GitHubStore) doJSON(ctx context.Context, method, rawURL string, body, out interface{}) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("github %s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode github response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

type githubContentEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	SHA         string `json:"sha"`
	Size        int64  `json:"size"`
	Type        string `json:"type"`
	Content     string `json:"content"`
	Encoding    string `json:"encoding"`
	DownloadURL string `json:"download_url"`
}

// ListDirectory lists the immediate children of path via the contents
// API. A missing directory lists as empty.
func (s *GitHubStore) ListDirectory(ctx context.Context, path string) ([]AssetEntry, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}

	var items []githubContentEntry
	status, err := s.doJSON(ctx, http.MethodGet, s.contentsURL(path), nil, &items)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, &APIError{Op: "list", Path: path, Status: status}
	}

	entries := make([]AssetEntry, 0, len(items))
	for _, item := range items {
		entry := AssetEntry{
			Path: item.Path,
			Name: item.Name,
			Size: item.Size,
			URL:  item.DownloadURL,
		}
		switch item.Type {
		case "dir":
			entry.Type = EntryDir
		case "file":
			entry.Type = EntryFile
			entry.URL = s.RawURL(item.Path)
		default:
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

type githubTreeResponse struct {
	Tree []struct {
		Path string `json:"path"`
		Type string `json:"type"`
		Size int64  `json:"size"`
		SHA  string `json:"sha"`
	} `json:"tree"`
	Truncated bool `json:"truncated"`
}

// ListTree walks the branch tree recursively and keeps blobs under
// prefix.
func (s *GitHubStore) ListTree(ctx context.Context, prefix string) ([]AssetEntry, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}

	treeURL := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1", s.apiBase, s.cfg.Owner, s.cfg.Repo, url.PathEscape(s.cfg.Branch))
	var tree githubTreeResponse
	status, err := s.doJSON(ctx, http.MethodGet, treeURL, nil, &tree)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, &APIError{Op: "tree", Path: prefix, Status: status}
	}

	normalized := NormalizePath(prefix)
	if normalized != "" {
		normalized += "/"
	}

	var entries []AssetEntry
	for _, item := range tree.Tree {
		if item.Type != "blob" {
			continue
		}
		if normalized != "" && !strings.HasPrefix(item.Path, normalized) {
			continue
		}
		name := item.Path
		if idx := strings.LastIndex(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		entries = append(entries, AssetEntry{
			Path: item.Path,
			Name: name,
			Type: EntryFile,
			Size: item.Size,
			URL:  s.RawURL(item.Path),
		})
	}
	return entries, nil
}

// ReadFile decodes the base64 payload served by the contents API.
func (s *GitHubStore) ReadFile(ctx context.Context, path string) (string, error) {
	if err := s.configured(); err != nil {
		return "", err
	}

	var item githubContentEntry
	status, err := s.doJSON(ctx, http.MethodGet, s.contentsURL(path), nil, &item)
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound {
		return "", ErrObjectNotFound
	}
	if status != http.StatusOK {
		return "", &APIError{Op: "read", Path: path, Status: status}
	}
	if item.Type != "" && item.Type != "file" {
		return "", ErrObjectNotFound
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(item.Content, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("decode file content %q: %w", path, err)
	}
	return string(decoded), nil
}

// RawURL points at the raw content host for the configured branch.
func (s *GitHubStore) RawURL(path string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", s.rawBase, s.cfg.Owner, s.cfg.Repo, s.cfg.Branch, NormalizePath(path))
}

// fileSHA resolves the current blob SHA for path, required by contents
// API updates and deletions. Returns empty when the file is absent.
func (s *GitHubStore) fileSHA(ctx context.Context, path string) (string, error) {
	var item githubContentEntry
	status, err := s.doJSON(ctx, http.MethodGet, s.contentsURL(path), nil, &item)
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound {
		return "", nil
	}
	if status != http.StatusOK {
		return "", &APIError{Op: "stat", Path: path, Status: status}
	}
	return item.SHA, nil
}

// Put creates or updates a single file through the contents API.
func (s *GitHubStore) Put(ctx context.Context, path string, content []byte, contentType string) (AssetEntry, error) {
	if err := s.configured(); err != nil {
		return AssetEntry{}, err
	}

	sha, err := s.fileSHA(ctx, path)
	if err != nil {
		return AssetEntry{}, err
	}

	payload := map[string]string{
		"message": fmt.Sprintf("Upload %s", NormalizePath(path)),
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  s.cfg.Branch,
	}
	if sha != "" {
		payload["sha"] = sha
	}

	status, err := s.doJSON(ctx, http.MethodPut, s.contentsURL(path), payload, nil)
	if err != nil {
		return AssetEntry{}, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return AssetEntry{}, &APIError{Op: "put", Path: path, Status: status}
	}

	normalized := NormalizePath(path)
	name := normalized
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return AssetEntry{
		Path: normalized,
		Name: name,
		Type: EntryFile,
		Size: int64(len(content)),
		URL:  s.RawURL(normalized),
	}, nil
}

// Delete removes a single file; a missing file reports
// ErrObjectNotFound so retried deletions fail loudly instead of
// crashing.
func (s *GitHubStore) Delete(ctx context.Context, path string) error {
	if err := s.configured(); err != nil {
		return err
	}

	sha, err := s.fileSHA(ctx, path)
	if err != nil {
		return err
	}
	if sha == "" {
		return ErrObjectNotFound
	}

	payload := map[string]string{
		"message": fmt.Sprintf("Delete %s", NormalizePath(path)),
		"sha":     sha,
		"branch":  s.cfg.Branch,
	}
	status, err := s.doJSON(ctx, http.MethodDelete, s.contentsURL(path), payload, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &APIError{Op: "delete", Path: path, Status: status}
	}
	return nil
}

type githubRefResponse struct {
	Object struct {
		SHA string `json:"sha"`
	} `json:"object"`
}

type githubCommitResponse struct {
	SHA  string `json:"sha"`
	Tree struct {
		SHA string `json:"sha"`
	} `json:"tree"`
}

type githubTreeEntry struct {
	Path string  `json:"path"`
	Mode string  `json:"mode"`
	Type string  `json:"type"`
	SHA  *string `json:"sha"`
}

// PublishBatch applies staged writes and deletions as a single commit:
// create a blob per write, build a tree on top of the branch head
// (deletions are tree entries with a null SHA), commit, then fast
// forward the branch ref.
func (s *GitHubStore) PublishBatch(ctx context.Context, message string, puts []BatchPut, deletePaths []string) error {
	if err := s.configured(); err != nil {
		return err
	}
	if len(puts) == 0 && len(deletePaths) == 0 {
		return nil
	}

	repoBase := fmt.Sprintf("%s/repos/%s/%s", s.apiBase, s.cfg.Owner, s.cfg.Repo)

	var ref githubRefResponse
	refURL := fmt.Sprintf("%s/git/ref/heads/%s", repoBase, url.PathEscape(s.cfg.Branch))
	status, err := s.doJSON(ctx, http.MethodGet, refURL, nil, &ref)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &APIError{Op: "get-ref", Path: s.cfg.Branch, Status: status}
	}
	headSHA := ref.Object.SHA

	var headCommit githubCommitResponse
	status, err = s.doJSON(ctx, http.MethodGet, fmt.Sprintf("%s/git/commits/%s", repoBase, headSHA), nil, &headCommit)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &APIError{Op: "get-commit", Path: headSHA, Status: status}
	}

	entries := make([]githubTreeEntry, 0, len(puts)+len(deletePaths))
	for _, put := range puts {
		var blob struct {
			SHA string `json:"sha"`
		}
		payload := map[string]string{
			"content":  base64.StdEncoding.EncodeToString(put.Content),
			"encoding": "base64",
		}
		status, err = s.doJSON(ctx, http.MethodPost, repoBase+"/git/blobs", payload, &blob)
		if err != nil {
			return err
		}
		if status != http.StatusCreated {
			return &APIError{Op: "create-blob", Path: put.Path, Status: status}
		}
		sha := blob.SHA
		entries = append(entries, githubTreeEntry{
			Path: NormalizePath(put.Path),
			Mode: "100644",
			Type: "blob",
			SHA:  &sha,
		})
	}
	for _, path := range deletePaths {
		entries = append(entries, githubTreeEntry{
			Path: NormalizePath(path),
			Mode: "100644",
			Type: "blob",
			SHA:  nil,
		})
	}

	var tree struct {
		SHA string `json:"sha"`
	}
	treePayload := map[string]interface{}{
		"base_tree": headCommit.Tree.SHA,
		"tree":      entries,
	}
	status, err = s.doJSON(ctx, http.MethodPost, repoBase+"/git/trees", treePayload, &tree)
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return &APIError{Op: "create-tree", Path: s.cfg.Branch, Status: status}
	}

	var commit struct {
		SHA string `json:"sha"`
	}
	commitPayload := map[string]interface{}{
		"message": message,
		"tree":    tree.SHA,
		"parents": []string{headSHA},
	}
	status, err = s.doJSON(ctx, http.MethodPost, repoBase+"/git/commits", commitPayload, &commit)
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return &APIError{Op: "create-commit", Path: s.cfg.Branch, Status: status}
	}

	updatePayload := map[string]interface{}{
		"sha":   commit.SHA,
		"force": false,
	}
	status, err = s.doJSON(ctx, http.MethodPatch, fmt.Sprintf("%s/git/refs/heads/%s", repoBase, url.PathEscape(s.cfg.Branch)), updatePayload, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &APIError{Op: "update-ref", Path: s.cfg.Branch, Status: status}
	}
	return nil
}
