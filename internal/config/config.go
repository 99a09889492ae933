package config

import (
	"fmt"
	"os"
	"strings"
)

// Backend selects which store implementation serves the articles.
type Backend string

const (
	BackendBlob   Backend = "blob"
	BackendGitHub Backend = "github"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr    string
	Port          string
	GinMode       string
	SessionSecret string
	SiteBaseURL   string

	StorageBackend Backend

	BlobAPIURL string
	BlobToken  string

	GitHubToken  string
	GitHubOwner  string
	GitHubRepo   string
	GitHubBranch string

	AdminEmails       []string
	AdminPasswordHash string

	StagingDatabasePath string
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	ginMode := strings.TrimSpace(os.Getenv("GIN_MODE"))
	if ginMode == "" {
		ginMode = "release"
	}

	sessionSecret := strings.TrimSpace(os.Getenv("SESSION_SECRET"))
	if sessionSecret == "" {
		sessionSecret = "cosecasa-dev-secret"
	}

	siteBaseURL := strings.TrimSpace(os.Getenv("SITE_BASE_URL"))
	if siteBaseURL == "" {
		siteBaseURL = "https://cosecasa.it"
	}

	blobAPIURL := strings.TrimSpace(os.Getenv("BLOB_API_URL"))
	if blobAPIURL == "" {
		blobAPIURL = "https://blob.vercel-storage.com"
	}

	githubBranch := strings.TrimSpace(os.Getenv("GITHUB_BRANCH"))
	if githubBranch == "" {
		githubBranch = "main"
	}

	stagingPath := strings.TrimSpace(os.Getenv("STAGING_DATABASE_PATH"))
	if stagingPath == "" {
		stagingPath = "cosecasa.db"
	}

	cfg := AppConfig{
		ListenAddr:          listenAddr,
		Port:                port,
		GinMode:             ginMode,
		SessionSecret:       sessionSecret,
		SiteBaseURL:         siteBaseURL,
		BlobAPIURL:          blobAPIURL,
		BlobToken:           strings.TrimSpace(os.Getenv("BLOB_READ_WRITE_TOKEN")),
		GitHubToken:         strings.TrimSpace(os.Getenv("GITHUB_TOKEN")),
		GitHubOwner:         strings.TrimSpace(os.Getenv("GITHUB_OWNER")),
		GitHubRepo:          strings.TrimSpace(os.Getenv("GITHUB_REPO")),
		GitHubBranch:        githubBranch,
		AdminEmails:         parseAdminEmails(os.Getenv("ADMIN_ALLOWED_EMAILS")),
		AdminPasswordHash:   strings.TrimSpace(os.Getenv("ADMIN_PASSWORD_HASH")),
		StagingDatabasePath: stagingPath,
	}

	cfg.StorageBackend = resolveBackend(os.Getenv("STORAGE_BACKEND"), cfg)

	return cfg
}

// resolveBackend honors an explicit STORAGE_BACKEND value, otherwise
// picks whichever store has credentials configured, preferring blob.
func resolveBackend(raw string, cfg AppConfig) Backend {
	switch Backend(strings.ToLower(strings.TrimSpace(raw))) {
	case BackendBlob:
		return BackendBlob
	case BackendGitHub:
		return BackendGitHub
	}

	if cfg.BlobToken != "" {
		return BackendBlob
	}
	if cfg.GitHubToken != "" && cfg.GitHubOwner != "" && cfg.GitHubRepo != "" {
		return BackendGitHub
	}
	return BackendBlob
}

func parseAdminEmails(raw string) []string {
	var emails []string
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.ToLower(strings.TrimSpace(part))
		if trimmed != "" {
			emails = append(emails, trimmed)
		}
	}
	return emails
}

// IsAdminEmail reports whether email is on the configured allow-list.
// An empty allow-list admits nobody.
func (c AppConfig) IsAdminEmail(email string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return false
	}
	for _, allowed := range c.AdminEmails {
		if allowed == trimmed {
			return true
		}
	}
	return false
}
