package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/cosecasa/internal/config"
	"github.com/cosecasa/internal/db"
	"github.com/cosecasa/internal/handler"
	"github.com/cosecasa/internal/router"
	"github.com/cosecasa/internal/store"
)

func main() {
	// .env 仅用于本地开发，线上直接注入环境变量
	_ = godotenv.Load()

	cfg := config.Load()

	gdb, err := db.Init(cfg.StagingDatabasePath)
	if err != nil {
		log.Fatalf("failed to initialize staging database: %v", err)
	}

	st := newStore(cfg)

	api := handler.NewAPI(cfg, st, gdb)
	r := router.SetupRouter(api, cfg)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}

// newStore 根据配置选择文章的后端存储实现。
func newStore(cfg config.AppConfig) store.Store {
	switch cfg.StorageBackend {
	case config.BackendGitHub:
		log.Printf("using github-backed article store (%s/%s@%s)", cfg.GitHubOwner, cfg.GitHubRepo, cfg.GitHubBranch)
		return store.NewGitHubStore(store.GitHubConfig{
			Token:  cfg.GitHubToken,
			Owner:  cfg.GitHubOwner,
			Repo:   cfg.GitHubRepo,
			Branch: cfg.GitHubBranch,
		})
	default:
		log.Printf("using blob-backed article store")
		return store.NewBlobStore(cfg.BlobAPIURL, cfg.BlobToken)
	}
}
