package handler

import (
	"gorm.io/gorm"

	"github.com/cosecasa/internal/config"
	"github.com/cosecasa/internal/service"
	"github.com/cosecasa/internal/store"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	cfg      config.AppConfig
	store    store.Store
	articles *service.ArticleService
	admin    *service.AdminService
	staging  *service.StagingService
}

// NewAPI constructs a handler set with shared services.
func NewAPI(cfg config.AppConfig, st store.Store, gdb *gorm.DB) *API {
	return &API{
		cfg:      cfg,
		store:    st,
		articles: service.NewArticleService(st),
		admin:    service.NewAdminService(st),
		staging:  service.NewStagingService(gdb),
	}
}
