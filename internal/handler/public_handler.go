package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cosecasa/internal/service"
)

const catalogContextKey = "__catalog"

// WithCatalog 在每次请求开始时装配一次文章集合，整个请求周期内
// 复用，结束后丢弃，避免跨请求的隐藏状态。
// 装配整体失败（凭据缺失、后端不可用）时中止请求并返回错误，
// 单篇文章的故障已在装配阶段被隔离。
func (a *API) WithCatalog() gin.HandlerFunc {
	return func(c *gin.Context) {
		articles, err := a.articles.FetchAll(c.Request.Context())
		if err != nil {
			respondActionError(c, err)
			c.Abort()
			return
		}
		c.Set(catalogContextKey, service.NewCatalog(articles))
		c.Next()
	}
}

func (a *API) catalog(c *gin.Context) *service.Catalog {
	if cached, exists := c.Get(catalogContextKey); exists {
		if catalog, ok := cached.(*service.Catalog); ok {
			return catalog
		}
	}
	return service.NewCatalog(nil)
}

// ShowHome serves the landing collection: featured articles plus the
// full date-ordered list.
func (a *API) ShowHome(c *gin.Context) {
	catalog := a.catalog(c)
	c.JSON(http.StatusOK, gin.H{
		"featured": catalog.Featured(parsePositiveInt(c.Query("featured"), 6)),
		"articles": catalog.All(),
		"tags":     catalog.AllTags(),
	})
}

func isKnownCategory(category string) bool {
	for _, known := range service.Categories {
		if category == known {
			return true
		}
	}
	return false
}

// ShowCategory serves one category page, optionally narrowed to a
// subcategory via query string.
func (a *API) ShowCategory(c *gin.Context) {
	category := c.Param("category")
	if !isKnownCategory(category) {
		respondError(c, http.StatusNotFound, "Categoria non trovata.")
		return
	}

	catalog := a.catalog(c)

	articles := catalog.ByCategory(category)
	subcategory := strings.TrimSpace(c.Query("subcategory"))
	if subcategory != "" {
		articles = catalog.BySubcategory(category, subcategory)
	}

	c.JSON(http.StatusOK, gin.H{
		"category":      category,
		"subcategory":   subcategory,
		"subcategories": catalog.Subcategories(category),
		"articles":      articles,
	})
}

// ShowArticle serves the article detail with its related selection.
func (a *API) ShowArticle(c *gin.Context) {
	category := c.Param("category")
	if !isKnownCategory(category) {
		respondError(c, http.StatusNotFound, "Categoria non trovata.")
		return
	}

	catalog := a.catalog(c)
	article, found := catalog.BySlug(category, c.Param("slug"))
	if !found {
		respondError(c, http.StatusNotFound, "Articolo non trovato.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"article": article,
		"related": catalog.Related(article, 3),
	})
}

// Search serves free-text search over the collection.
func (a *API) Search(c *gin.Context) {
	query := c.Query("q")
	results := a.catalog(c).Search(query)
	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"count":   len(results),
		"results": results,
	})
}

// ShowAbout serves the static about payload.
func (a *API) ShowAbout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"title":       "Cosecasa",
		"description": "Storie di cose, case e persone.",
		"baseURL":     a.cfg.SiteBaseURL,
	})
}
