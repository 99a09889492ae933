package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cosecasa/internal/service"
	"github.com/cosecasa/internal/store"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// respondActionError 把服务层错误映射成对调用方安全的 JSON 状态对象。
func respondActionError(c *gin.Context, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message})
	case errors.Is(err, store.ErrMissingCredentials):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "La configurazione del backend di archiviazione è incompleta."})
	case errors.Is(err, store.ErrObjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Il file richiesto non esiste più."})
	default:
		log.Printf("action failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Operazione non riuscita. Riprova."})
	}
}

func parsePositiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
