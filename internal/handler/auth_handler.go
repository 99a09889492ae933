package handler

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const sessionEmailKey = "admin_email"

// ShowLoginPage describes the login form for the admin client.
func (a *API) ShowLoginPage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"title":  "Accesso amministratore",
		"fields": []string{"email", "password"},
	})
}

// Login 校验口令并确认邮箱在管理员白名单内后建立会话。
func (a *API) Login(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")

	if a.cfg.AdminPasswordHash == "" {
		respondError(c, http.StatusInternalServerError, "Configura ADMIN_PASSWORD_HASH prima di accedere all'area admin.")
		return
	}
	if !a.cfg.IsAdminEmail(email) {
		respondError(c, http.StatusUnauthorized, "Email o password non corretti.")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.cfg.AdminPasswordHash), []byte(password)); err != nil {
		respondError(c, http.StatusUnauthorized, "Email o password non corretti.")
		return
	}

	session := sessions.Default(c)
	session.Set(sessionEmailKey, strings.ToLower(email))
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "Impossibile salvare la sessione.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "redirectTo": "/admin"})
}

// Logout clears the admin session.
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()
	c.JSON(http.StatusOK, gin.H{"success": true, "redirectTo": "/admin/login"})
}

// AuthRequired rejects any request without a session whose email is on
// the allow-list. The check runs on every admin request so removing an
// address from the list locks existing sessions out too.
func (a *API) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		email, _ := session.Get(sessionEmailKey).(string)
		if email == "" || !a.cfg.IsAdminEmail(email) {
			respondError(c, http.StatusUnauthorized, "Non sei autenticato.")
			c.Abort()
			return
		}
		c.Next()
	}
}
