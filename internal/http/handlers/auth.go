package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dae-backend/internal/http/response"
	"github.com/yungbote/dae-backend/internal/platform/apierr"
	"github.com/yungbote/dae-backend/internal/platform/ctxutil"
	"github.com/yungbote/dae-backend/internal/services"
)

type SessionCookieConfig struct {
	Name   string
	Domain string
	Secure bool
}

type AuthHandler struct {
	authService services.AuthService
	cookie      SessionCookieConfig
}

func NewAuthHandler(authService services.AuthService, cookie SessionCookieConfig) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "dae_session"
	}
	return &AuthHandler{authService: authService, cookie: cookie}
}

func (ah *AuthHandler) Nonce(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	challenge, err := ah.authService.IssueNonce(c.Request.Context(), req.Address)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, challenge)
}

func (ah *AuthHandler) Verify(c *gin.Context) {
	var req struct {
		Address   string `json:"address" binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	sess, err := ah.authService.Verify(c.Request.Context(), req.Address, req.Signature)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	ah.setCookie(c, sess.Token, int(time.Until(sess.ExpiresAt).Seconds()))
	response.RespondOK(c, gin.H{
		"address":    sess.Address,
		"expires_at": sess.ExpiresAt,
		"token":      sess.Token,
	})
}

func (ah *AuthHandler) Session(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil {
		response.RespondErr(c, apierr.Unauthorized("missing session"))
		return
	}
	response.RespondOK(c, gin.H{
		"address":    rd.Address,
		"expires_at": rd.ExpiresAt,
	})
}

// Logout drops the session cookie. Sessions are stateless JWTs, so a bearer
// token held elsewhere stays valid until it expires.
func (ah *AuthHandler) Logout(c *gin.Context) {
	ah.setCookie(c, "", -1)
	response.RespondOK(c, gin.H{"ok": true})
}

func (ah *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ah.cookie.Name, value, maxAge, "/", ah.cookie.Domain, ah.cookie.Secure, true)
}
