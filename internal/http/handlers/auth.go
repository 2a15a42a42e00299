package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/feridsherif/crms-frontend/internal/domain"
	"github.com/feridsherif/crms-frontend/internal/http/middleware"
	"github.com/feridsherif/crms-frontend/internal/utils"
)

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/auth/login
func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = strings.TrimSpace(req.Email)
	}

	cred, err := a.Auth.Authenticate(requestContext(c), username, req.Password)
	if err != nil {
		utils.LogEvent(a.Logger, middleware.GetRequestID(c), "auth", "login", "rejected: "+username)
		RespondDomainError(c, err)
		return
	}
	token, cred, err := a.Sessions.Issue(requestContext(c), cred)
	if err != nil {
		utils.LogError(a.Logger, middleware.GetRequestID(c), "auth", "issue", err)
		RespondDomainError(c, domain.InternalError{Msg: "could not issue session", Err: err})
		return
	}

	a.setSessionCookie(c, token, int(a.Env.Session.TTL.Seconds()))
	utils.LogEvent(a.Logger, middleware.GetRequestID(c), "auth", "login", "signed in: "+cred.SubjectID)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login success",
		"token":   token,
		"user":    cred,
	})
}

// POST /api/auth/logout
func (a *API) Logout(c *gin.Context) {
	token := middleware.SessionToken(c, a.Env.Session.Cookie)
	if err := a.Sessions.Revoke(requestContext(c), token); err != nil {
		utils.LogError(a.Logger, middleware.GetRequestID(c), "auth", "revoke", err)
	}
	a.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Logout success"})
}

// GET /api/auth/session
func (a *API) Session(c *gin.Context) {
	cred := middleware.GetSession(c)
	if cred == nil || cred.Expired(a.now()) {
		RespondDomainError(c, domain.UnauthorizedError{Msg: "session expired"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cred})
}

func (a *API) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(a.Env.Session.Cookie, value, maxAge, "/", "", a.Env.Session.CookieSecure, true)
}
