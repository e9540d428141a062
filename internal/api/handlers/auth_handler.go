package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/kestrelsec/warden/internal/api/middleware"
	"github.com/kestrelsec/warden/internal/services"
)

// AuthHandler exposes the session lifecycle over HTTP. Every route it serves
// sits behind the protection middleware, so by the time these run the
// request has already been allowed through the pipeline.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// isProduction checks if we're running in production mode
func isProduction() bool {
	env := os.Getenv("WARDEN_ENV")
	return env == "production" || env == "prod"
}

// setSecureCookie sets an auth cookie with security best practices
// - HttpOnly: prevents JavaScript access (XSS protection)
// - Secure: only sent over HTTPS (in production)
// - SameSite=Strict: prevents CSRF attacks
func setSecureCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, value, maxAge, "/", "", isProduction(), true)
}

func clearSecureCookie(c *gin.Context, name string) {
	setSecureCookie(c, name, "", -1)
}

// authError maps a session-lifecycle error to a status and a stable,
// enumerable error code. Anything unmapped is an internal error and stays
// opaque to the client.
func authError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrDuplicateIdentity):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "duplicate_identity"})
	case errors.Is(err, services.ErrInvalidCredentialFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_credential_format"})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "invalid_credentials"})
	case errors.Is(err, services.ErrNoActiveSession):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "no_active_session"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

// SignUp registers a new identity and returns a session token for it.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_credential_format"})
		return
	}

	user, token, err := h.authService.SignUp(req.Email, req.Password, req.Name)
	if err != nil {
		authError(c, err)
		return
	}

	setSecureCookie(c, middleware.AuthCookieName, token, 3600*24)
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SignIn validates credentials and returns a fresh session token.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_credential_format"})
		return
	}

	token, err := h.authService.SignIn(req.Email, req.Password)
	if err != nil {
		authError(c, err)
		return
	}

	setSecureCookie(c, middleware.AuthCookieName, token, 3600*24)
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// SignOut revokes the caller's session. Deliberately not behind the auth
// middleware: signing out with an invalid or already-revoked token is a
// successful no-op.
func (h *AuthHandler) SignOut(c *gin.Context) {
	token := middleware.TokenFromRequest(c)
	if token != "" {
		if err := h.authService.SignOut(token); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
	}

	clearSecureCookie(c, middleware.AuthCookieName)
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

// Me returns the authenticated caller's identity.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := h.authService.GetUserByID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": user.ID,
		"email":   user.Email,
		"name":    user.Name,
	})
}
