package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/otravers/otravers/backend/go-services/internal/apperr"
	"github.com/otravers/otravers/backend/go-services/internal/auth"
	"github.com/otravers/otravers/backend/go-services/internal/config"
	"github.com/otravers/otravers/backend/go-services/internal/tokens"
	"github.com/otravers/otravers/backend/go-services/internal/users"
	"github.com/otravers/otravers/backend/go-services/pkg/middleware"
	"github.com/otravers/otravers/backend/go-services/pkg/response"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest is the body of PUT /auth/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	auth          *auth.Service
	users         *users.Service
	secureCookies bool
	accessMaxAge  time.Duration
	refreshMaxAge time.Duration
}

func NewAuthHandler(cfg *config.Config, a *auth.Service, u *users.Service) *AuthHandler {
	h := &AuthHandler{
		auth:          a,
		users:         u,
		secureCookies: cfg.IsProduction(),
		accessMaxAge:  cfg.JWT.AccessTokenTTL,
		refreshMaxAge: cfg.JWT.RefreshTokenTTL,
	}
	if h.accessMaxAge <= 0 {
		h.accessMaxAge = tokens.DefaultAccessTTL
	}
	if h.refreshMaxAge <= 0 {
		h.refreshMaxAge = tokens.DefaultRefreshTTL
	}
	return h
}

// Register routes under /auth. Public routes run behind g.Public, routes that
// need a logged-in user behind g.Protected.
func (h *AuthHandler) Register(rg *gin.RouterGroup, g Guards) {
	a := rg.Group("/auth")
	a.POST("/register", g.public(h.SignUp)...)
	a.POST("/login", g.public(h.Login)...)
	a.POST("/refresh", g.public(h.Refresh)...)
	a.GET("/profile", g.protected(h.Profile)...)
	a.PATCH("/profile", g.protected(h.UpdateProfile)...)
	a.POST("/logout", g.protected(h.Logout)...)
	a.PUT("/password", g.protected(h.ChangePassword)...)
	a.DELETE("/account", g.protected(h.DeleteAccount)...)
}

func (h *AuthHandler) setCookie(c *gin.Context, name, value string, maxAge time.Duration) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, value, int(maxAge/time.Second), "/", "", h.secureCookies, true)
}

func (h *AuthHandler) clearCookie(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, "", -1, "/", "", h.secureCookies, true)
}

// Login checks credentials and sets both token cookies.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperr.New(apperr.KindValidation, "Email and password are required"))
		return
	}
	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.setCookie(c, middleware.AccessCookie, res.AccessToken, h.accessMaxAge)
	h.setCookie(c, middleware.RefreshCookie, res.RefreshToken, h.refreshMaxAge)
	response.OK(c, http.StatusOK, "Login successful", res)
}

// Refresh reads the refresh cookie and sets a new access cookie.
func (h *AuthHandler) Refresh(c *gin.Context) {
	raw, _ := c.Cookie(middleware.RefreshCookie)
	res, err := h.auth.Refresh(c.Request.Context(), raw)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.setCookie(c, middleware.AccessCookie, res.AccessToken, h.accessMaxAge)
	response.OK(c, http.StatusOK, "Token refreshed successfully", res)
}

func (h *AuthHandler) Profile(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		response.Error(c, apperr.ErrAuthenticationRequired)
		return
	}
	profile, err := h.auth.Profile(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Profile retrieved successfully", profile)
}

// Logout always succeeds for an authenticated caller and clears both cookies.
func (h *AuthHandler) Logout(c *gin.Context) {
	if claims, ok := middleware.ClaimsFrom(c); ok {
		h.auth.Logout(c.Request.Context(), claims.SessionID)
	}
	h.clearCookie(c, middleware.AccessCookie)
	h.clearCookie(c, middleware.RefreshCookie)
	response.OK(c, http.StatusOK, "Logout successful", nil)
}

// SignUp creates an account. It does not log the user in.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var in users.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, apperr.New(apperr.KindValidation, "Invalid request body"))
		return
	}
	u, err := h.users.Register(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, "User Has been created", u.Public())
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		response.Error(c, apperr.ErrAuthenticationRequired)
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperr.New(apperr.KindValidation, "Current and new password are required"))
		return
	}
	if err := h.users.ChangePassword(c.Request.Context(), claims.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Password updated successfully", nil)
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		response.Error(c, apperr.ErrAuthenticationRequired)
		return
	}
	var in users.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, apperr.New(apperr.KindValidation, "Invalid request body"))
		return
	}
	u, err := h.users.UpdateProfile(c.Request.Context(), claims.UserID, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, "User has been updated", u.Public())
}

// DeleteAccount removes the caller's user, ends the current session and clears
// the cookies. Other sessions of the user fail their next refresh.
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		response.Error(c, apperr.ErrAuthenticationRequired)
		return
	}
	if err := h.users.Delete(c.Request.Context(), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	h.auth.Logout(c.Request.Context(), claims.SessionID)
	h.clearCookie(c, middleware.AccessCookie)
	h.clearCookie(c, middleware.RefreshCookie)
	response.OK(c, http.StatusOK, "User has been deleted", nil)
}
