package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"studydesk/backend/internal/dto"
	"studydesk/backend/internal/service"
	"studydesk/backend/pkg/response"
)

const refreshCookieName = "refresh_token"

// CookieOptions refresh token Cookie 设置
type CookieOptions struct {
	Path   string
	MaxAge int // 秒，0 表示会话 Cookie
	Secure bool
}

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
	cookie  CookieOptions
}

// NewAuthHandler 创建 AuthHandler，cookie 为 nil 时使用默认设置
func NewAuthHandler(authSvc service.AuthService, cookie *CookieOptions) *AuthHandler {
	opts := CookieOptions{Path: "/api/v1/auth"}
	if cookie != nil {
		opts = *cookie
		if opts.Path == "" {
			opts.Path = "/api/v1/auth"
		}
	}
	return &AuthHandler{authSvc: authSvc, cookie: opts}
}

// Register 注册
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.authSvc.Register(c.Request.Context(), &req)
	if err != nil {
		handleAuthError(c, err)
		return
	}
	response.Created(c, user)
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	response.OK(c, result)
}

// RefreshToken 刷新 Token
// POST /api/v1/auth/refresh
// refresh token 优先取请求体，其次取 Cookie
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshTokenRequest
	_ = c.ShouldBindJSON(&req)
	token := req.RefreshToken
	if token == "" {
		token, _ = c.Cookie(refreshCookieName)
	}
	if token == "" {
		response.BadRequest(c, 10001, "缺少 refresh token")
		return
	}

	result, err := h.authSvc.RefreshToken(c.Request.Context(), token)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	response.OK(c, result)
}

// Logout 登出
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	jti, exp, ok := tokenInfo(c)
	if !ok {
		return
	}

	var req dto.RefreshTokenRequest
	_ = c.ShouldBindJSON(&req)
	refresh := req.RefreshToken
	if refresh == "" {
		refresh, _ = c.Cookie(refreshCookieName)
	}

	if err := h.authSvc.Logout(c.Request.Context(), jti, exp, refresh); err != nil {
		response.InternalError(c)
		return
	}

	h.setRefreshCookie(c, "")
	response.OK(c, nil)
}

// GetCurrentUser 当前用户信息
// GET /api/v1/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	user, err := h.authSvc.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		handleAuthError(c, err)
		return
	}
	response.OK(c, user)
}

// setRefreshCookie value 为空时清除 Cookie
func (h *AuthHandler) setRefreshCookie(c *gin.Context, value string) {
	maxAge := h.cookie.MaxAge
	if value == "" {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, value, maxAge, h.cookie.Path, "", h.cookie.Secure, true)
}

func handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, 11001, "学号或密码错误")
	case errors.Is(err, service.ErrInvalidRefreshToken):
		response.Error(c, http.StatusUnauthorized, 11002, err.Error())
	case errors.Is(err, service.ErrStudentIDTaken):
		response.Conflict(c, 11003, err.Error())
	case errors.Is(err, service.ErrEmailTaken):
		response.Conflict(c, 11004, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 11005, err.Error())
	default:
		response.InternalError(c)
	}
}
