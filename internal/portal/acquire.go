package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"studydesk/backend/config"
)

// ErrAuthFailed 无法建立已认证会话
var ErrAuthFailed = errors.New("教学网认证失败")

// Credentials 会话凭证，Cookie 非空时优先使用
type Credentials struct {
	Username string
	Password string
	Cookie   string // 浏览器导出的 Cookie 头，形如 "a=1; b=2"
}

// Acquirer 根据凭证建立已认证会话
// 失败时返回的错误包装 ErrAuthFailed
type Acquirer interface {
	Acquire(ctx context.Context, creds Credentials) (Session, error)
}

// ── 共享工具 ──

func newJarSession(cfg *config.PortalConfig) (*HTTPSession, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return NewHTTPSession(jar, cfg.RequestTimeout, cfg.UserAgent), nil
}

// verifySession 访问教学网首页，被重定向到统一认证主机即视为未登录
func verifySession(ctx context.Context, sess *HTTPSession, cfg *config.PortalConfig) error {
	page, err := sess.Get(ctx, cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	if host := cfg.SSO.LoginHost; host != "" && (page.URL.Host == host || page.URL.Hostname() == host) {
		return fmt.Errorf("%w: 会话被重定向到登录页", ErrAuthFailed)
	}
	return nil
}

// parseCookieHeader 解析 "name=value; name2=value2"
func parseCookieHeader(header string) []*http.Cookie {
	var cookies []*http.Cookie
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || strings.TrimSpace(name) == "" {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
	}
	return cookies
}

// ── Cookie 方式 ──

// CookieAcquirer 使用浏览器中已登录的 Cookie 构造会话
type CookieAcquirer struct {
	cfg    *config.PortalConfig
	logger *zap.Logger
}

func NewCookieAcquirer(cfg *config.PortalConfig, logger *zap.Logger) *CookieAcquirer {
	return &CookieAcquirer{cfg: cfg, logger: logger}
}

func (a *CookieAcquirer) Acquire(ctx context.Context, creds Credentials) (Session, error) {
	cookies := parseCookieHeader(creds.Cookie)
	if len(cookies) == 0 {
		return nil, fmt.Errorf("%w: Cookie 为空", ErrAuthFailed)
	}
	base, err := url.Parse(a.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("portal.base_url 非法: %w", err)
	}

	sess, err := newJarSession(a.cfg)
	if err != nil {
		return nil, err
	}
	sess.client.Jar.SetCookies(base, cookies)

	if err := verifySession(ctx, sess, a.cfg); err != nil {
		a.logger.Warn("Cookie 会话无效", zap.Error(err))
		return nil, err
	}
	return sess, nil
}

// ── 统一身份认证方式 ──

type ssoReply struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	Errors  struct {
		Msg string `json:"msg"`
	} `json:"errors"`
}

// SSOAcquirer 通过统一身份认证的 OAuth 登录接口换取 token，
// 再访问教学网的回调地址拿到会话 Cookie
type SSOAcquirer struct {
	cfg    *config.PortalConfig
	logger *zap.Logger
}

func NewSSOAcquirer(cfg *config.PortalConfig, logger *zap.Logger) *SSOAcquirer {
	return &SSOAcquirer{cfg: cfg, logger: logger}
}

func (a *SSOAcquirer) Acquire(ctx context.Context, creds Credentials) (Session, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, fmt.Errorf("%w: 用户名或密码为空", ErrAuthFailed)
	}
	sess, err := newJarSession(a.cfg)
	if err != nil {
		return nil, err
	}

	token, err := a.login(ctx, sess.client, creds)
	if err != nil {
		a.logger.Warn("统一身份认证失败", zap.String("username", creds.Username), zap.Error(err))
		return nil, err
	}

	callback, err := url.Parse(a.cfg.SSO.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("portal.sso.redirect_url 非法: %w", err)
	}
	q := callback.Query()
	q.Set("_rand", strconv.FormatFloat(rand.Float64(), 'f', -1, 64))
	q.Set("token", token)
	callback.RawQuery = q.Encode()

	if _, err := sess.Get(ctx, callback.String()); err != nil {
		return nil, fmt.Errorf("%w: 回调失败: %v", ErrAuthFailed, err)
	}
	if err := verifySession(ctx, sess, a.cfg); err != nil {
		return nil, err
	}

	a.logger.Info("教学网登录成功", zap.String("username", creds.Username))
	return sess, nil
}

func (a *SSOAcquirer) login(ctx context.Context, client *http.Client, creds Credentials) (string, error) {
	form := url.Values{
		"appid":    {a.cfg.SSO.AppID},
		"userName": {creds.Username},
		"password": {creds.Password},
		"randCode": {""},
		"smsCode":  {""},
		"otpCode":  {""},
		"redirUrl": {a.cfg.SSO.RedirectURL},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.SSO.LoginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if a.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", a.cfg.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	var reply ssoReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return "", fmt.Errorf("%w: 无法解析认证响应", ErrAuthFailed)
	}
	if !reply.Success || reply.Token == "" {
		return "", fmt.Errorf("%w: %s", ErrAuthFailed, reply.Errors.Msg)
	}
	return reply.Token, nil
}

// ── 组合 ──

// AutoAcquirer 有 Cookie 时走 Cookie 方式，否则走统一身份认证
type AutoAcquirer struct {
	Cookie *CookieAcquirer
	SSO    *SSOAcquirer
}

func NewAutoAcquirer(cfg *config.PortalConfig, logger *zap.Logger) *AutoAcquirer {
	return &AutoAcquirer{
		Cookie: NewCookieAcquirer(cfg, logger),
		SSO:    NewSSOAcquirer(cfg, logger),
	}
}

func (a *AutoAcquirer) Acquire(ctx context.Context, creds Credentials) (Session, error) {
	if strings.TrimSpace(creds.Cookie) != "" {
		return a.Cookie.Acquire(ctx, creds)
	}
	return a.SSO.Acquire(ctx, creds)
}
