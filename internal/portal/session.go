package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// maxPageSize 单个页面读取上限
const maxPageSize = 32 << 20

// ErrPageTooLarge 响应体超过读取上限
var ErrPageTooLarge = errors.New("响应体超过读取上限")

// Page 一次 GET 请求的结果，URL 为跟随重定向后的最终地址
type Page struct {
	URL    *url.URL
	Status int
	Header http.Header
	Body   []byte
}

// Session 已认证的教学网会话
// 实现必须支持并发调用：同一个会话会被多个课程任务共享
type Session interface {
	Get(ctx context.Context, rawURL string) (*Page, error)
}

// StatusError 非 2xx 响应
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Status)
}

// HTTPSession 基于 net/http 与 cookie jar 的会话实现
// http.Client 与 cookiejar.Jar 均为并发安全
type HTTPSession struct {
	client    *http.Client
	userAgent string
	maxBody   int64
}

// NewHTTPSession 创建会话，timeout 为单次请求上限（含重定向）
func NewHTTPSession(jar http.CookieJar, timeout time.Duration, userAgent string) *HTTPSession {
	return &HTTPSession{
		client:    &http.Client{Jar: jar, Timeout: timeout},
		userAgent: userAgent,
		maxBody:   maxPageSize,
	}
}

// Get 获取页面，跟随重定向；非 2xx 返回 *StatusError，超过读取上限返回 ErrPageTooLarge
func (s *HTTPSession) Get(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("构造请求失败: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, s.maxBody))
		return nil, &StatusError{URL: rawURL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}
	if int64(len(body)) > s.maxBody {
		return nil, fmt.Errorf("GET %s: %w (%d 字节)", rawURL, ErrPageTooLarge, s.maxBody)
	}

	return &Page{
		URL:    resp.Request.URL,
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
	}, nil
}

// Client 底层 http.Client，登录流程需要发送 POST
func (s *HTTPSession) Client() *http.Client { return s.client }
