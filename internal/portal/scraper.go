// Package portal 教学网（Blackboard）页面抓取
//
// 页面结构没有稳定的 schema，每一步定位都写成针对 goquery 文档的小函数，
// 按固定顺序尝试多个启发式规则，便于用固定 HTML 单独测试。
package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"studydesk/backend/config"
)

var (
	ErrNilSession         = errors.New("会话为空")
	ErrNoAssignmentsLink  = errors.New("课程主页没有作业栏目")
	ErrCourseListNotFound = errors.New("未找到当前学期课程列表")
	ErrMissingEntryURL    = errors.New("课程入口链接缺失")
)

// 作业页中与作业标题颜色相同、但不是作业的栏目标签
var nonItemLabels = map[string]struct{}{
	"课程作业":   {},
	"全部课程作业": {},
	"作业列表":   {},
}

// Scraper 教学网抓取器，自身无状态，可被多个 goroutine 共享
type Scraper struct {
	landingURLs      []string
	courseListMarker string
	assignmentsLabel string
	titleColor       string
	logger           *zap.Logger
}

// NewScraper 创建抓取器
func NewScraper(cfg *config.PortalConfig, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{
		landingURLs:      cfg.LandingURLs,
		courseListMarker: cfg.CourseListMarker,
		assignmentsLabel: cfg.AssignmentsLabel,
		titleColor:       normalizeStyle(cfg.TitleColor),
		logger:           logger,
	}
}

// fetchDocument 获取并解析页面，返回文档与最终 URL（用于解析相对链接）
func fetchDocument(ctx context.Context, sess Session, rawURL string) (*goquery.Document, *url.URL, error) {
	if sess == nil {
		return nil, nil, ErrNilSession
	}
	page, err := sess.Get(ctx, rawURL)
	if err != nil {
		return nil, nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, nil, fmt.Errorf("解析页面失败 %s: %w", rawURL, err)
	}

	base := page.URL
	if base == nil {
		if base, err = url.Parse(rawURL); err != nil {
			return nil, nil, fmt.Errorf("非法 URL %s: %w", rawURL, err)
		}
	}
	return doc, base, nil
}

// resolveHref 将 href 解析为相对 base 的绝对地址
func resolveHref(base *url.URL, href string) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	return base.ResolveReference(ref).String(), true
}

func normalizeStyle(style string) string {
	return strings.ToLower(strings.ReplaceAll(style, " ", ""))
}
