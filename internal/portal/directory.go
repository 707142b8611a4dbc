package portal

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// courseLink 课程列表中的一个链接
type courseLink struct {
	text string
	href string
}

// directory 从同一份落地页中解析出的课程列表
// 课程名与入口链接来自同一次遍历，序号天然对齐
type directory struct {
	base  *url.URL
	links []courseLink
}

// findCourseList 返回第一个 class 包含 marker 的 <ul>
func findCourseList(doc *goquery.Document, marker string) (*goquery.Selection, bool) {
	list := doc.Find("ul[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		return strings.Contains(class, marker)
	}).First()
	return list, list.Length() > 0
}

// collectCourseLinks 按文档顺序收集列表中所有带 href 的链接
func collectCourseLinks(list *goquery.Selection) []courseLink {
	var links []courseLink
	list.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		links = append(links, courseLink{
			text: strippedText(a, ""),
			href: href,
		})
	})
	return links
}

// courses 生成 CourseRef，ID 从 1 开始
func (d *directory) courses() []CourseRef {
	refs := make([]CourseRef, 0, len(d.links))
	entries := d.entryURLs()
	for i, l := range d.links {
		refs = append(refs, CourseRef{
			ID:       i + 1,
			Name:     ExtractPureName(l.text),
			EntryURL: entries[i],
		})
	}
	return refs
}

// entryURLs 课程入口的绝对地址，与 courses 一一对应；无法解析的 href 为空串
func (d *directory) entryURLs() []string {
	urls := make([]string, len(d.links))
	for i, l := range d.links {
		if u, ok := resolveHref(d.base, l.href); ok {
			urls[i] = u
		}
	}
	return urls
}

// loadDirectory 依次尝试候选落地页，命中课程列表即停止
func (s *Scraper) loadDirectory(ctx context.Context, sess Session) (*directory, error) {
	if sess == nil {
		return nil, ErrNilSession
	}
	for _, candidate := range s.landingURLs {
		doc, base, err := fetchDocument(ctx, sess, candidate)
		if err != nil {
			s.logger.Warn("访问课程落地页失败", zap.String("url", candidate), zap.Error(err))
			continue
		}
		list, ok := findCourseList(doc, s.courseListMarker)
		if !ok {
			continue
		}
		s.logger.Debug("找到当前学期课程列表", zap.String("url", base.String()))
		return &directory{base: base, links: collectCourseLinks(list)}, nil
	}
	return nil, ErrCourseListNotFound
}

// ListCurrentCourses 获取当前学期课程列表
// 会话为空或所有候选页都没有课程列表时返回空切片并记录日志
func (s *Scraper) ListCurrentCourses(ctx context.Context, sess Session) []CourseRef {
	dir, err := s.loadDirectory(ctx, sess)
	if err != nil {
		s.logger.Warn("获取当前学期课程列表失败", zap.Error(err))
		return []CourseRef{}
	}
	refs := dir.courses()
	s.logger.Info("当前学期课程列表", zap.Int("count", len(refs)))
	return refs
}
