package portal

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// ── 作业栏目定位 ──

// findAssignmentsLink 在课程主页中查找作业栏目链接，按顺序尝试：
//  1. <a> 内第一个 <span> 的 title 等于 label（左侧栏的标准结构）
//  2. <a> 自身的 title 等于 label
func findAssignmentsLink(doc *goquery.Document, label string) (string, bool) {
	var href string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if title, ok := a.Find("span").First().Attr("title"); ok && title == label {
			href, _ = a.Attr("href")
			return false
		}
		return true
	})
	if href != "" {
		return href, true
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if title, ok := a.Attr("title"); ok && strings.TrimSpace(title) == label {
			href, _ = a.Attr("href")
			return false
		}
		return true
	})
	return href, href != ""
}

// LocateAssignmentsPage 从课程主页定位作业栏目，返回其绝对地址
// 没有作业栏目的课程返回 ErrNoAssignmentsLink
func (s *Scraper) LocateAssignmentsPage(ctx context.Context, sess Session, entryURL string) (string, error) {
	doc, base, err := fetchDocument(ctx, sess, entryURL)
	if err != nil {
		return "", err
	}
	href, ok := findAssignmentsLink(doc, s.assignmentsLabel)
	if !ok {
		return "", ErrNoAssignmentsLink
	}
	abs, ok := resolveHref(base, href)
	if !ok {
		return "", ErrNoAssignmentsLink
	}
	return abs, nil
}

// ── 作业条目提取 ──

// titleSpans 带内联 style 且声明了标题颜色的 <span>
func titleSpans(doc *goquery.Document, color string) *goquery.Selection {
	return doc.Find("span[style]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		style, _ := s.Attr("style")
		return strings.Contains(normalizeStyle(style), color)
	})
}

// detailFromParent 父节点内的第一个 <div>
func detailFromParent(span *goquery.Selection) (string, bool) {
	div := span.Parent().Find("div").First()
	if div.Length() == 0 {
		return "", false
	}
	text := strippedText(div, " ")
	return text, text != ""
}

// detailFromFollowing 文档顺序中 span 之后的第一个 <div>
// 只看这一个：再往后的 div 属于下一条作业
func detailFromFollowing(span *goquery.Selection) (string, bool) {
	if span.Length() == 0 {
		return "", false
	}
	div := followingElement(span.Get(0), "div")
	if div == nil {
		return "", false
	}
	text := strippedText(goquery.NewDocumentFromNode(div).Selection, " ")
	return text, text != ""
}

// detailFor 依次尝试父节点、后续元素，都没有时返回 DetailNone
func detailFor(span *goquery.Selection) string {
	for _, find := range []func(*goquery.Selection) (string, bool){detailFromParent, detailFromFollowing} {
		if text, ok := find(span); ok {
			return text
		}
	}
	return DetailNone
}

// parseAssignmentItems 从作业页文档中提取条目
func parseAssignmentItems(doc *goquery.Document, color, courseName string) []RawAssignmentItem {
	items := []RawAssignmentItem{}
	titleSpans(doc, color).Each(func(_ int, span *goquery.Selection) {
		title := strippedText(span, "")
		if title == "" {
			return
		}
		if _, skip := nonItemLabels[title]; skip {
			return
		}
		items = append(items, RawAssignmentItem{
			CourseName: courseName,
			Title:      title,
			Detail:     detailFor(span),
		})
	})
	return items
}

// ExtractAssignmentItems 抓取作业页并提取作业条目
func (s *Scraper) ExtractAssignmentItems(ctx context.Context, sess Session, pageURL, courseName string) ([]RawAssignmentItem, error) {
	doc, _, err := fetchDocument(ctx, sess, pageURL)
	if err != nil {
		return nil, err
	}
	items := parseAssignmentItems(doc, s.titleColor, courseName)
	s.logger.Debug("提取作业条目",
		zap.String("course", courseName),
		zap.String("url", pageURL),
		zap.Int("count", len(items)),
	)
	return items, nil
}

// harvestCourse 单门课程：定位作业栏目，再提取条目
func (s *Scraper) harvestCourse(ctx context.Context, sess Session, course CourseRef) ([]RawAssignmentItem, error) {
	if course.EntryURL == "" {
		return nil, ErrMissingEntryURL
	}
	pageURL, err := s.LocateAssignmentsPage(ctx, sess, course.EntryURL)
	if err != nil {
		return nil, err
	}
	return s.ExtractAssignmentItems(ctx, sess, pageURL, course.Name)
}
