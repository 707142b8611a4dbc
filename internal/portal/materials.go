package portal

import (
	"context"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// 课程文件链接的路径特征
const fileLinkMarker = "bbcswebdav"

// FileLink 课程栏目中的一个文件
type FileLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// File 下载得到的课程文件
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

// findSectionLinks 课程主页中名称在 sections 中的栏目链接，按 URL 去重
func findSectionLinks(doc *goquery.Document, base *url.URL, sections []string) []string {
	want := make(map[string]struct{}, len(sections))
	for _, s := range sections {
		want[s] = struct{}{}
	}

	var out []string
	seen := map[string]struct{}{}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		span := a.Find("span").First()
		title, _ := span.Attr("title")
		text := strippedText(a, "")
		if span.Length() > 0 {
			text = strippedText(span, "")
		}
		_, byTitle := want[title]
		_, byText := want[text]
		if !byTitle && !byText {
			return
		}
		href, _ := a.Attr("href")
		abs, ok := resolveHref(base, href)
		if !ok {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	})
	return out
}

// findFileLinks 栏目页中的文件链接
// 可见文本常以图标的 alt "文件" 开头，需要去掉
func findFileLinks(doc *goquery.Document, base *url.URL) []FileLink {
	var out []FileLink
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.Contains(href, fileLinkMarker) {
			return
		}
		abs, ok := resolveHref(base, href)
		if !ok {
			return
		}
		name := strings.TrimSpace(strings.TrimPrefix(strippedText(a, ""), "文件"))
		out = append(out, FileLink{Name: name, URL: abs})
	})
	return out
}

// ListCourseFiles 列出课程指定栏目（如"课程讲义"）下的文件，按 URL 去重
// 单个栏目页失败只记录日志
func (s *Scraper) ListCourseFiles(ctx context.Context, sess Session, entryURL string, sections []string) ([]FileLink, error) {
	doc, base, err := fetchDocument(ctx, sess, entryURL)
	if err != nil {
		return nil, err
	}

	files := []FileLink{}
	seen := map[string]struct{}{}
	for _, sectionURL := range findSectionLinks(doc, base, sections) {
		secDoc, secBase, err := fetchDocument(ctx, sess, sectionURL)
		if err != nil {
			s.logger.Warn("访问课程栏目失败", zap.String("url", sectionURL), zap.Error(err))
			continue
		}
		for _, f := range findFileLinks(secDoc, secBase) {
			if _, dup := seen[f.URL]; dup {
				continue
			}
			seen[f.URL] = struct{}{}
			files = append(files, f)
		}
	}
	return files, nil
}

// DownloadFile 下载课程文件
func (s *Scraper) DownloadFile(ctx context.Context, sess Session, link FileLink) (*File, error) {
	if sess == nil {
		return nil, ErrNilSession
	}
	page, err := sess.Get(ctx, link.URL)
	if err != nil {
		return nil, err
	}
	contentType := page.Header.Get("Content-Type")
	return &File{
		Name:        filenameFor(page.Header.Get("Content-Disposition"), contentType, page.URL, link),
		ContentType: contentType,
		Body:        page.Body,
	}, nil
}

// filenameFor 文件名优先取 Content-Disposition，其次取 URL 路径；
// 没有扩展名时按 Content-Type 补全
func filenameFor(disposition, contentType string, finalURL *url.URL, link FileLink) string {
	var name string
	if _, params, err := mime.ParseMediaType(disposition); err == nil {
		name = params["filename"]
	}
	if name == "" && finalURL != nil {
		name, _ = url.PathUnescape(path.Base(finalURL.Path))
	}
	if name == "" || name == "/" || name == "." {
		name = link.Name
	}
	if path.Ext(name) == "" {
		ct := strings.ToLower(contentType)
		switch {
		case strings.Contains(ct, "pdf"):
			name += ".pdf"
		case strings.Contains(ct, "word"):
			name += ".docx"
		case strings.Contains(ct, "powerpoint"), strings.Contains(ct, "presentation"):
			name += ".pptx"
		default:
			name += ".bin"
		}
	}
	return name
}
