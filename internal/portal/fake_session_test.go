package portal

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"studydesk/backend/config"
)

// fakeSession 内存中的教学网，按 URL 返回固定页面
type fakeSession struct {
	mu     sync.Mutex
	pages  map[string]string
	status map[string]int
	calls  map[string]int
	delay  time.Duration
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		pages:  map[string]string{},
		status: map[string]int{},
		calls:  map[string]int{},
	}
}

func (f *fakeSession) page(rawURL, body string) *fakeSession {
	f.pages[rawURL] = body
	return f
}

func (f *fakeSession) fail(rawURL string, status int) *fakeSession {
	f.status[rawURL] = status
	return f
}

func (f *fakeSession) Get(ctx context.Context, rawURL string) (*Page, error) {
	f.mu.Lock()
	f.calls[rawURL]++
	body, ok := f.pages[rawURL]
	status := f.status[rawURL]
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if status != 0 {
		return nil, &StatusError{URL: rawURL, Status: status}
	}
	if !ok {
		return nil, &StatusError{URL: rawURL, Status: http.StatusNotFound}
	}
	u, _ := url.Parse(rawURL)
	return &Page{URL: u, Status: http.StatusOK, Header: http.Header{}, Body: []byte(body)}, nil
}

func (f *fakeSession) callCount(rawURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[rawURL]
}

const (
	testBase    = "https://course.example.edu/"
	testLanding = "https://course.example.edu/webapps/portal/tab"
)

func testPortalConfig() *config.PortalConfig {
	return &config.PortalConfig{
		BaseURL:          testBase,
		LandingURLs:      []string{testBase, testLanding},
		CourseListMarker: "coursefakeclass",
		AssignmentsLabel: "课程作业",
		TitleColor:       "color: #000000",
		RequestTimeout:   5 * time.Second,
	}
}

const landingPage = `<html><body>
<div id="module">
  <ul class="portletList-img courseListing coursefakeclass ">
    <li><a href="/course/1">25261-00011-04830040-0006160114-00-1: 人类的性、生育与健康(25-26学年第1学期)</a></li>
    <li><a href="/course/2">25261-00048-04834150-0006160114-00-1: 软件工程(25-26学年第1学期本研合上)</a></li>
    <li><a href="course/3"> 太极拳 </a></li>
  </ul>
</div>
</body></html>`

func courseHome(n string) string {
	return `<html><body><ul id="courseMenuPalette_contents">
  <li><a href="/course/` + n + `/announcements"><span title="通知">通知</span></a></li>
  <li><a href="/course/` + n + `/assignments"><span title="课程作业">课程作业</span></a></li>
</ul></body></html>`
}

func assignmentsPage(titles ...string) string {
	body := `<html><body><span style="color:#000000;">课程作业</span>`
	for _, t := range titles {
		body += `<li><h3><span style="color: #000000;">` + t + `</span></h3>
<div class="details"><p>` + t + `截止时间为2025年10月30日晚11:59分</p></div></li>`
	}
	return body + `</body></html>`
}
