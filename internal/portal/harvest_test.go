package portal

import (
	"context"
	"sort"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func threeCoursePortal() *fakeSession {
	return newFakeSession().
		page(testBase, landingPage).
		page("https://course.example.edu/course/1", courseHome("1")).
		page("https://course.example.edu/course/1/assignments", assignmentsPage("性健康作业一", "性健康作业二")).
		page("https://course.example.edu/course/2", courseHome("2")).
		fail("https://course.example.edu/course/2/assignments", 500).
		page("https://course.example.edu/course/3", courseHome("3")).
		page("https://course.example.edu/course/3/assignments", assignmentsPage("太极拳视频"))
}

func TestHarvestAllAssignments_PerCourseFaultIsolation(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := NewScraper(testPortalConfig(), zap.New(core))

	items := s.HarvestAllAssignments(context.Background(), threeCoursePortal())

	if len(items) != 3 {
		t.Fatalf("期望课程 1 与 3 共 3 条作业，实际 %d: %+v", len(items), items)
	}
	var titles []string
	for _, it := range items {
		if it.CourseName == "软件工程" {
			t.Errorf("失败课程不应贡献条目: %+v", it)
		}
		titles = append(titles, it.Title)
	}
	sort.Strings(titles)
	want := []string{"太极拳视频", "性健康作业一", "性健康作业二"}
	sort.Strings(want)
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("作业标题不符: %v vs %v", titles, want)
			break
		}
	}

	failed := logs.FilterMessage("课程作业抓取失败").All()
	if len(failed) != 1 {
		t.Fatalf("期望 1 条课程失败日志，实际 %d", len(failed))
	}
	if got := failed[0].ContextMap()["course"]; got != "软件工程" {
		t.Errorf("失败日志应带课程名，实际 %v", got)
	}
}

func TestHarvestAllAssignments_CourseWithoutAssignments(t *testing.T) {
	sess := threeCoursePortal().
		page("https://course.example.edu/course/3", `<html><body><a href="/x"><span title="通知">通知</span></a></body></html>`)
	s := NewScraper(testPortalConfig(), zap.NewNop())

	items := s.HarvestAllAssignments(context.Background(), sess)
	if len(items) != 2 {
		t.Errorf("没有作业栏目的课程应贡献零条，期望 2 条，实际 %d", len(items))
	}
}

func TestHarvestAllAssignments_LandingFetchedOnce(t *testing.T) {
	sess := threeCoursePortal()
	s := NewScraper(testPortalConfig(), zap.NewNop())

	s.HarvestAllAssignments(context.Background(), sess)
	if n := sess.callCount(testBase); n != 1 {
		t.Errorf("落地页应只请求一次，实际 %d", n)
	}
}

func TestHarvestAllAssignments_NilSession(t *testing.T) {
	s := NewScraper(testPortalConfig(), zap.NewNop())

	items := s.HarvestAllAssignments(context.Background(), nil)
	if items == nil || len(items) != 0 {
		t.Errorf("会话为空时应返回空切片，实际 %v", items)
	}
}

func TestHarvestAllAssignments_NoCourseList(t *testing.T) {
	sess := newFakeSession().page(testBase, "<html></html>").page(testLanding, "<html></html>")
	s := NewScraper(testPortalConfig(), zap.NewNop())

	if items := s.HarvestAllAssignments(context.Background(), sess); len(items) != 0 {
		t.Errorf("没有课程时应返回零条，实际 %d", len(items))
	}
}
