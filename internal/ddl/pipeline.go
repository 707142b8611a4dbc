package ddl

import (
	"context"

	"studydesk/backend/internal/portal"
)

// Harvester 抓取全部原始作业条目
type Harvester interface {
	HarvestAllAssignments(ctx context.Context, sess portal.Session) []portal.RawAssignmentItem
}

// Pipeline 抓取 → 整理 → 组装
type Pipeline struct {
	harvester  Harvester
	normalizer *Normalizer
}

func NewPipeline(harvester Harvester, normalizer *Normalizer) *Pipeline {
	return &Pipeline{harvester: harvester, normalizer: normalizer}
}

// RunStats 一次运行的计数
type RunStats struct {
	Courses   int `json:"courses"` // 有作业条目的课程数
	RawItems  int `json:"raw_items"`
	Deadlines int `json:"deadlines"`
}

// Run 部分课程或批次失败不会报错，只会得到更少的记录
func (p *Pipeline) Run(ctx context.Context, sess portal.Session, userID string) (DeadlinePayload, RunStats) {
	items := p.harvester.HarvestAllAssignments(ctx, sess)
	records := p.normalizer.NormalizeDeadlines(ctx, items)
	return BuildPayload(userID, records), RunStats{
		Courses:   countCourses(items),
		RawItems:  len(items),
		Deadlines: len(records),
	}
}

func countCourses(items []portal.RawAssignmentItem) int {
	seen := make(map[string]struct{})
	for _, it := range items {
		seen[it.CourseName] = struct{}{}
	}
	return len(seen)
}
