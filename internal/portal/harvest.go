package portal

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"studydesk/backend/pkg/fanout"
)

// HarvestAllAssignments 并发抓取当前学期所有课程的作业条目
//
// 课程列表只请求一次；每门课程一个任务，任务之间互不取消。
// 单门课程失败只记录日志、贡献零条，返回结果的顺序没有意义。
func (s *Scraper) HarvestAllAssignments(ctx context.Context, sess Session) []RawAssignmentItem {
	dir, err := s.loadDirectory(ctx, sess)
	if err != nil {
		s.logger.Warn("抓取终止：无法获取课程列表", zap.Error(err))
		return []RawAssignmentItem{}
	}

	courses := dir.courses()
	entries := dir.entryURLs()

	tasks := make([]CourseRef, 0, len(courses))
	for _, c := range courses {
		idx := c.ID - 1
		if idx < 0 || idx >= len(entries) || entries[idx] == "" {
			s.logger.Warn("课程入口链接与课程序号不对齐，跳过",
				zap.Int("course_id", c.ID), zap.String("course", c.Name))
			continue
		}
		c.EntryURL = entries[idx]
		tasks = append(tasks, c)
	}

	results := fanout.Gather(ctx, tasks, 0, func(ctx context.Context, _ int, c CourseRef) ([]RawAssignmentItem, error) {
		return s.harvestCourse(ctx, sess, c)
	})

	items := fanout.Collect(results, func(i int, err error) {
		if errors.Is(err, ErrNoAssignmentsLink) {
			s.logger.Info("课程没有作业栏目，跳过",
				zap.Int("course_id", tasks[i].ID), zap.String("course", tasks[i].Name))
			return
		}
		s.logger.Warn("课程作业抓取失败",
			zap.Int("course_id", tasks[i].ID),
			zap.String("course", tasks[i].Name),
			zap.Error(err),
		)
	})

	s.logger.Info("作业抓取完成",
		zap.Int("courses", len(tasks)),
		zap.Int("items", len(items)),
	)
	return items
}
