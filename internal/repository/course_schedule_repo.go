package repository

import (
	"context"

	"gorm.io/gorm"

	"studydesk/backend/internal/model"
)

// CourseScheduleRepository 课表数据访问接口
type CourseScheduleRepository interface {
	ListByUser(ctx context.Context, userID string) ([]model.CourseSchedule, error)
	// ReplaceByUser 在事务中全量替换用户课表：先删除旧数据，再批量插入新数据
	ReplaceByUser(ctx context.Context, userID string, courses []model.CourseSchedule) error
}

type courseScheduleRepo struct {
	db *gorm.DB
}

// NewCourseScheduleRepo 创建 CourseScheduleRepository 实例
func NewCourseScheduleRepo(db *gorm.DB) CourseScheduleRepository {
	return &courseScheduleRepo{db: db}
}

func (r *courseScheduleRepo) ListByUser(ctx context.Context, userID string) ([]model.CourseSchedule, error) {
	var courses []model.CourseSchedule
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("day_of_week ASC, start_time ASC").
		Find(&courses).Error
	return courses, err
}

func (r *courseScheduleRepo) ReplaceByUser(ctx context.Context, userID string, courses []model.CourseSchedule) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.CourseSchedule{}).Error; err != nil {
			return err
		}
		if len(courses) > 0 {
			if err := tx.Create(&courses).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
