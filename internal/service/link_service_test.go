package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"studydesk/backend/internal/dto"
)

func TestLinkService(t *testing.T) {
	repo, _ := newTestRepos()
	svc := NewLinkService(repo, zap.NewNop())
	ctx := context.Background()

	a, err := svc.Create(ctx, "u1", &dto.CreateLinkRequest{Title: "教学网", URL: "https://course.pku.edu.cn", Category: "学习"})
	if err != nil {
		t.Fatalf("创建失败: %v", err)
	}
	_, _ = svc.Create(ctx, "u1", &dto.CreateLinkRequest{Title: "树洞", URL: "https://treehole.pku.edu.cn", Category: "生活"})

	all, _ := svc.List(ctx, "u1", &dto.LinkListRequest{})
	if len(all) != 2 {
		t.Errorf("期望 2 条链接，实际 %d", len(all))
	}
	study, _ := svc.List(ctx, "u1", &dto.LinkListRequest{Category: "学习"})
	if len(study) != 1 || study[0].ID != a.ID {
		t.Errorf("按分类过滤错误: %+v", study)
	}

	title := "北大教学网"
	got, err := svc.Update(ctx, "u1", a.ID, &dto.UpdateLinkRequest{Title: &title})
	if err != nil {
		t.Fatalf("更新失败: %v", err)
	}
	if got.Title != title || got.URL != "https://course.pku.edu.cn" {
		t.Errorf("更新结果错误: %+v", got)
	}

	if _, err := svc.Update(ctx, "u2", a.ID, &dto.UpdateLinkRequest{Title: &title}); !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("期望 ErrLinkNotFound，实际 %v", err)
	}
	if err := svc.Delete(ctx, "u1", a.ID); err != nil {
		t.Fatalf("删除失败: %v", err)
	}
	if err := svc.Delete(ctx, "u1", a.ID); !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("期望 ErrLinkNotFound，实际 %v", err)
	}
}
