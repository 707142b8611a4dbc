package ddl

import (
	"encoding/json"
	"testing"
)

func ptr(s string) *string { return &s }

func TestBuildPayload(t *testing.T) {
	records := []DeadlineRecord{
		{Name: "作业1", Deadline: ptr("2025-10-30 23:59"), Message: "m", Status: StatusUrgent},
		{Name: "作业2", Message: "n", Status: StatusNotUrgent},
	}

	p := BuildPayload("42", records)
	if p.UserID != "42" {
		t.Errorf("UserID 期望 42，实际 %q", p.UserID)
	}
	if len(p.Deadlines) != 2 || p.Deadlines[0].Name != "作业1" || *p.Deadlines[0].Deadline != "2025-10-30 23:59" {
		t.Errorf("deadlines 应原样保留: %+v", p.Deadlines)
	}

	records[0].Name = "被修改"
	if p.Deadlines[0].Name != "作业1" {
		t.Errorf("构造后的 payload 不应受调用方修改影响")
	}
}

func TestBuildPayload_CoercesIntegerUserID(t *testing.T) {
	if p := BuildPayload(42, nil); p.UserID != "42" {
		t.Errorf("整数 UserID 应转为 \"42\"，实际 %q", p.UserID)
	}
	if p := BuildPayload(uint64(7), nil); p.UserID != "7" {
		t.Errorf("无符号 UserID 应转为 \"7\"，实际 %q", p.UserID)
	}
}

func TestBuildPayload_JSONShape(t *testing.T) {
	b, err := json.Marshal(BuildPayload(42, nil))
	if err != nil {
		t.Fatalf("Marshal 失败: %v", err)
	}
	if string(b) != `{"userId":"42","deadlines":[]}` {
		t.Errorf("JSON 结构错误: %s", b)
	}
}
