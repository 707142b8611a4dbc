package ddl

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeReply_StatusDefaults(t *testing.T) {
	content := `{"deadlines": [
		{"name": "缺失", "deadline": null, "message": ""},
		{"name": "空值", "deadline": null, "message": "", "status": null},
		{"name": "字符串0", "deadline": null, "message": "", "status": "0"},
		{"name": "数字0", "deadline": null, "message": "", "status": 0},
		{"name": "越界", "deadline": null, "message": "", "status": 7},
		{"name": "乱写", "deadline": null, "message": "", "status": "urgent"},
		{"name": "布尔", "deadline": null, "message": "", "status": true}
	]}`

	records, err := decodeReply(content)
	if err != nil {
		t.Fatalf("decodeReply 失败: %v", err)
	}
	want := map[string]Status{
		"缺失": StatusNotUrgent, "空值": StatusNotUrgent, "字符串0": StatusUrgent, "数字0": StatusUrgent,
		"越界": StatusNotUrgent, "乱写": StatusNotUrgent, "布尔": StatusNotUrgent,
	}
	for _, r := range records {
		if r.Status != want[r.Name] {
			t.Errorf("%s 的 status 期望 %d，实际 %d", r.Name, want[r.Name], r.Status)
		}
	}
}

func TestDecodeReply_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"prose", "抱歉，我无法完成", ErrMalformedReply},
		{"array", `[{"name": "x"}]`, ErrMalformedReply},
		{"truncated", `{"deadlines": [{"name": "x"`, ErrMalformedReply},
		{"trailing", `{"deadlines": []} 以上`, ErrMalformedReply},
		{"missing", `{"result": []}`, ErrMissingDeadlines},
		{"null", `{"deadlines": null}`, ErrMissingDeadlines},
		{"not list", `{"deadlines": "none"}`, ErrMalformedReply},
		{"name type", `{"deadlines": [{"name": 1, "deadline": null, "message": ""}]}`, ErrMalformedReply},
		{"deadline type", `{"deadlines": [{"name": "x", "deadline": 20251030, "message": ""}]}`, ErrMalformedReply},
		{"no name", `{"deadlines": [{"deadline": null, "message": ""}]}`, ErrMalformedReply},
		{"null record", `{"deadlines": [null]}`, ErrMalformedReply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeReply(tt.content); !errors.Is(err, tt.want) {
				t.Errorf("期望 %v，实际 %v", tt.want, err)
			}
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}```":       `{"a":1}`,
		"  {\"a\":1}  ":           `{"a":1}`,
		"```{\"a\":1}```":         `{"a":1}`,
	}
	for in, want := range tests {
		if got := stripCodeFence(in); got != want {
			t.Errorf("stripCodeFence(%q) = %q，期望 %q", in, got, want)
		}
	}
}

func TestDeadlineRecord_MarshalNullDeadline(t *testing.T) {
	b, err := json.Marshal(DeadlineRecord{Name: "x", Message: "m", Status: StatusNotUrgent})
	if err != nil {
		t.Fatalf("Marshal 失败: %v", err)
	}
	if string(b) != `{"name":"x","deadline":null,"message":"m","status":1}` {
		t.Errorf("序列化结果错误: %s", b)
	}
}
