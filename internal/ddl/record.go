// Package ddl 把抓取到的原始作业文本交给大模型整理成结构化的 DDL 记录
package ddl

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedReply   = errors.New("大模型回复格式错误")
	ErrMissingDeadlines = errors.New("大模型回复缺少 deadlines 数组")
)

// DeadlineLayout deadline 字段的格式（北京时间，24 小时制）
const DeadlineLayout = "2006-01-02 15:04"

// Status 紧急程度
type Status int

const (
	StatusUrgent    Status = 0
	StatusNotUrgent Status = 1
)

// UnmarshalJSON 只接受 0/1（数字或字符串），其余一律视为不紧急
func (s *Status) UnmarshalJSON(b []byte) error {
	switch strings.TrimSpace(string(b)) {
	case "0", `"0"`:
		*s = StatusUrgent
	default:
		*s = StatusNotUrgent
	}
	return nil
}

// DeadlineRecord 一条结构化的 DDL
type DeadlineRecord struct {
	Name     string  `json:"name"`
	Deadline *string `json:"deadline"` // nil 表示无法确定
	Message  string  `json:"message"`
	Status   Status  `json:"status"`
}

// UnmarshalJSON 字段类型不符时报错；status 缺失时取 StatusNotUrgent
func (r *DeadlineRecord) UnmarshalJSON(b []byte) error {
	var wire struct {
		Name     *string `json:"name"`
		Deadline *string `json:"deadline"`
		Message  *string `json:"message"`
		Status   *Status `json:"status"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	if wire.Name == nil {
		return fmt.Errorf("%w: 记录缺少 name", ErrMalformedReply)
	}

	*r = DeadlineRecord{Name: *wire.Name, Deadline: wire.Deadline, Status: StatusNotUrgent}
	if wire.Message != nil {
		r.Message = *wire.Message
	}
	if wire.Status != nil {
		r.Status = *wire.Status
	}
	return nil
}

type reply struct {
	Deadlines *[]DeadlineRecord `json:"deadlines"`
}

// stripCodeFence 去掉模型偶尔包在外面的 ```json 代码块
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.Contains(s[:i], "{") {
		s = s[i+1:] // 语言标记行
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

// decodeReply 解析模型回复，整个回复视为一个原子 JSON 文档：
// 任意一条记录类型不符都会让整批失败
func decodeReply(content string) ([]DeadlineRecord, error) {
	body := stripCodeFence(content)
	if !strings.HasPrefix(body, "{") {
		return nil, fmt.Errorf("%w: 回复不是 JSON 对象", ErrMalformedReply)
	}

	dec := json.NewDecoder(strings.NewReader(body))
	var r reply
	if err := dec.Decode(&r); err != nil {
		if errors.Is(err, ErrMalformedReply) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: JSON 之后还有多余内容", ErrMalformedReply)
	}
	if r.Deadlines == nil {
		return nil, ErrMissingDeadlines
	}
	return *r.Deadlines, nil
}
