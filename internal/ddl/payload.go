package ddl

import (
	"fmt"
	"slices"
)

// UserID 可作为用户标识的类型，统一转为字符串
type UserID interface {
	~string | ~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64
}

// DeadlinePayload 交给批量更新接口的数据，构造后不再修改
type DeadlinePayload struct {
	UserID    string           `json:"userId"`
	Deadlines []DeadlineRecord `json:"deadlines"`
}

// BuildPayload 组装 payload，deadlines 为 nil 时输出空数组
func BuildPayload[ID UserID](userID ID, deadlines []DeadlineRecord) DeadlinePayload {
	records := slices.Clone(deadlines)
	if records == nil {
		records = []DeadlineRecord{}
	}
	return DeadlinePayload{
		UserID:    fmt.Sprint(userID),
		Deadlines: records,
	}
}
