package ddl

import (
	"fmt"
	"strings"
	"time"

	"studydesk/backend/internal/portal"
)

const systemPromptTemplate = `你是一个帮助整理课程作业与DDL的助手。
当前时间（北京时间）是：%s。
你将看到若干原始条目，每条包含：课程名称、名称（作业名）、细则（包含截止时间说明等）。
你的任务是：提取清洗后的任务列表，统一输出为 JSON 对象，键名为 "deadlines"，对应一个数组，每个元素必须包含以下字段：
  - name: 任务名称（优先用条目中的"名称"，必要时可稍作精简；如果单看"名称"看不出是哪一门课程的，需要加上课程名称）。
  - deadline: 截止时间，统一格式为 "YYYY-MM-DD HH:MM"（24小时制）；如果无法确定具体时间，填 null。
  - message: 对任务的简短说明，可以直接使用"细则"或提炼一两句话。如果截止日期临近，可以加上催促完成的话语，注意基于当前北京时间进行判断。
  - status: 0 或 1。0 表示紧急（距离现在很近、即将到期或已过期），1 表示不紧急。如果无法判断，请默认 1。
要求：
  - 只输出一个 JSON 对象，键名必须是 "deadlines"，对应一个数组。
  - 不要输出任何额外解释、注释或多余文本。
  - 合理去重：同一个作业如果重复出现，只保留一条即可。
`

const userPromptTemplate = `下面是从教学平台爬取到的原始作业条目，请你按照上述要求进行清洗、解析并输出 JSON：

%s

请只返回 JSON 对象，例如：
{
  "deadlines": [
    { "name": "作业1", "deadline": "2025-12-01 23:59", "message": "完成第3章", "status": 0 },
    { "name": "Project Milestone", "deadline": "2025-12-15 12:00", "message": "提交原型", "status": 1 }
  ]
}
`

// systemPrompt 字段约定与当前本地时间
func systemPrompt(now time.Time) string {
	return fmt.Sprintf(systemPromptTemplate, now.Format(DeadlineLayout))
}

// userPrompt 把一批原始条目编号后拼接
func userPrompt(items []portal.RawAssignmentItem) string {
	blocks := make([]string, 0, len(items))
	for i, it := range items {
		blocks = append(blocks, fmt.Sprintf("[%d] 课程：%s\n名称：%s\n细则：%s", i+1, it.CourseName, it.Title, it.Detail))
	}
	return fmt.Sprintf(userPromptTemplate, strings.Join(blocks, "\n\n"))
}
