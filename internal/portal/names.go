package portal

import "strings"

// ExtractPureName 从课程链接文本中提取纯课程名
//
//	"25261-00011-04830040-0006160114-00-1: 人类的性、生育与健康(25-26学年第1学期)" → "人类的性、生育与健康"
//
// 先去掉第一个冒号及之前的课程代码，再去掉最后一个左括号起的学期后缀
func ExtractPureName(text string) string {
	name := text
	if i := strings.Index(name, ":"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "("); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}
