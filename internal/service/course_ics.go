package service

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"studydesk/backend/internal/model"
)

// ── 课表 ICS 解析 ──────────────────────────────────────────
//
// 一个 VEVENT 展开为若干次上课，再按 课程名+星期+起止时间 聚合成课表行，
// 每行记录实际上课的教学周。支持 RRULE 的 WEEKLY/INTERVAL/COUNT/UNTIL/BYDAY 与 EXDATE。
// ─────────────────────────────────────────────────────────────

const (
	icsMaxBytes      = 5 << 20
	icsFetchTimeout  = 30 * time.Second
	defaultTermWeeks = 25
	maxOccurrences   = 400
	courseTimezone   = "Asia/Shanghai"
)

var teacherPattern = regexp.MustCompile(`(?:任课教师|教师|老师|Teacher)\s*[:：]\s*([^\n,;，；]+)`)

// FetchICS 下载 ICS 内容，webcal:// 按 https:// 处理，响应体最多读取 5MB
func FetchICS(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	target := rawURL
	if rest, ok := strings.CutPrefix(target, "webcal://"); ok {
		target = "https://" + rest
	}

	ctx, cancel := context.WithTimeout(ctx, icsFetchTimeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("构造 ICS 请求失败: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("获取 ICS 失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("获取 ICS 失败: HTTP %d", resp.StatusCode)
	}
	return &limitedBody{Reader: io.LimitReader(resp.Body, icsMaxBytes), body: resp.Body, cancel: cancel}, nil
}

type limitedBody struct {
	io.Reader
	body   io.Closer
	cancel context.CancelFunc
}

func (b *limitedBody) Close() error {
	defer b.cancel()
	return b.body.Close()
}

// ── 教学周 ──

// termCalendar 以第一教学周周一 00:00 为起点换算周次
type termCalendar struct {
	monday time.Time
	weeks  int
	loc    *time.Location
}

func newTermCalendar(termStart time.Time, weeks int, loc *time.Location) termCalendar {
	d := time.Date(termStart.Year(), termStart.Month(), termStart.Day(), 0, 0, 0, 0, loc)
	d = d.AddDate(0, 0, 1-isoWeekday(d.Weekday()))
	if weeks <= 0 {
		weeks = defaultTermWeeks
	}
	return termCalendar{monday: d, weeks: weeks, loc: loc}
}

// weekOf 返回 t 所在教学周（从 1 开始），学期外返回 0
func (c termCalendar) weekOf(t time.Time) int {
	t = t.In(c.loc)
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
	days := int(math.Round(day.Sub(c.monday).Hours() / 24))
	if days < 0 {
		return 0
	}
	if w := days/7 + 1; w <= c.weeks {
		return w
	}
	return 0
}

func (c termCalendar) end() time.Time {
	return c.monday.AddDate(0, 0, 7*c.weeks)
}

// isoWeekday 周一为 1，周日为 7
func isoWeekday(wd time.Weekday) int {
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

// ── 重复规则 ──

type recurrence struct {
	interval int
	count    int
	until    time.Time
	byDay    []time.Weekday
}

var icsWeekdays = map[string]time.Weekday{
	"MO": time.Monday, "TU": time.Tuesday, "WE": time.Wednesday, "TH": time.Thursday,
	"FR": time.Friday, "SA": time.Saturday, "SU": time.Sunday,
}

// parseRecurrence 仅接受 FREQ=WEEKLY，其余频率返回 false
func parseRecurrence(value string, loc *time.Location) (recurrence, bool) {
	r := recurrence{interval: 1}
	weekly := false
	for _, part := range strings.Split(value, ";") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		switch strings.ToUpper(strings.TrimSpace(k)) {
		case "FREQ":
			weekly = strings.EqualFold(v, "WEEKLY")
		case "INTERVAL":
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				r.interval = n
			}
		case "COUNT":
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				r.count = n
			}
		case "UNTIL":
			if t, timed, err := parseICSValue(v, "", loc); err == nil {
				if !timed {
					t = t.AddDate(0, 0, 1).Add(-time.Second) // 纯日期包含当天
				}
				r.until = t
			}
		case "BYDAY":
			for _, d := range strings.Split(v, ",") {
				d = strings.ToUpper(strings.TrimSpace(d))
				if len(d) >= 2 {
					if wd, ok := icsWeekdays[d[len(d)-2:]]; ok {
						r.byDay = append(r.byDay, wd)
					}
				}
			}
		}
	}
	return r, weekly
}

// occurrences 从 first 开始展开，最晚到 limit（不含）
func (r recurrence) occurrences(first, limit time.Time) []time.Time {
	days := r.byDay
	if len(days) == 0 {
		days = []time.Weekday{first.Weekday()}
	}
	offsets := make([]int, 0, len(days))
	for _, d := range days {
		offsets = append(offsets, isoWeekday(d)-1)
	}
	sort.Ints(offsets)

	weekStart := first.AddDate(0, 0, 1-isoWeekday(first.Weekday()))
	var out []time.Time
	for step := 0; len(out) < maxOccurrences; step++ {
		base := weekStart.AddDate(0, 0, 7*r.interval*step)
		if !base.Before(limit) {
			break
		}
		for _, off := range offsets {
			t := base.AddDate(0, 0, off)
			if t.Before(first) {
				continue
			}
			if (!r.until.IsZero() && t.After(r.until)) || !t.Before(limit) {
				return out
			}
			out = append(out, t)
			if r.count > 0 && len(out) >= r.count {
				return out
			}
		}
	}
	return out
}

// ── VEVENT 解析 ──

type courseKey struct {
	name  string
	day   int
	start string
	end   string
}

type courseSlot struct {
	courseKey
	teacher  string
	location string
	weeks    map[int]struct{}
}

// ParseCourseICS 把课表 ICS 解析为课表行
// termStart 所在周为第一教学周，totalWeeks 为 0 时取默认上限
func ParseCourseICS(r io.Reader, userID string, termStart time.Time, totalWeeks int) ([]model.CourseSchedule, error) {
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}

	loc := loadLocation(courseTimezone)
	term := newTermCalendar(termStart, totalWeeks, loc)

	slots := map[courseKey]*courseSlot{}
	for _, evt := range cal.Events() {
		collectEvent(evt, term, slots)
	}

	result := make([]model.CourseSchedule, 0, len(slots))
	for _, s := range slots {
		weeks := make(model.IntArray, 0, len(s.weeks))
		for w := range s.weeks {
			weeks = append(weeks, w)
		}
		weeks = weeks.Weeks()
		result = append(result, model.CourseSchedule{
			UserID:     userID,
			CourseName: s.name,
			Teacher:    s.teacher,
			Location:   s.location,
			DayOfWeek:  s.day,
			StartTime:  s.start,
			EndTime:    s.end,
			WeekType:   weekTypeOf(weeks),
			Weeks:      weeks,
			Source:     "ics",
		})
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek < b.DayOfWeek
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.CourseName < b.CourseName
	})
	return result, nil
}

// collectEvent 展开一个 VEVENT 并把落在学期内的上课记入 slots
// 缺少标题、起始时间或全天事件直接跳过
func collectEvent(evt *ics.VEvent, term termCalendar, slots map[courseKey]*courseSlot) {
	name := propText(evt, ics.ComponentPropertySummary)
	if name == "" {
		return
	}
	start, timed, err := eventTime(evt, ics.ComponentPropertyDtStart, term.loc)
	if err != nil || !timed {
		return
	}
	duration, ok := eventDuration(evt, start, term.loc)
	if !ok {
		return
	}

	occurrences := []time.Time{start}
	if prop := evt.GetProperty(ics.ComponentPropertyRrule); prop != nil {
		if rule, weekly := parseRecurrence(prop.Value, term.loc); weekly {
			occurrences = rule.occurrences(start, term.end())
		}
	}

	excluded := exdates(evt, term.loc)
	teacher := teacherOf(evt)
	location := propText(evt, ics.ComponentPropertyLocation)

	for _, t := range occurrences {
		if _, skip := excluded[t.Format("20060102")]; skip {
			continue
		}
		week := term.weekOf(t)
		if week == 0 {
			continue
		}
		key := courseKey{
			name:  name,
			day:   isoWeekday(t.Weekday()),
			start: t.Format("15:04"),
			end:   t.Add(duration).Format("15:04"),
		}
		slot, ok := slots[key]
		if !ok {
			slot = &courseSlot{courseKey: key, teacher: teacher, location: location, weeks: map[int]struct{}{}}
			slots[key] = slot
		}
		slot.weeks[week] = struct{}{}
	}
}

func propText(evt *ics.VEvent, p ics.ComponentProperty) string {
	prop := evt.GetProperty(p)
	if prop == nil {
		return ""
	}
	return strings.TrimSpace(prop.Value)
}

// teacherOf 从 DESCRIPTION 中提取"教师：xxx"
func teacherOf(evt *ics.VEvent) string {
	desc := strings.ReplaceAll(propText(evt, ics.ComponentPropertyDescription), `\n`, "\n")
	if m := teacherPattern.FindStringSubmatch(desc); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func eventTime(evt *ics.VEvent, p ics.ComponentProperty, loc *time.Location) (time.Time, bool, error) {
	prop := evt.GetProperty(p)
	if prop == nil {
		return time.Time{}, false, fmt.Errorf("缺少 %s", p)
	}
	return parseICSValue(prop.Value, paramValue(prop.ICalParameters, "TZID"), loc)
}

// eventDuration 优先使用 DTEND，其次 DURATION
func eventDuration(evt *ics.VEvent, start time.Time, loc *time.Location) (time.Duration, bool) {
	if end, _, err := eventTime(evt, ics.ComponentPropertyDtEnd, loc); err == nil {
		if d := end.Sub(start); d > 0 {
			return d, true
		}
		return 0, false
	}
	if prop := evt.GetProperty(ics.ComponentPropertyDuration); prop != nil {
		if d, err := parseICSDuration(prop.Value); err == nil && d > 0 {
			return d, true
		}
	}
	return 0, false
}

func exdates(evt *ics.VEvent, loc *time.Location) map[string]struct{} {
	out := map[string]struct{}{}
	for _, prop := range evt.Properties {
		if !strings.EqualFold(prop.IANAToken, string(ics.ComponentPropertyExdate)) {
			continue
		}
		tzid := paramValue(prop.ICalParameters, "TZID")
		for _, v := range strings.Split(prop.Value, ",") {
			if t, _, err := parseICSValue(strings.TrimSpace(v), tzid, loc); err == nil {
				out[t.Format("20060102")] = struct{}{}
			}
		}
	}
	return out
}

func paramValue(params map[string][]string, name string) string {
	for k, v := range params {
		if strings.EqualFold(k, name) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

// parseICSValue 解析 UTC、带 TZID、浮动时间与纯日期四种写法，结果统一换算到 loc
// 第二个返回值表示是否带有时刻
func parseICSValue(value, tzid string, loc *time.Location) (time.Time, bool, error) {
	if t, err := time.Parse("20060102T150405Z", value); err == nil {
		return t.In(loc), true, nil
	}
	zone := loc
	if tzid != "" {
		if z, err := time.LoadLocation(tzid); err == nil {
			zone = z
		}
	}
	if t, err := time.ParseInLocation("20060102T150405", value, zone); err == nil {
		return t.In(loc), true, nil
	}
	if t, err := time.ParseInLocation("20060102", value, zone); err == nil {
		return t.In(loc), false, nil
	}
	return time.Time{}, false, fmt.Errorf("无法解析日期: %s", value)
}

// parseICSDuration 解析 RFC 5545 时长，如 PT1H50M、P1D
func parseICSDuration(value string) (time.Duration, error) {
	v := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(value)), "+")
	rest, ok := strings.CutPrefix(v, "P")
	if !ok || rest == "" {
		return 0, fmt.Errorf("非法时长: %s", value)
	}
	var total time.Duration
	inTime := false
	num := ""
	for _, ch := range rest {
		switch {
		case ch >= '0' && ch <= '9':
			num += string(ch)
		case ch == 'T':
			inTime = true
		default:
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0, fmt.Errorf("非法时长: %s", value)
			}
			num = ""
			switch {
			case ch == 'W':
				total += time.Duration(n) * 7 * 24 * time.Hour
			case ch == 'D':
				total += time.Duration(n) * 24 * time.Hour
			case ch == 'H' && inTime:
				total += time.Duration(n) * time.Hour
			case ch == 'M' && inTime:
				total += time.Duration(n) * time.Minute
			case ch == 'S' && inTime:
				total += time.Duration(n) * time.Second
			default:
				return 0, fmt.Errorf("非法时长: %s", value)
			}
		}
	}
	if num != "" {
		return 0, fmt.Errorf("非法时长: %s", value)
	}
	return total, nil
}

// weekTypeOf 两周以上且全为单周记 odd，全为双周记 even，否则 all
func weekTypeOf(weeks []int) string {
	if len(weeks) == 0 {
		return "all"
	}
	odd, even := 0, 0
	for _, w := range weeks {
		if w%2 == 1 {
			odd++
		} else {
			even++
		}
	}
	switch {
	case even == 0 && len(weeks) > 1:
		return "odd"
	case odd == 0 && len(weeks) > 1:
		return "even"
	default:
		return "all"
	}
}
