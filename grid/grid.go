package grid

import (
	"fmt"
	"time"
)

// 网格约定：x 轴为一年中的周序（1..52），y 轴为年龄（岁），原点在左上，
// 年龄向下增长。出生日永远落在每个生命年的第 1 周。

// WeeksPerYear 是网格的列数。多出的第 53 周会被折回第 1 列。
const WeeksPerYear = 52

// Point 以数据坐标保存一个位置（x 为周，y 为年龄，均允许小数）。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) String() string { return fmt.Sprintf("(%g, %g)", p.X, p.Y) }

// CellPos 记录某个日期映射到的网格单元：列坐标、生命年与原始日期。
type CellPos struct {
	X    float64
	Year int
	Date time.Time
}

func (c CellPos) String() string {
	return fmt.Sprintf("CellPos: year(%d), week(%g), date(%s)", c.Year, c.X, c.Date.Format("2006-01-02"))
}

// Point 返回该单元的数据坐标（x=周列，y=生命年）。
func (c CellPos) Point() Point { return Point{X: c.X, Y: float64(c.Year)} }

// Side 表示标签相对网格的摆放侧。
type Side int

const (
	SideAuto Side = iota // 未指定，按锚点周序决定
	SideLeft
	SideRight
)

// ParseSide 解析配置中的 side 字符串，空串视为 SideAuto。
func ParseSide(s string) (Side, error) {
	switch s {
	case "":
		return SideAuto, nil
	case "left", "Left", "LEFT":
		return SideLeft, nil
	case "right", "Right", "RIGHT":
		return SideRight, nil
	default:
		return SideAuto, fmt.Errorf("无法识别的 side 值: %q（应为 left 或 right）", s)
	}
}

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return ""
	}
}

// DefaultSide 是无 hint/side 时的默认侧规则：锚点列在网格右半边（x ≥ 26）
// 取右侧，否则取左侧。逐锚点无状态、确定。
func DefaultSide(anchorX float64) Side {
	if anchorX >= WeeksPerYear/2 {
		return SideRight
	}
	return SideLeft
}

// Locate 把日期映射到出生日锚定的周网格单元。
//
// 生命年按 365 天整除估算；每个生命年的起点是出生日平移对应年数后的日期
//（闰年 2 月 29 日在平年收敛到 2 月 28 日，保证出生日总在第 1 周）。
// 周序为距该起点的天数整除 7，再对 52 取模折回网格。
func Locate(birthdate, date time.Time) CellPos {
	birthdate = midnightUTC(birthdate)
	date = midnightUTC(date)

	days := int(date.Sub(birthdate).Hours() / 24)
	year := floorDiv(days, 365)

	startOfYear := AddYears(birthdate, year)
	week := int(date.Sub(startOfYear).Hours()/24) / 7

	x := float64(week%WeeksPerYear + 1)
	return CellPos{X: x, Year: year, Date: date}
}

// AddYears 把日期平移 years 个日历年，月与日保持不变；
// 若目标年没有 2 月 29 日则取 2 月 28 日（而不是 time.AddDate 的进位到 3 月 1 日）。
func AddYears(t time.Time, years int) time.Time {
	y, m, d := t.Date()
	y += years
	if m == time.February && d == 29 && !isLeapYear(y) {
		d = 28
	}
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Window 表示网格可见的年龄区间 [MinAge, MaxAge)。
type Window struct {
	MinAge int
	MaxAge int
}

// Validate 检查区间是否成立。
func (w Window) Validate() error {
	if w.MinAge < 0 {
		return fmt.Errorf("min-age 不能为负: %d", w.MinAge)
	}
	if w.MinAge >= w.MaxAge {
		return fmt.Errorf("min-age(%d) 必须小于 max-age(%d)", w.MinAge, w.MaxAge)
	}
	return nil
}

// Years 返回可见的行数。
func (w Window) Years() int { return w.MaxAge - w.MinAge }

// Contains 报告某个生命年是否落在窗口内。
func (w Window) Contains(year int) bool { return year >= w.MinAge && year < w.MaxAge }

// ClampYear 把生命年收敛到窗口内最近的可见行。
func (w Window) ClampYear(year int) int {
	if year < w.MinAge {
		return w.MinAge
	}
	if year >= w.MaxAge {
		return w.MaxAge - 1
	}
	return year
}

// CheckDate 校验日期落在 [birthdate, birthdate+MaxAge年] 内，越界返回错误。
// 窗口裁剪（min-age）不在此处处理：窗口外的事件由布局阶段静默跳过。
func (w Window) CheckDate(birthdate, date time.Time) error {
	birthdate = midnightUTC(birthdate)
	date = midnightUTC(date)
	if date.Before(birthdate) || date.After(AddYears(birthdate, w.MaxAge)) {
		return fmt.Errorf("日期 %s 必须在出生日与 %d 岁之间", date.Format("2006-01-02"), w.MaxAge)
	}
	return nil
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func isLeapYear(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}
