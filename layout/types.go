package layout

import (
	"fmt"
	"strings"

	"github.com/ByLCY/lifegrid/grid"
)

// 该文件定义布局产物（Sheet）与基础图元，供布局计算、渲染与调试 JSON 共用。
// 所有坐标与尺寸均为毫米，原点在页面左上角。

// Sheet 是一张排好版的海报：网格方块、时代底色、哑铃、引线与全部文本。
type Sheet struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	Axes AxesBox `json:"axes"`

	Squares []Rect    `json:"squares"`
	Bands   []Rect    `json:"bands,omitempty"`
	Circles []Circle  `json:"circles,omitempty"`
	Lines   []Line    `json:"lines,omitempty"`
	Labels  []TextBox `json:"labels,omitempty"`
	Texts   []TextBox `json:"texts,omitempty"`

	Image *ImageBox `json:"image,omitempty"`

	Meta DocumentMeta `json:"meta"`
}

// AxesBox 记录网格区域在页面上的位置与数据坐标到毫米的换算。
type AxesBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	// Unit 是每个数据单位对应的毫米数（x/y 等比）。
	Unit float64 `json:"unit"`

	// 数据坐标范围：x ∈ [XMin, XMax]，y ∈ [YMin, YMax]，y 向下增长。
	XMin float64 `json:"xmin"`
	XMax float64 `json:"xmax"`
	YMin float64 `json:"ymin"`
	YMax float64 `json:"ymax"`
}

// ToMM 把数据坐标换算为页面毫米坐标。
func (a AxesBox) ToMM(p grid.Point) (x, y float64) {
	return a.X + (p.X-a.XMin)*a.Unit, a.Y + (p.Y-a.YMin)*a.Unit
}

// FracToMM 把 axes 比例坐标（0..1，y 自下而上，matplotlib 习惯）换算为毫米。
func (a AxesBox) FracToMM(fx, fy float64) (x, y float64) {
	return a.X + fx*a.Width, a.Y + (1-fy)*a.Height
}

// Color 采用 0-255 的 RGB 数值与 0-1 的透明度。
type Color struct {
	R int     `json:"r"`
	G int     `json:"g"`
	B int     `json:"b"`
	A float64 `json:"a"`
}

// RGB 构造不透明颜色。
func RGB(r, g, b int) Color { return Color{R: r, G: g, B: b, A: 1} }

// WithAlpha 返回替换透明度后的颜色。
func (c Color) WithAlpha(a float64) Color {
	c.A = a
	return c
}

// Hex 返回 #RRGGBB 形式（透明度不参与）。
func (c Color) Hex() string { return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B) }

// ParseHexColor 解析 #RGB、#RRGGBB 与 #RRGGBBAA 三种写法。
func ParseHexColor(s string) (Color, error) {
	v := strings.TrimPrefix(strings.TrimSpace(s), "#")
	hex := func(b byte) (int, bool) {
		switch {
		case b >= '0' && b <= '9':
			return int(b - '0'), true
		case b >= 'a' && b <= 'f':
			return int(b-'a') + 10, true
		case b >= 'A' && b <= 'F':
			return int(b-'A') + 10, true
		}
		return 0, false
	}
	byteAt := func(i int) (int, bool) {
		hi, ok1 := hex(v[i])
		lo, ok2 := hex(v[i+1])
		return hi*16 + lo, ok1 && ok2
	}
	switch len(v) {
	case 3:
		r, ok1 := hex(v[0])
		g, ok2 := hex(v[1])
		b, ok3 := hex(v[2])
		if !(ok1 && ok2 && ok3) {
			return Color{}, fmt.Errorf("无法解析颜色 %q", s)
		}
		return RGB(r*17, g*17, b*17), nil
	case 6, 8:
		r, ok1 := byteAt(0)
		g, ok2 := byteAt(2)
		b, ok3 := byteAt(4)
		if !(ok1 && ok2 && ok3) {
			return Color{}, fmt.Errorf("无法解析颜色 %q", s)
		}
		c := RGB(r, g, b)
		if len(v) == 8 {
			a, ok := byteAt(6)
			if !ok {
				return Color{}, fmt.Errorf("无法解析颜色 %q", s)
			}
			c.A = float64(a) / 255
		}
		return c, nil
	default:
		return Color{}, fmt.Errorf("无法解析颜色 %q（应为 #RGB/#RRGGBB/#RRGGBBAA）", s)
	}
}

// TextBox 表示一段已经定位的文本。锚点含义由对齐方式决定。
type TextBox struct {
	Content  string  `json:"content"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	FontSize float64 `json:"fontSize"` // mm
	Color    Color   `json:"color"`
	Bold     bool    `json:"bold,omitempty"`
	HAlign   string  `json:"hAlign,omitempty"`   // left（默认）/center/right
	VAlign   string  `json:"vAlign,omitempty"`   // center（默认）/top/bottom
	Rotation float64 `json:"rotation,omitempty"` // 逆时针角度
}

// Line 表示一条线段。
type Line struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Color Color   `json:"color"`
	Width float64 `json:"width"` // 线宽（mm），<=0 时由渲染器给默认值
}

// Rect 表示一个矩形。
type Rect struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	StrokeColor Color   `json:"strokeColor"`
	StrokeWidth float64 `json:"strokeWidth"`         // mm
	FillColor   *Color  `json:"fillColor,omitempty"` // 为空表示不填充
}

// Circle 表示一个圆。
type Circle struct {
	CX          float64 `json:"cx"`
	CY          float64 `json:"cy"`
	R           float64 `json:"r"`
	StrokeColor Color   `json:"strokeColor"`
	StrokeWidth float64 `json:"strokeWidth"` // mm
	FillColor   *Color  `json:"fillColor,omitempty"`
}

// ImageBox 描述铺在网格底下的图片。
type ImageBox struct {
	Path    string  `json:"path"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Opacity float64 `json:"opacity"`
}

// DocumentMeta 保存输出文件的元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}
