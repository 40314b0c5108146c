package layout

import (
	"fmt"
	"math"
	"sort"
)

// Papersize 是图纸尺寸预设。数值沿用海报常用的英寸规格，
// 布局阶段统一换算为毫米。
type Papersize string

const (
	A0          Papersize = "A0"
	A1          Papersize = "A1"
	A2          Papersize = "A2"
	A3          Papersize = "A3"
	A4          Papersize = "A4"
	A5          Papersize = "A5"
	A6          Papersize = "A6"
	A7          Papersize = "A7"
	A8          Papersize = "A8"
	A9          Papersize = "A9"
	A10         Papersize = "A10"
	HalfLetter  Papersize = "HalfLetter"
	Letter      Papersize = "Letter"
	Legal       Papersize = "Legal"
	JuniorLegal Papersize = "JuniorLegal"
	Ledger      Papersize = "Ledger"
	Tabloid     Papersize = "Tabloid"
)

var papersizes = map[Papersize][2]float64{
	A0:          {33.1, 46.8},
	A1:          {23.4, 33.1},
	A2:          {16.5, 23.4},
	A3:          {11.7, 16.5},
	A4:          {8.3, 11.7},
	A5:          {5.8, 8.3},
	A6:          {4.1, 5.8},
	A7:          {2.9, 4.1},
	A8:          {2.0, 2.9},
	A9:          {1.5, 2.0},
	A10:         {1.0, 1.5},
	HalfLetter:  {5.5, 8.5},
	Letter:      {8.5, 11.0},
	Legal:       {8.5, 14.0},
	JuniorLegal: {5.0, 8.0},
	Ledger:      {11.0, 17.0},
	Tabloid:     {17.0, 11.0},
}

// ParsePapersize 解析配置中的尺寸名，空串返回默认 A3。
func ParsePapersize(name string) (Papersize, error) {
	if name == "" {
		return A3, nil
	}
	p := Papersize(name)
	if _, ok := papersizes[p]; !ok {
		return A3, fmt.Errorf("未知的纸张尺寸 %q（可选：%v）", name, PapersizeNames())
	}
	return p, nil
}

// PapersizeNames 返回全部预设名称，按字典序排列。
func PapersizeNames() []string {
	names := make([]string, 0, len(papersizes))
	for p := range papersizes {
		names = append(names, string(p))
	}
	sort.Strings(names)
	return names
}

// Dimensions 返回纸张的宽高（保留原始英寸单位）。
func (p Papersize) Dimensions() (w, h Length) {
	dims, ok := papersizes[p]
	if !ok {
		dims = papersizes[A3]
	}
	return Length{Value: dims[0], Unit: UnitIN}, Length{Value: dims[1], Unit: UnitIN}
}

// a3Diag 是缩放基准：所有样式参数按相对 A3 对角线的比例缩放。
var a3Diag = math.Hypot(11.7, 16.5)

// Params 保存按纸张尺寸缩放后的绘制参数。
// 字号与线宽以毫米为单位；带 data 单位注释的字段以网格数据坐标为单位，
// 随纸张等比缩放，无需单独调整。
type Params struct {
	Size  Papersize
	Scale float64 // 相对 A3 对角线的比例

	LabelFontSize     float64 // 坐标轴标题字号（mm）
	TickFontSize      float64 // 刻度字号（mm）
	BaseFontSize      float64 // 事件标签字号（mm）
	TitleFontSize     float64 // 图标题字号（mm）
	MaxAgeFontSize    float64 // 右下角年龄字号（mm）
	WatermarkFontSize float64 // 水印字号（mm）

	GridLineWidth       float64 // 网格方块描边宽（mm）
	MarkerEdgeWidth     float64 // 圆圈与端点描边宽（mm）
	AnnotationLineWidth float64 // 引线宽（mm）

	SquareSide   float64 // 方块边长（data 单位）
	CircleRadius float64 // 事件圆圈半径（data 单位）
	SpanRadius   float64 // 哑铃端点半径（data 单位）

	LeftOffset  float64 // 左侧标签与网格的间距（data 单位）
	RightOffset float64 // 右侧标签与网格的间距（data 单位）

	TitleYFraction float64    // 标题的纵向位置（页面比例，自下而上）
	XLabelPos      [2]float64 // x 轴标题位置（axes 比例坐标）
	YLabelPos      [2]float64 // y 轴标题位置（axes 比例坐标）
}

// NewParams 按纸张尺寸生成缩放后的参数，缩放规则与阈值保持既定值。
func NewParams(size Papersize) Params {
	w, h := size.Dimensions()
	s := math.Hypot(w.Value, h.Value) / a3Diag

	p := Params{
		Size:  size,
		Scale: s,

		LabelFontSize:     clamp(math.Round(16*s), 1, 40) * PtToMm,
		TickFontSize:      clamp(math.Round(10*s), 1, 20) * PtToMm,
		BaseFontSize:      clamp(math.Round(18*s), 1, 60) * PtToMm,
		TitleFontSize:     clamp(math.Round(28*s), 4, 128) * PtToMm,
		MaxAgeFontSize:    clamp(math.Round(20*s), 2, 38) * PtToMm,
		WatermarkFontSize: clamp(math.Round(120*s), 18, 200) * PtToMm,

		GridLineWidth:       math.Max(0.2, 0.5*s) * PtToMm,
		MarkerEdgeWidth:     math.Max(0.1, 0.8*s) * PtToMm,
		AnnotationLineWidth: math.Max(0.1, 1.0*s) * PtToMm,

		SquareSide:   0.7,
		CircleRadius: 0.55,
		SpanRadius:   0.5,

		TitleYFraction: 0.95,
		XLabelPos:      [2]float64{0.20, 1.05},
		YLabelPos:      [2]float64{-0.03, 0.95},
	}

	// 小尺寸下网格更窄，标签需要离得更远一些。
	if s < 1.5 {
		p.LeftOffset, p.RightOffset = 6, 5
	} else {
		p.LeftOffset, p.RightOffset = 3, 3
	}
	if s <= 0.3 {
		p.TitleYFraction = 0.97
	}
	return p
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
